package container

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ConfigureLogger sets level and format of logger, writing to stderr
func ConfigureLogger(logger *logrus.Logger, level, format string) error {
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return err
		}
		logger.SetLevel(lvl)
	}
	switch format {
	case "", LogFormatText:
		logger.SetFormatter(&logrus.TextFormatter{})
	case LogFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	logger.SetOutput(os.Stderr)
	return nil
}
