package config

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// InitLogging configures the standard logrus logger. format is "text" or
// "json".
func InitLogging(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	log.SetOutput(os.Stdout)
	log.SetLevel(lvl)
	log.SetReportCaller(false)

	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:          true,
			DisableLevelTruncation: true,
			PadLevelText:           true,
		})
	default:
		return errors.Errorf("invalid log format %q", format)
	}
	return nil
}
