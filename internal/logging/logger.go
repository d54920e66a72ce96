package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// AppName prefixes every log message.
const AppName = "accounts"

var Logger = logrus.New()

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook interface.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook interface.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.appName + "] " + entry.Message
	return nil
}

// Init configures the shared logger. Unknown levels fall back to info.
func Init(level, format string) {
	Configure(Logger, os.Stdout, level, format)
	Logger.ReplaceHooks(make(logrus.LevelHooks))
	Logger.AddHook(&appNameHook{appName: AppName})
}

// Configure applies level and format to logger.
func Configure(logger *logrus.Logger, out io.Writer, level, format string) {
	logger.SetOutput(out)

	levelStr := strings.ToLower(strings.TrimSpace(level))
	if levelStr == "" {
		levelStr = "info"
	}
	parsed, err := logrus.ParseLevel(levelStr)
	if err != nil {
		logger.Warnf("Invalid LOG_LEVEL '%s', defaulting to INFO", levelStr)
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
