package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	rotatelogs "github.com/Velocidex/file-rotatelogs"
	errors "github.com/go-errors/errors"
	isatty "github.com/mattn/go-isatty"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"www.velocidex.com/golang/packrat/config"
)

// Each subsystem logs under its own component so log lines can be
// filtered by origin.
var (
	GenericComponent  = "Packrat"
	FetcherComponent  = "PackratFetcher"
	PackagerComponent = "PackratPackager"
	ToolComponent     = "PackratTool"

	mu       sync.Mutex
	managers = make(map[string]*LogContext)
)

type LogContext struct {
	*logrus.Logger
}

func (self *LogContext) Info(format string, v ...interface{}) {
	if self.Logger != nil {
		self.Logger.Info(fmt.Sprintf(format, v...))
	}
}

func (self *LogContext) Warn(format string, v ...interface{}) {
	if self.Logger != nil {
		self.Logger.Warn(fmt.Sprintf(format, v...))
	}
}

func (self *LogContext) Error(format string, v ...interface{}) {
	if self.Logger != nil {
		self.Logger.Error(fmt.Sprintf(format, v...))
	}
}

func (self *LogContext) Debug(format string, v ...interface{}) {
	if self.Logger != nil {
		self.Logger.Debug(fmt.Sprintf(format, v...))
	}
}

// GetLogger returns the cached logger for the component, creating it
// on first use.
func GetLogger(config_obj *config.Config, component *string) *LogContext {
	mu.Lock()
	defer mu.Unlock()

	ctx, pres := managers[*component]
	if pres {
		return ctx
	}

	ctx, err := newLogContext(config_obj, *component)
	if err != nil {
		// Fall back to a bare stderr logger rather than losing
		// messages.
		ctx = &LogContext{Logger: logrus.New()}
	}

	managers[*component] = ctx
	return ctx
}

// Reset all cached loggers. Used by tests which change the config
// between runs.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	managers = make(map[string]*LogContext)
}

func newLogContext(config_obj *config.Config, component string) (
	*LogContext, error) {

	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Level = logrus.InfoLevel

	logging_config := config_obj.Logging
	if logging_config == nil {
		logging_config = &config.LoggingConfig{}
	}

	if logging_config.Debug {
		logger.Level = logrus.DebugLevel
	}

	logger.Formatter = &logrus.TextFormatter{
		DisableColors:   !isatty.IsTerminal(os.Stderr.Fd()),
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	}

	if logging_config.OutputDirectory != "" {
		hook, err := newRotatingHook(logging_config, component)
		if err != nil {
			return nil, err
		}
		logger.Hooks.Add(hook)
	}

	return &LogContext{Logger: logger}, nil
}

func newRotatingHook(logging_config *config.LoggingConfig,
	component string) (logrus.Hook, error) {

	err := os.MkdirAll(logging_config.OutputDirectory, 0700)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	max_age := logging_config.MaxAgeDays
	if max_age == 0 {
		max_age = 30
	}

	rotation := logging_config.RotationHours
	if rotation == 0 {
		rotation = 24
	}

	base := filepath.Join(logging_config.OutputDirectory, component)
	writer, err := rotatelogs.New(
		base+".log.%Y%m%d%H%M",
		rotatelogs.WithLinkName(base+".log"),
		rotatelogs.WithMaxAge(time.Duration(max_age)*24*time.Hour),
		rotatelogs.WithRotationTime(time.Duration(rotation)*time.Hour),
	)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	// File logs never carry terminal escapes.
	formatter := &logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	}

	return lfshook.NewHook(lfshook.WriterMap{
		logrus.DebugLevel: writer,
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
	}, formatter), nil
}
