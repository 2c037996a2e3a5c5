package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the application-wide structured logger
var Log *zap.SugaredLogger

func init() {
	// Safe default so packages can log before InitLogger runs (tests, init paths)
	Log = zap.NewNop().Sugar()
}

// InitLogger builds the global logger. Production gets the JSON encoder,
// development the console encoder with debug level.
func InitLogger(environment string) {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	Log = logger.Sugar()
}
