package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init installs the global zap logger. Components log via zap.L().
// Development gets a console encoder, everything else JSON.
func Init(env string) (func(), error) {
	var cfg zap.Config
	if env == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logger)
	return func() {
		_ = logger.Sync()
	}, nil
}
