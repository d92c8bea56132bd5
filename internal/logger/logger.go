package logger

import (
	"fmt"

	"github.com/fieldops/fieldservice-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Production and LOGGING_FORMAT=json emit
// JSON lines for the log collector; local runs get a colored console. Every line
// carries the app name and environment.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	production := cfg.Format == "json" || appCfg.Environment == "production"

	var zapCfg zap.Config
	if production {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "timestamp"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// WithRequest scopes a logger to one API call
func WithRequest(logger *zap.Logger, method, path, requestID string) *zap.Logger {
	return logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
}

// WithJob scopes a logger to a scheduled job run
func WithJob(logger *zap.Logger, jobName string) *zap.Logger {
	return logger.With(zap.String("job", jobName))
}

// WithPayment scopes a logger to one installment of a development, so collection,
// cancellation and reversal lines can be grepped by development or period
func WithPayment(logger *zap.Logger, developmentID, paymentID, period string) *zap.Logger {
	return logger.With(
		zap.String("development_id", developmentID),
		zap.String("payment_id", paymentID),
		zap.String("period", period),
	)
}
