package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/support-bot/internal/config"
)

// NewLogger creates a structured zap.Logger configured via env settings.
// Development environments get caller info and stack traces on warnings.
// The logger is named after the app; intake code derives children with
// IntakeLogger.
func NewLogger(cfg config.LoggerConfig, app config.AppConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: app.Env == "development",
		Encoding:    encoding(cfg.Format),
		EncoderConfig: zapcore.EncoderConfig{
			NameKey:       "logger",
			MessageKey:    "message",
			LevelKey:      "level",
			TimeKey:       "ts",
			CallerKey:     "caller",
			StacktraceKey: "stacktrace",
			EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
				enc.AppendString(l.String())
			},
			EncodeTime:   zapcore.ISO8601TimeEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named(app.Name).With(zap.String("app", app.Name), zap.String("version", app.Version)), nil
}

// IntakeLogger scopes logger to one conversation.
func IntakeLogger(logger *zap.Logger, intakeID, peer string) *zap.Logger {
	return logger.Named("intake").With(zap.String("intake_id", intakeID), zap.String("peer", peer))
}

func encoding(format string) string {
	if strings.EqualFold(format, "console") {
		return "console"
	}
	return "json"
}
