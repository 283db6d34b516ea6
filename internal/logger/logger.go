package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger

// New builds a zap logger. Debug mode uses the development config with colored
// levels and caller info; otherwise the production config at Info level.
func New(debug bool, jsonOutput bool) (*zap.Logger, error) {
	var config zap.Config
	var encoderConfig zapcore.EncoderConfig

	if debug {
		config = zap.NewDevelopmentConfig()
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	} else {
		config = zap.NewProductionConfig()
		encoderConfig = zap.NewProductionEncoderConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		config.DisableCaller = true
	}

	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.LevelKey = "level"
	encoderConfig.NameKey = "logger"
	encoderConfig.MessageKey = "msg"
	encoderConfig.StacktraceKey = "stacktrace"
	if !config.DisableCaller {
		encoderConfig.CallerKey = "caller"
	}

	if jsonOutput {
		// Colored levels corrupt JSON output.
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		config.Encoding = "json"
	} else {
		config.Encoding = "console"
	}
	config.EncoderConfig = encoderConfig
	config.DisableStacktrace = !debug
	// Secrets are printed to stdout by the CLI; keep logs off that stream.
	config.OutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return logger, nil
}

// Init builds the global logger.
func Init(debug bool, jsonOutput bool) error {
	logger, err := New(debug, jsonOutput)
	if err != nil {
		return err
	}
	Log = logger

	Log.Info("Logger initialized",
		zap.Bool("debug_mode", debug),
		zap.Bool("json_output", jsonOutput),
	)
	return nil
}

// sensitiveWords marks key/value pairs whose value must not reach the log.
var sensitiveWords = []string{"token", "secret", "password", "credential"}

// RetryLogger adapts zap to the leveled logger interface of go-retryablehttp,
// which the Vault client uses to report request attempts and retries.
type RetryLogger struct {
	logger *zap.Logger
}

func NewRetryLogger(base *zap.Logger) *RetryLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &RetryLogger{logger: base.Named("http").WithOptions(zap.AddCallerSkip(1))}
}

func (l *RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fields(keysAndValues)...)
}

func (l *RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fields(keysAndValues)...)
}

// Info is demoted to Debug: retryablehttp reports every attempt at Info or Debug.
func (l *RetryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues)...)
}

func (l *RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues)...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	result := make([]zap.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 >= len(keysAndValues) {
			result = append(result, zap.String("ignored", key))
			break
		}
		value := keysAndValues[i+1]
		if isSensitive(key) {
			result = append(result, zap.String(key, "***REDACTED***"))
			continue
		}
		switch v := value.(type) {
		case error:
			result = append(result, zap.NamedError(key, v))
		case fmt.Stringer:
			result = append(result, zap.Stringer(key, v))
		default:
			result = append(result, zap.Any(key, v))
		}
	}
	return result
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, word := range sensitiveWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
