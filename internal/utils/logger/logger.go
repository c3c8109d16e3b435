// internal/utils/logger/logger.go
package logger

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger расширяет функционал zap.Logger
type Logger struct {
	*zap.Logger
	config *Config
	rotor  *lumberjack.Logger
}

// New создает новый логгер: консоль в читаемом виде, файл в JSON с ротацией.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.LogFile == "" {
		return nil, errors.New("log file is not set")
	}

	// Настройка ротации логов
	logRotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	// одинаковые ключи в обоих режимах
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.LevelKey = "level"
	encoderConfig.MessageKey = "msg"
	encoderConfig.NameKey = "logger"
	encoderConfig.CallerKey = "caller"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(logRotator), level),
	}
	if !cfg.Quiet {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level))
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
		config: cfg,
		rotor:  logRotator,
	}, nil
}

// WithTransaction добавляет контекст транзакции к логам
func (l *Logger) WithTransaction(signature string) *zap.Logger {
	return l.With(
		zap.String("signature", signature),
		zap.Time("tx_time", time.Now().UTC()),
	)
}

// WithOperation создает логгер для конкретной операции
func (l *Logger) WithOperation(operation string) *zap.Logger {
	return l.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.New().String()),
		zap.Time("start_time", time.Now().UTC()),
	)
}

// WithComponent добавляет информацию о компоненте системы
func (l *Logger) WithComponent(component string) *zap.Logger {
	return l.With(zap.String("component", component))
}

// WithTrade добавляет параметры покупки
func (l *Logger) WithTrade(pool, baseMint string, spendSOL, slippage float64) *zap.Logger {
	return l.With(
		zap.String("pool", pool),
		zap.String("base_mint", baseMint),
		zap.Float64("spend_sol", spendSOL),
		zap.Float64("slippage", slippage),
	)
}

// LogError логирует ошибку с дополнительным контекстом
func (l *Logger) LogError(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.Error(msg, fields...)
}

// Sync сбрасывает буферы; ошибки sync для терминала игнорируются.
func (l *Logger) Sync() error {
	err := l.Logger.Sync()
	if err != nil && (errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)) {
		return nil
	}
	return err
}

// Close сбрасывает буферы и закрывает файл лога.
func (l *Logger) Close() error {
	syncErr := l.Sync()
	if err := l.rotor.Close(); err != nil {
		return err
	}
	return syncErr
}

// TrackPerformance отслеживает производительность операции
func (l *Logger) TrackPerformance(operation string) (end func()) {
	start := time.Now()
	opLogger := l.WithOperation(operation)

	opLogger.Debug("Starting operation")

	return func() {
		duration := time.Since(start)
		opLogger.Debug("Operation completed",
			zap.Duration("duration", duration),
			zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
		)
	}
}
