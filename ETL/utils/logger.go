package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ETLLogger представляет логгер для пайплайна метрик виральности
type ETLLogger struct {
	sugar     *zap.SugaredLogger
	isVerbose bool
}

// NewETLLogger создает логгер. mode: "prod" или "dev"; logFile - необязательный путь к файлу лога
func NewETLLogger(mode string, verbose bool, logFile string) (*ETLLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	// Пишем в stdout и, если задан, в файл вида etl_log_2006-01-02.log
	if logFile != "" {
		path := DailyLogFileName(logFile, time.Now())
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("не удалось создать каталог логов: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, path)
	}

	zapLogger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать логгер: %w", err)
	}

	return &ETLLogger{
		sugar:     zapLogger.Sugar(),
		isVerbose: verbose,
	}, nil
}

// NewNopLogger возвращает логгер, который ничего не пишет (для тестов)
func NewNopLogger() *ETLLogger {
	return &ETLLogger{sugar: zap.NewNop().Sugar()}
}

// DailyLogFileName добавляет дату к имени файла лога
func DailyLogFileName(base string, now time.Time) string {
	ext := ".log"
	name := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_%s%s", name, now.Format("2006-01-02"), ext)
}

// With возвращает логгер с дополнительными полями
func (l *ETLLogger) With(keysAndValues ...interface{}) *ETLLogger {
	return &ETLLogger{sugar: l.sugar.With(keysAndValues...), isVerbose: l.isVerbose}
}

// Info логирует информационное сообщение
func (l *ETLLogger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warn логирует предупреждение
func (l *ETLLogger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error логирует сообщение об ошибке
func (l *ETLLogger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Debug логирует отладочное сообщение (только если включен verbose режим)
func (l *ETLLogger) Debug(format string, v ...interface{}) {
	if !l.isVerbose {
		return
	}
	l.sugar.Debugf(format, v...)
}

// Sync сбрасывает буферы логгера
func (l *ETLLogger) Sync() {
	_ = l.sugar.Sync()
}

// LogJobStart логирует начало задания пайплайна
func (l *ETLLogger) LogJobStart(job string) {
	l.Info("Начало выполнения задания %s", job)
}

// LogJobComplete логирует завершение задания пайплайна
func (l *ETLLogger) LogJobComplete(job string, startTime time.Time, items int) {
	l.Info("Задание %s завершено. Длительность: %v, обработано записей: %d", job, time.Since(startTime), items)
}
