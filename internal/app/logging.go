package app

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 50
	logFileMaxBackups = 5
	logFileMaxAgeDays = 14
	logTimestampFmt   = "2006-01-02 15:04:05.000"
)

// ConfigureLogging настраивает стандартный logrus logger: уровень, формат и, если задан LogFile,
// запись в файл с ротацией. Возвращает функцию закрытия файла.
func ConfigureLogging(cfg Config) (func() error, error) {
	level := log.InfoLevel
	if raw := strings.TrimSpace(cfg.LogLevel); raw != "" {
		parsed, err := log.ParseLevel(raw)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	log.SetLevel(level)

	if strings.EqualFold(strings.TrimSpace(cfg.LogFormat), LogFormatJSON) {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: logTimestampFmt})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: logTimestampFmt})
	}

	path := strings.TrimSpace(cfg.LogFile)
	if path == "" {
		log.SetOutput(os.Stdout)
		return func() error { return nil }, nil
	}

	fileWriter := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
	return func() error {
		log.SetOutput(os.Stdout)
		return fileWriter.Close()
	}, nil
}
