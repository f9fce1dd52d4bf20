package utils

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logLevelEnvVar = "CEDANA_LOG_LEVEL"

var once sync.Once

var log zerolog.Logger

func GetLogger() zerolog.Logger {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		log = zerolog.New(logOutput()).
			Level(logLevel()).
			With().
			Timestamp().
			Logger()
	})

	return log
}

// zerolog levels are numeric, -1 (trace) through 5 (panic). Defaults to info.
func logLevel() zerolog.Level {
	level := zerolog.InfoLevel
	if v, ok := os.LookupEnv(logLevelEnvVar); ok {
		val, err := strconv.Atoi(v)
		if err == nil {
			level = zerolog.Level(val)
		}
	}
	return level
}

func logOutput() io.Writer {
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	dir, err := ConfigDir()
	if err != nil {
		return console
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return console
	}

	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "cedana-spot.log"),
		MaxSize:    5, // megabytes
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	return zerolog.MultiLevelWriter(console, fileLogger)
}
