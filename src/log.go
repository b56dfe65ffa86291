package src

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init creates resFolder and returns a logger writing to resFolder/log.txt
// and, at info level and above, to stderr. The standard library logger is
// redirected into it until the returned func is called.
func Init(resFolder string, verbose bool) (*zap.SugaredLogger, func(), error) {
	if err := os.MkdirAll(resFolder, 0755); err != nil {
		return nil, nil, err
	}
	fileLevel := zapcore.InfoLevel
	if verbose {
		fileLevel = zapcore.DebugLevel
	}
	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEnc := zap.NewDevelopmentEncoderConfig()
	consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(resFolder, "log.txt"),
		MaxSize:    100,
		MaxBackups: 3,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(fileEnc), zapcore.AddSync(logFile), fileLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stderr), zapcore.InfoLevel),
	)
	logger := zap.New(core)
	restore := zap.RedirectStdLog(logger)
	return logger.Sugar(), func() {
		logger.Sync()
		restore()
		logFile.Close()
	}, nil
}
