package logger

import (
    "os"

    "github.com/getsentry/sentry-go"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

var lg *zap.Logger

func init() {
    // 默认 info 级别，显式 Init 前也可用
    lg = build("info", "")
}

// Init 初始化全局日志；sentryDSN 非空时错误级别同步上报
func Init(level, sentryDSN string) error {
    if sentryDSN != "" {
        if err := sentry.Init(sentry.ClientOptions{Dsn: sentryDSN}); err != nil {
            return err
        }
    }
    lg = build(level, sentryDSN)
    return nil
}

func build(level, sentryDSN string) *zap.Logger {
    lvl, err := zapcore.ParseLevel(level)
    if err != nil {
        lvl = zapcore.InfoLevel
    }
    encCfg := zap.NewProductionEncoderConfig()
    encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
    core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), lvl)
    opts := []zap.Option{zap.AddCallerSkip(1)}
    if sentryDSN != "" {
        opts = append(opts, zap.Hooks(func(e zapcore.Entry) error {
            if e.Level >= zapcore.ErrorLevel {
                sentry.CaptureMessage(e.Message)
            }
            return nil
        }))
    }
    return zap.New(core, opts...)
}

func Debug(msg string, fields ...zap.Field) { lg.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { lg.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { lg.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { lg.Error(msg, fields...) }

// Sync 刷新缓冲（进程退出前调用）
func Sync() { _ = lg.Sync() }
