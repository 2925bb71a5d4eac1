package logger

// CronLogger 把 robfig/cron 的日志接口接到 zap 上
type CronLogger struct {
	l *Logger
}

// Cron 返回 cron 使用的日志适配器
func (l *Logger) Cron() CronLogger {
	return CronLogger{l: l}
}

// Info cron 的调度日志较多，降为 debug
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.sugar.Debugw(msg, keysAndValues...)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
