package zmux

import "github.com/sirupsen/logrus"

type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
}

var _ Logger = (*logrus.Entry)(nil)

// NewLogger 默认 logger，基于 logrus 标准输出
func NewLogger() Logger {
	return logrus.StandardLogger().WithField("component", "zmux")
}
