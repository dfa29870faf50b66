// Package logrus adapts a *logrus.Entry to casrdzv.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/casrdzv"
)

var _ casrdzv.Logger = Logger{}

// Logger logs through E. An error under the "err" key lands in logrus's
// error field.
type Logger struct{ E *logrus.Entry }

// New tags every entry with component=casrdzv.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "casrdzv")}
}

func (l Logger) Debug(msg string, f casrdzv.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f casrdzv.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f casrdzv.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f casrdzv.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f casrdzv.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
