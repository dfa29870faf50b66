// Package zerolog adapts a zerolog.Logger to casrdzv.Logger.
package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/casrdzv"
)

var _ casrdzv.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

// New tags every event with component=casrdzv.
func New(l zerolog.Logger) Logger {
	return Logger{L: l.With().Str("component", "casrdzv").Logger()}
}

func (z Logger) Debug(msg string, f casrdzv.Fields) { emit(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f casrdzv.Fields)  { emit(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f casrdzv.Fields)  { emit(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f casrdzv.Fields) { emit(z.L.Error(), msg, f) }

// emit tolerates the nil event zerolog returns for disabled levels.
func emit(e *zerolog.Event, msg string, f casrdzv.Fields) {
	if e == nil {
		return
	}
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.Err(err)
			continue
		}
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}
