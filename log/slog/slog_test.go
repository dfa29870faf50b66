package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/casrdzv"
)

func TestLoggerOrdersFields(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}

	l.Debug("hidden", casrdzv.Fields{"a": 1})
	l.Info("seeded", casrdzv.Fields{"z": 1, "key": "rendezvous.job", "a": true})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry logged at info level: %q", out)
	}
	if !strings.Contains(out, `msg=seeded a=true key=rendezvous.job z=1`) {
		t.Fatalf("unexpected output %q", out)
	}
}
