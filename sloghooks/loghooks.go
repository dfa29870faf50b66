// Package sloghooks reports casrdzv hook events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/casrdzv"
)

type Options struct {
	// Sampling to avoid floods under contention; 0/1 = log all.
	ConflictEvery   uint64
	StoreErrorEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix. Run ids often carry
	// job names, so keys are redacted unless Redact returns them as is.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	conflictCtr   atomic.Uint64
	storeErrorCtr atomic.Uint64
}

var _ casrdzv.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StateConflict(key string) {
	if h.l == nil || !sample(h.opts.ConflictEvery, &h.conflictCtr) {
		return
	}
	h.l.Debug("casrdzv.state_conflict",
		"key", h.redact(key))
}

func (h *Hooks) StateCorrupt(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("casrdzv.state_corrupt",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) StoreError(op, key string, err error) {
	if h.l == nil || !sample(h.opts.StoreErrorEvery, &h.storeErrorCtr) {
		return
	}
	h.l.Warn("casrdzv.store_error",
		"op", op,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) ForeignToken(key, backend string) {
	if h.l == nil {
		return
	}
	h.l.Info("casrdzv.foreign_token",
		"key", h.redact(key),
		"backend", backend)
}

func (h *Hooks) HostFallback(endpoint string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("casrdzv.host_fallback",
		"endpoint", endpoint,
		"err", err)
}
