package casrdzv

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// OrNopLogger returns l, or NopLogger when l is nil.
func OrNopLogger(l Logger) Logger { return coalesce[Logger](l, NopLogger{}) }

// OrNopHooks returns h, or NopHooks when h is nil.
func OrNopHooks(h Hooks) Hooks { return coalesce[Hooks](h, NopHooks{}) }
