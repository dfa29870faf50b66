package casrdzv

import (
	"errors"
	"fmt"
)

// The three failure kinds surfaced by casrdzv. Match with errors.Is; the
// concrete types below carry the details.
var (
	ErrConfiguration = errors.New("casrdzv: invalid configuration")
	ErrConnection    = errors.New("casrdzv: store connection failed")
	ErrStateCorrupt  = errors.New("casrdzv: state is corrupt")
)

// ConfigError reports an invalid option. It is raised at construction or
// bootstrap time and never retried.
type ConfigError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("casrdzv: invalid %s: %s: %v", e.Field, e.Msg, e.Err)
	}
	return fmt.Sprintf("casrdzv: invalid %s: %s", e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() []error {
	errs := []error{ErrConfiguration}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ConnectionError wraps any failure reaching or operating the shared store.
type ConnectionError struct {
	Op  string
	Key string
	Err error
}

func (e *ConnectionError) Error() string {
	switch {
	case e.Key != "":
		return fmt.Sprintf("casrdzv: store %s %q failed: %v", e.Op, e.Key, e.Err)
	default:
		return fmt.Sprintf("casrdzv: store %s failed: %v", e.Op, e.Err)
	}
}

func (e *ConnectionError) Unwrap() []error {
	errs := []error{ErrConnection}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StateError reports a stored value that did not originate from this codec.
// Retrying rereads the same value, so callers should not.
type StateError struct {
	Key string
	Err error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("casrdzv: state at %q is corrupt: %v", e.Key, e.Err)
}

func (e *StateError) Unwrap() []error {
	errs := []error{ErrStateCorrupt}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// WrapStoreError maps a failure returned by a store client into a
// *ConnectionError. nil stays nil; errors that already carry one of the three
// kinds pass through unchanged.
func WrapStoreError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrConfiguration) || errors.Is(err, ErrStateCorrupt) {
		return err
	}
	// context deadlines land here too: an expired read timeout is a
	// connection failure like any other.
	return &ConnectionError{Op: op, Key: key, Err: err}
}
