package bootstrap

import (
	"strconv"
	"strings"
	"time"

	"github.com/unkn0wn-root/casrdzv"
)

const (
	// DefaultPort is used when the endpoint names no port.
	DefaultPort = 29500
	// DefaultReadTimeout is the read timeout in seconds.
	DefaultReadTimeout = 60
	// StoreTypeTCP is the only supported store type.
	StoreTypeTCP = "tcp"
)

// Config carries the recognized rendezvous options.
type Config struct {
	RunID string
	// Endpoint is host:port; empty means localhost:DefaultPort.
	Endpoint string
	// StoreType defaults to "tcp"; matching ignores case and surrounding space.
	StoreType string
	// ReadTimeout in seconds bounds every blocking store call. 0 => 60.
	ReadTimeout int
	// IsHost forces (true) or forbids (false) hosting the store. nil infers
	// it by matching the endpoint host against this machine.
	IsHost *bool
}

func (c Config) withDefaults() Config {
	c.StoreType = strings.ToLower(strings.TrimSpace(c.StoreType))
	if c.StoreType == "" {
		c.StoreType = StoreTypeTCP
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// Validate reports the first invalid option as a *casrdzv.ConfigError.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.RunID == "" {
		return &casrdzv.ConfigError{Field: "run_id", Msg: "the run id must be a non-empty string"}
	}
	if c.StoreType != StoreTypeTCP {
		return &casrdzv.ConfigError{Field: "store_type", Msg: "the store type must be 'tcp', got " + strconv.Quote(c.StoreType)}
	}
	if c.ReadTimeout <= 0 {
		return &casrdzv.ConfigError{Field: "read_timeout", Msg: "the read timeout must be a positive integer"}
	}
	if _, err := ParseEndpoint(c.Endpoint, DefaultPort); err != nil {
		return err
	}
	return nil
}

// Timeout returns the read timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.withDefaults().ReadTimeout) * time.Second
}

// ConfigFromParams builds a Config from string options as found in
// command-line key=value lists and environment variables. Recognized keys:
// store_type, read_timeout, is_host. Unknown keys are ignored. An explicit
// read_timeout of 0 is rejected rather than defaulted.
func ConfigFromParams(runID, endpoint string, params map[string]string) (Config, error) {
	cfg := Config{RunID: runID, Endpoint: endpoint, StoreType: params["store_type"]}

	if v, ok := params["read_timeout"]; ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, &casrdzv.ConfigError{Field: "read_timeout", Msg: "must be an integer", Err: err}
		}
		if n <= 0 {
			return Config{}, &casrdzv.ConfigError{Field: "read_timeout", Msg: "the read timeout must be a positive integer"}
		}
		cfg.ReadTimeout = n
	}

	if v, ok := params["is_host"]; ok && strings.TrimSpace(v) != "" {
		b, err := ParseBool(v)
		if err != nil {
			return Config{}, &casrdzv.ConfigError{Field: "is_host", Msg: "must be a boolean", Err: err}
		}
		cfg.IsHost = &b
	}
	return cfg, cfg.Validate()
}

// ParseBool accepts 1/true/t/yes/y and 0/false/f/no/n, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y":
		return true, nil
	case "0", "false", "f", "no", "n":
		return false, nil
	}
	return false, &strconv.NumError{Func: "ParseBool", Num: s, Err: strconv.ErrSyntax}
}
