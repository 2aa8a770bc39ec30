package config

import (
	"fmt"
	"net/url"
	"strings"

	"codeberg.org/mutker/minerdriver/internal/errors"
)

type fieldError struct {
	field  string
	value  interface{}
	reason string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s %s (got %v)", e.field, e.reason, e.value)
}

func (e *fieldError) Field() string      { return e.field }
func (e *fieldError) Value() interface{} { return e.value }
func (e *fieldError) Reason() string     { return e.reason }

// ValidationErrors is attached as data to invalid_configuration errors.
type ValidationErrors []ValidationError

func (v ValidationErrors) String() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the loaded configuration. The log level is checked first
// and reported with its own code.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	var errs ValidationErrors
	add := func(field string, value interface{}, reason string) {
		errs = append(errs, &fieldError{field: field, value: value, reason: reason})
	}

	if c.Database.Address == "" {
		add("database.address", c.Database.Address, "is required")
	} else if u, err := url.Parse(c.Database.Address); err != nil || u.Scheme == "" || u.Host == "" {
		add("database.address", c.Database.Address, "must be an absolute URL")
	}
	if c.Database.Token == "" {
		add("database.token", "", "is required")
	}

	if len(c.Miners) == 0 {
		add("miners", len(c.Miners), "must list at least one device")
	}
	seen := make(map[string]bool, len(c.Miners))
	for i, m := range c.Miners {
		if m.IP == "" {
			add(fmt.Sprintf("miners[%d].ip", i), m.IP, "is required")
		}
		if m.Port <= 0 || m.Port > 65535 {
			add(fmt.Sprintf("miners[%d].port", i), m.Port, "must be between 1 and 65535")
		}
		if m.Index == "" {
			add(fmt.Sprintf("miners[%d].index", i), m.Index, "is required")
		} else if seen[m.Index] {
			add(fmt.Sprintf("miners[%d].index", i), m.Index, "is not unique")
		}
		seen[m.Index] = true
	}

	if c.ProbingDelay <= 0 {
		add("probing_delay", c.ProbingDelay, "must be positive")
	}
	if c.SettleOffset < 0 || c.SettleOffset >= c.ProbingDelay {
		add("settle_offset", c.SettleOffset, "must be at least 0 and below probing_delay")
	}
	if c.DeviceTimeout <= 0 {
		add("device_timeout", c.DeviceTimeout, "must be positive")
	}
	if c.ForwardTimeoutMS <= 0 {
		add("forward_timeout_ms", c.ForwardTimeoutMS, "must be positive")
	}
	if c.MaxReplyBytes <= 0 {
		add("max_reply_bytes", c.MaxReplyBytes, "must be positive")
	}

	if len(errs) > 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, errs)
	}
	return nil
}
