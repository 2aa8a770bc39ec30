package metrics

import "time"

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

type Config struct {
	// Address is the listen address; empty disables the server.
	Address string
}

func (c Config) Enabled() bool {
	return c.Address != ""
}
