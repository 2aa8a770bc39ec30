// Package device talks to mining devices over their TCP status protocol:
// one connection per probe, one fixed JSON-RPC request, one reply.
package device

import (
	"context"
	"net"
	"time"

	"codeberg.org/mutker/minerdriver/internal/errors"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultMaxReplyBytes = 64 << 10
)

// statRequest is the only request ever sent to a device.
var statRequest = []byte(`{"id":0,"jsonrpc":"2.0","method":"miner_getstat1"}`)

// Fetcher retrieves the raw status reply of one device.
type Fetcher interface {
	Fetch(ctx context.Context, d Descriptor) ([]byte, error)
}

type Config struct {
	// Timeout bounds the whole exchange: connect, write and read.
	Timeout       time.Duration
	MaxReplyBytes int
}

func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		MaxReplyBytes: DefaultMaxReplyBytes,
	}
}

type Client struct {
	cfg    Config
	dialer net.Dialer
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxReplyBytes <= 0 {
		cfg.MaxReplyBytes = DefaultMaxReplyBytes
	}
	return &Client{cfg: cfg}
}

// Fetch opens a connection to d, sends the status request and returns the
// raw reply. The connection is closed before Fetch returns.
func (c *Client) Fetch(ctx context.Context, d Descriptor) ([]byte, error) {
	errFactory := errors.New()
	addr := d.Addr()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errFactory.Wrap(ErrConnect, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, errFactory.Wrap(ErrConnect, err)
	}

	if _, err := conn.Write(statRequest); err != nil {
		return nil, errFactory.Wrap(ErrWrite, err)
	}

	return newReplyReader(conn, c.cfg.MaxReplyBytes).ReadReply()
}
