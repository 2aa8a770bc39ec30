package metrics

import "codeberg.org/mutker/minerdriver/internal/errors"

const (
	ErrServe = errors.ErrorCode("metrics_serve_failed")
)

func init() {
	errors.Register(map[errors.ErrorCode]string{
		ErrServe: "Metrics server failed",
	})
}
