package forwarder

import (
	"net/http"

	"codeberg.org/mutker/minerdriver/internal/errors"
	"codeberg.org/mutker/minerdriver/internal/logger"
)

const (
	ErrEncode   = errors.ErrorCode("forward_encode_failed")
	ErrRequest  = errors.ErrorCode("forward_request_failed")
	ErrDelivery = errors.ErrorCode("forward_delivery_failed")
)

func init() {
	errors.Register(map[errors.ErrorCode]string{
		ErrEncode:   "Failed to encode record",
		ErrRequest:  "Failed to reach collection API",
		ErrDelivery: "Collection API rejected record",
	})
}

// deliveryFailure describes a non-2xx answer from the collection API.
type deliveryFailure struct {
	Status   int
	Reason   string
	Response string
	Headers  map[string]string
}

func (d deliveryFailure) String() string {
	return d.Reason
}

// logFields attaches the rejected exchange to a log line.
func (d deliveryFailure) logFields(e *logger.LogEvent) *logger.LogEvent {
	e.Int("status", d.Status).
		Str("reason", http.StatusText(d.Status)).
		Str("response", d.Response).
		Interface("headers", d.Headers)
	return e
}
