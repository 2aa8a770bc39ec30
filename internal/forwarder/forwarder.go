// Package forwarder delivers decoded records to the collection API. Each
// record gets exactly one POST; failures are logged and dropped.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"codeberg.org/mutker/minerdriver/internal/errors"
	"codeberg.org/mutker/minerdriver/internal/logger"
	"codeberg.org/mutker/minerdriver/internal/metrics"
	"codeberg.org/mutker/minerdriver/internal/record"
)

const (
	DefaultTimeout = 800 * time.Millisecond

	// maxBodyLog bounds how much of a rejected response is read for logging.
	maxBodyLog = 4 << 10
)

// Sender delivers one record. Implementations never fail outward.
type Sender interface {
	Send(ctx context.Context, rec record.Record)
}

type Config struct {
	BaseURL    string
	Credential Credential
	Timeout    time.Duration
}

type Forwarder struct {
	baseURL    string
	credential Credential
	client     *http.Client
	log        logger.Logger
}

func New(cfg Config) *Forwarder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Forwarder{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		credential: cfg.Credential,
		client:     &http.Client{Timeout: timeout},
		log:        logger.Default(),
	}
}

// URL returns the full address of endpoint.
func (f *Forwarder) URL(endpoint string) string {
	return f.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// Send posts rec to the endpoint matching its variant. Every failure is
// logged and swallowed.
func (f *Forwarder) Send(ctx context.Context, rec record.Record) {
	endpoint := rec.Endpoint()

	err := f.post(ctx, endpoint, rec)
	if err == nil {
		metrics.ForwardsTotal.WithLabelValues(endpoint, "delivered").Inc()
		f.log.Debug().Str("worker_id", rec.Worker()).Str("endpoint", endpoint).Msg("Record delivered")
		return
	}

	var appErr errors.Error
	if !errors.As(err, &appErr) {
		appErr = errors.New().Wrap(errors.ErrInternal, err)
	}
	metrics.ForwardsTotal.WithLabelValues(endpoint, string(appErr.Code())).Inc()
	event := f.log.ErrorWithCode(appErr)
	if failure, ok := appErr.GetData().(deliveryFailure); ok {
		event = failure.logFields(event)
	}
	event.Str("worker_id", rec.Worker()).
		Str("endpoint", endpoint).
		Msg("Could not deliver record")
}

func (f *Forwarder) post(ctx context.Context, endpoint string, rec record.Record) error {
	errFactory := errors.New()

	body, err := json.Marshal(rec)
	if err != nil {
		return errFactory.Wrap(ErrEncode, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL(endpoint), bytes.NewReader(body))
	if err != nil {
		return errFactory.Wrap(ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", f.credential.Header())

	resp, err := f.client.Do(req)
	if err != nil {
		return errFactory.Wrap(ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyLog))
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyLog))
	return errFactory.WithData(ErrDelivery, deliveryFailure{
		Status:   resp.StatusCode,
		Reason:   resp.Status,
		Response: string(respBody),
		Headers:  f.loggedHeaders(req.Header),
	})
}

// loggedHeaders copies h with the credential redacted.
func (f *Forwarder) loggedHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name := range h {
		out[name] = h.Get(name)
	}
	if _, ok := out["Authorization"]; ok {
		out["Authorization"] = f.credential.Redacted()
	}
	return out
}
