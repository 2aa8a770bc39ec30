// Package decoder turns a raw miner_getstat1 reply into a record.Record.
//
// The reply carries no schema. Its result array is positional:
//
//	[0] miner version
//	[1] uptime
//	[2] "hashrate;shares;rejected"
//	[3] per-GPU hashrates, ';'-separated
//	[4] "alt hashrate;alt shares;alt rejected"
//	[5] per-GPU alt hashrates, ';'-separated
//	[6] "temp;fan" pairs, one pair per GPU
//
// Every position is validated before a StatsRecord is built. A reply that
// fails validation becomes an ErrorRecord; a partially filled StatsRecord is
// never produced.
package decoder

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"codeberg.org/mutker/minerdriver/internal/errors"
	"codeberg.org/mutker/minerdriver/internal/record"
)

const (
	offSentinel = "off"
	separator   = ";"

	idxUptime      = 1
	idxMain        = 2
	idxHashrates   = 3
	idxAlt         = 4
	idxAltRates    = 5
	idxHealth      = 6
	minResultItems = idxHealth + 1
)

var zero = json.Number("0")

type reply struct {
	Error  json.RawMessage `json:"error"`
	Result json.RawMessage `json:"result"`
}

// Decode builds the record for one probe of the device labelled identity.
// fetchErr, when set, is the transport failure of the probe and raw is
// ignored.
func Decode(identity string, raw []byte, fetchErr error) record.Record {
	if fetchErr != nil {
		return &record.ErrorRecord{WorkerID: identity, Detail: fetchErr.Error()}
	}

	stats, err := decodeReply(identity, raw)
	if err != nil {
		return &record.ErrorRecord{WorkerID: identity, Detail: err.Error()}
	}
	return stats
}

// rpcError is returned by decodeReply when the device reported an error;
// its text is the device's own error value.
type rpcError struct {
	detail string
}

func (e rpcError) Error() string { return e.detail }

func decodeReply(identity string, raw []byte) (*record.StatsRecord, error) {
	errFactory := errors.New()

	var r reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, errFactory.Wrap(ErrMalformedJSON, err)
	}

	if !isEmpty(r.Error) {
		return nil, rpcError{detail: errorDetail(r.Error)}
	}

	var result []json.RawMessage
	if isEmpty(r.Result) {
		return nil, errFactory.New(ErrMissingResult)
	}
	if err := json.Unmarshal(r.Result, &result); err != nil {
		return nil, errFactory.Wrap(ErrMissingResult, err)
	}
	if len(result) < minResultItems {
		return nil, errFactory.WithData(ErrShortResult, len(result))
	}

	fields := make([]string, len(result))
	for i, item := range result {
		s, err := scalar(item)
		if err != nil {
			return nil, errFactory.WithData(ErrFieldType, fieldError{Index: i, Field: "value", Value: string(item)})
		}
		fields[i] = s
	}

	uptime, err := strconv.ParseInt(strings.TrimSpace(fields[idxUptime]), 10, 64)
	if err != nil {
		return nil, errFactory.WithData(ErrFieldNotNumber, fieldError{Index: idxUptime, Field: "uptime", Value: fields[idxUptime]})
	}

	totals, err := splitExact(fields, idxMain, 3)
	if err != nil {
		return nil, err
	}
	totalHashrate, err := hashrate(totals[0], idxMain, "total hashrate")
	if err != nil {
		return nil, err
	}
	shares, err := number(totals[1], idxMain, "shares")
	if err != nil {
		return nil, err
	}
	rejected, err := number(totals[2], idxMain, "rejected shares")
	if err != nil {
		return nil, err
	}

	rates, err := hashrates(split(fields[idxHashrates]), idxHashrates)
	if err != nil {
		return nil, err
	}
	gpuCount := len(rates)

	alt := split(fields[idxAlt])
	if len(alt) > 3 {
		return nil, errFactory.WithData(ErrFieldArity, fieldError{Index: idxAlt, Field: "alt totals", Value: fields[idxAlt]})
	}
	altTotals, err := hashrates(alt, idxAlt)
	if err != nil {
		return nil, err
	}

	altRates, err := altHashrates(fields[idxAltRates], gpuCount)
	if err != nil {
		return nil, err
	}

	health := split(fields[idxHealth])
	if len(health) != 2*gpuCount {
		return nil, errFactory.WithData(ErrHealthMismatch, fieldError{Index: idxHealth, Field: "health", Value: fields[idxHealth]})
	}

	gpus := make([]record.GPUStat, gpuCount)
	for i := range gpus {
		temp, err := number(health[2*i], idxHealth, "temperature")
		if err != nil {
			return nil, err
		}
		fan, err := number(health[2*i+1], idxHealth, "fan speed")
		if err != nil {
			return nil, err
		}
		gpus[i] = record.GPUStat{
			Hashrate:    rates[i],
			AltHashrate: altRates[i],
			Temperature: temp,
			FanSpeed:    fan,
		}
	}

	return &record.StatsRecord{
		WorkerID:         identity,
		Uptime:           max(uptime, 0),
		TotalHashrate:    totalHashrate,
		TotalAltHashrate: altTotals[0],
		Shares:           shares,
		RejectedShares:   rejected,
		GPUs:             gpus,
	}, nil
}

// isEmpty reports whether an error value counts as "no error": absent,
// null, false, zero, or an empty string, array or object.
func isEmpty(v json.RawMessage) bool {
	switch string(bytes.TrimSpace(v)) {
	case "", "null", "false", "0", `""`, "[]", "{}":
		return true
	}
	return false
}

func errorDetail(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v))
}

// scalar accepts a JSON string or number and returns its text.
func scalar(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func split(field string) []string {
	parts := strings.Split(field, separator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func splitExact(fields []string, idx, n int) ([]string, error) {
	parts := split(fields[idx])
	if len(parts) != n {
		return nil, errors.New().WithData(ErrFieldArity, fieldError{Index: idx, Field: "triple", Value: fields[idx]})
	}
	return parts, nil
}

// number accepts only JSON number syntax, so every value that reaches a
// StatsRecord can be encoded. "+5", ".5", "5.", "NaN", "Inf" and "1_0"
// are rejected.
func number(s string, idx int, field string) (json.Number, error) {
	if !isJSONNumber(s) {
		return "", errors.New().WithData(ErrFieldNotNumber, fieldError{Index: idx, Field: field, Value: s})
	}
	return json.Number(s), nil
}

func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

func hashrate(s string, idx int, field string) (json.Number, error) {
	if strings.EqualFold(s, offSentinel) {
		return zero, nil
	}
	return number(s, idx, field)
}

func hashrates(parts []string, idx int) ([]json.Number, error) {
	out := make([]json.Number, len(parts))
	for i, p := range parts {
		n, err := hashrate(p, idx, "hashrate")
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// altHashrates decodes the per-GPU alt hashrates. A lone "off" stands for
// every GPU; otherwise there must be one entry per GPU.
func altHashrates(field string, gpuCount int) ([]json.Number, error) {
	parts := split(field)
	if len(parts) == 1 && strings.EqualFold(parts[0], offSentinel) {
		out := make([]json.Number, gpuCount)
		for i := range out {
			out[i] = zero
		}
		return out, nil
	}
	if len(parts) != gpuCount {
		return nil, errors.New().WithData(ErrFieldArity, fieldError{Index: idxAltRates, Field: "alt hashrates", Value: field})
	}
	return hashrates(parts, idxAltRates)
}

func itoa(i int) string { return strconv.Itoa(i) }

func quote(s string) string { return strconv.Quote(s) }
