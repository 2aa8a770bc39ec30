// Package record holds the per-cycle result of probing one device: either
// an ErrorRecord or a StatsRecord, in the document shape the collection API
// accepts.
package record

import "encoding/json"

const (
	ErrorsEndpoint = "api/farms/errors/"
	StatsEndpoint  = "api/farms/stats/"
)

// Record is the decoded outcome of one probe. The concrete type is fixed at
// decode time; consumers switch on it and never re-inspect the reply.
type Record interface {
	Worker() string
	Endpoint() string
	sealed()
}

// ErrorRecord reports a device that answered with an RPC error or could
// not be probed at all.
type ErrorRecord struct {
	WorkerID string `json:"worker_id"`
	Detail   string `json:"error"`
}

func (r *ErrorRecord) Worker() string { return r.WorkerID }
func (*ErrorRecord) Endpoint() string { return ErrorsEndpoint }
func (*ErrorRecord) sealed() {}

// StatsRecord carries the mining statistics of one device. Device-reported
// values keep the device's own formatting and are emitted as JSON strings
// ("62.0", not 62), the document type the collection API has always
// received. Uptime is the only JSON number.
type StatsRecord struct {
	WorkerID         string      `json:"worker_id"`
	Uptime           int64       `json:"uptime"`
	TotalHashrate    json.Number `json:"total_hashrate,string"`
	TotalAltHashrate json.Number `json:"total_alt_hashrate,string"`
	Shares           json.Number `json:"shares,string"`
	RejectedShares   json.Number `json:"rejected_shares,string"`
	GPUs             []GPUStat   `json:"gpu_stats"`
}

func (r *StatsRecord) Worker() string { return r.WorkerID }
func (*StatsRecord) Endpoint() string { return StatsEndpoint }
func (*StatsRecord) sealed() {}

// GPUStat is one GPU's slice of a StatsRecord, in device-reported order.
type GPUStat struct {
	Hashrate    json.Number `json:"hashrate,string"`
	AltHashrate json.Number `json:"alt_hashrate,string"`
	Temperature json.Number `json:"temperature,string"`
	FanSpeed    json.Number `json:"fan_speed,string"`
}
