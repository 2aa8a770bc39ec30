package decoder_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"codeberg.org/mutker/minerdriver/internal/decoder"
	"codeberg.org/mutker/minerdriver/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioA = `{"error":null,"result":["9.3 - ETH",3600,"125.5;10;1","62.0;63.5","off;off","off;off","55;70;56;71"]}`

func decodeStats(t *testing.T, raw string) *record.StatsRecord {
	t.Helper()
	rec := decoder.Decode("rig-1", []byte(raw), nil)
	stats, ok := rec.(*record.StatsRecord)
	require.True(t, ok, "expected StatsRecord, got %#v", rec)
	return stats
}

func decodeError(t *testing.T, raw string) *record.ErrorRecord {
	t.Helper()
	rec := decoder.Decode("rig-1", []byte(raw), nil)
	errRec, ok := rec.(*record.ErrorRecord)
	require.True(t, ok, "expected ErrorRecord, got %#v", rec)
	return errRec
}

func TestDecodeStats(t *testing.T) {
	stats := decodeStats(t, scenarioA)

	assert.Equal(t, "rig-1", stats.WorkerID)
	assert.Equal(t, int64(3600), stats.Uptime)
	assert.Equal(t, json.Number("125.5"), stats.TotalHashrate)
	assert.Equal(t, json.Number("0"), stats.TotalAltHashrate)
	assert.Equal(t, json.Number("10"), stats.Shares)
	assert.Equal(t, json.Number("1"), stats.RejectedShares)
	assert.Equal(t, []record.GPUStat{
		{Hashrate: "62.0", AltHashrate: "0", Temperature: "55", FanSpeed: "70"},
		{Hashrate: "63.5", AltHashrate: "0", Temperature: "56", FanSpeed: "71"},
	}, stats.GPUs)
	assert.Equal(t, record.StatsEndpoint, stats.Endpoint())
}

func TestDecodeStatsDocument(t *testing.T) {
	stats := decodeStats(t, scenarioA)

	body, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"worker_id": "rig-1",
		"uptime": 3600,
		"total_hashrate": "125.5",
		"total_alt_hashrate": "0",
		"shares": "10",
		"rejected_shares": "1",
		"gpu_stats": [
			{"hashrate": "62.0", "alt_hashrate": "0", "temperature": "55", "fan_speed": "70"},
			{"hashrate": "63.5", "alt_hashrate": "0", "temperature": "56", "fan_speed": "71"}
		]
	}`, string(body))
}

func TestDecodeStringFields(t *testing.T) {
	stats := decodeStats(t, `{"id":0,"error":null,"result":["10.0 - ETH","42","90.1;7;0","45.0;45.1","3.2;2;0","1.6;1.6","60;40;61;41","eu1.pool:4444","0;0;0;0"]}`)

	assert.Equal(t, int64(42), stats.Uptime)
	assert.Equal(t, json.Number("3.2"), stats.TotalAltHashrate)
	require.Len(t, stats.GPUs, 2)
	assert.Equal(t, json.Number("1.6"), stats.GPUs[1].AltHashrate)
	assert.Equal(t, json.Number("41"), stats.GPUs[1].FanSpeed)
}

func TestDecodeGPUCountFollowsHashrates(t *testing.T) {
	for n := 1; n <= 8; n++ {
		rates, alts, health := "", "", ""
		for i := 0; i < n; i++ {
			if i > 0 {
				rates += ";"
				alts += ";"
				health += ";"
			}
			rates += fmt.Sprintf("%d.5", 20+i)
			alts += "off"
			health += fmt.Sprintf("%d;%d", 50+i, 30+i)
		}
		raw := fmt.Sprintf(`{"error":null,"result":["v",1,"1;1;0","%s","off;off","%s","%s"]}`, rates, alts, health)

		stats := decodeStats(t, raw)
		require.Len(t, stats.GPUs, n)
		for i, gpu := range stats.GPUs {
			assert.Equal(t, json.Number(fmt.Sprintf("%d.5", 20+i)), gpu.Hashrate)
			assert.Equal(t, json.Number(fmt.Sprint(50+i)), gpu.Temperature)
			assert.Equal(t, json.Number(fmt.Sprint(30+i)), gpu.FanSpeed)
		}
	}
}

func TestDecodeUptimeClamp(t *testing.T) {
	tests := []struct {
		uptime string
		want   int64
	}{
		{"-5", 0},
		{`"-5"`, 0},
		{"0", 0},
		{"120", 120},
		{`"120"`, 120},
	}

	for _, tt := range tests {
		t.Run(tt.uptime, func(t *testing.T) {
			raw := fmt.Sprintf(`{"error":null,"result":["v",%s,"1;1;0","1","0;0;0","0","50;50"]}`, tt.uptime)
			assert.Equal(t, tt.want, decodeStats(t, raw).Uptime)
		})
	}
}

func TestDecodeOffSentinel(t *testing.T) {
	stats := decodeStats(t, `{"error":null,"result":["v",1,"off;3;0","off;12.5","off;0;0","off;off","50;60;51;61"]}`)

	assert.Equal(t, json.Number("0"), stats.TotalHashrate)
	assert.Equal(t, json.Number("0"), stats.TotalAltHashrate)
	assert.Equal(t, json.Number("0"), stats.GPUs[0].Hashrate)
	assert.Equal(t, json.Number("12.5"), stats.GPUs[1].Hashrate)
	assert.Equal(t, json.Number("0"), stats.GPUs[0].AltHashrate)
	assert.Equal(t, json.Number("0"), stats.GPUs[1].AltHashrate)
}

func TestDecodeSingleOffAppliesToAllGPUs(t *testing.T) {
	stats := decodeStats(t, `{"error":null,"result":["v",1,"3;3;0","1;1;1","0;0;0","off","50;60;51;61;52;62"]}`)

	require.Len(t, stats.GPUs, 3)
	for _, gpu := range stats.GPUs {
		assert.Equal(t, json.Number("0"), gpu.AltHashrate)
	}
}

func TestDecodeDeviceError(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `{"error":"invalid method","result":["v",1,"1;1;0","1","0;0;0","0","50;50"]}`, "invalid method"},
		{"object", `{"error":{"code":-1,"message":"busy"},"result":null}`, `{"code":-1,"message":"busy"}`},
		{"malformed result ignored", `{"error":"auth required","result":"garbage"}`, "auth required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errRec := decodeError(t, tt.raw)
			assert.Equal(t, tt.want, errRec.Detail)
			assert.Equal(t, "rig-1", errRec.WorkerID)
			assert.Equal(t, record.ErrorsEndpoint, errRec.Endpoint())
		})
	}
}

func TestDecodeEmptyErrorValues(t *testing.T) {
	for _, v := range []string{`null`, `""`, `false`, `0`, `[]`, `{}`} {
		t.Run(v, func(t *testing.T) {
			decodeStats(t, `{"error":`+v+`,"result":["v",1,"1;1;0","1","0;0;0","0","50;50"]}`)
		})
	}

	decodeStats(t, `{"result":["v",1,"1;1;0","1","0;0;0","0","50;50"]}`)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `miner busy`},
		{"truncated json", `{"error":null,"result":["v",1`},
		{"no result", `{"error":null}`},
		{"result not array", `{"error":null,"result":"x"}`},
		{"short result", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0"]}`},
		{"non-scalar field", `{"error":null,"result":["v",[1],"1;1;0","1","0;0;0","0","50;50"]}`},
		{"uptime not integer", `{"error":null,"result":["v","soon","1;1;0","1","0;0;0","0","50;50"]}`},
		{"triple with one separator", `{"error":null,"result":["v",1,"125.5;10","1","0;0;0","0","50;50"]}`},
		{"triple with three separators", `{"error":null,"result":["v",1,"125.5;10;1;0","1","0;0;0","0","50;50"]}`},
		{"non-numeric shares", `{"error":null,"result":["v",1,"125.5;ten;1","1","0;0;0","0","50;50"]}`},
		{"non-numeric gpu hashrate", `{"error":null,"result":["v",1,"1;1;0","fast","0;0;0","0","50;50"]}`},
		{"empty gpu hashrates", `{"error":null,"result":["v",1,"1;1;0","","0;0;0","0",""]}`},
		{"alt totals too long", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0;0","0","50;50"]}`},
		{"alt rates count mismatch", `{"error":null,"result":["v",1,"1;1;0","1;2","0;0;0","0;0;0","50;50;50;50"]}`},
		{"health too short", `{"error":null,"result":["v",1,"1;1;0","1;2","0;0;0","0;0","50;50;51"]}`},
		{"health too long", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0","50;50;51;51"]}`},
		{"non-numeric temperature", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0","hot;50"]}`},
		{"signed temperature", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0","+55;50"]}`},
		{"temperature without integer part", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0",".5;50"]}`},
		{"temperature without fraction", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0","5.;50"]}`},
		{"NaN temperature", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0","NaN;50"]}`},
		{"infinite temperature", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0","Inf;50"]}`},
		{"underscored temperature", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0","1_0;50"]}`},
		{"hex temperature", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0","0x10;50"]}`},
		{"NaN hashrate", `{"error":null,"result":["v",1,"NaN;1;0","1","0;0;0","0","50;50"]}`},
		{"signed gpu hashrate", `{"error":null,"result":["v",1,"1;1;0","+1","0;0;0","0","50;50"]}`},
		{"infinite fan speed", `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0","50;-Inf"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errRec := decodeError(t, tt.raw)
			assert.NotEmpty(t, errRec.Detail)
			assert.Equal(t, "rig-1", errRec.WorkerID)
		})
	}
}

// Every value the decoder accepts must survive encoding; otherwise the sample
// would be lost between decoding and delivery.
func TestDecodeStatsAlwaysEncodes(t *testing.T) {
	for _, temp := range []string{"55", "-5", "0", "55.25", "1e2", "-0.5", "5E-1"} {
		t.Run(temp, func(t *testing.T) {
			stats := decodeStats(t, `{"error":null,"result":["v",1,"1;1;0","1","0;0;0","0","`+temp+`;50"]}`)
			assert.Equal(t, json.Number(temp), stats.GPUs[0].Temperature)

			_, err := json.Marshal(stats)
			assert.NoError(t, err)
		})
	}
}

func TestDecodeTransportFailure(t *testing.T) {
	fetchErr := fmt.Errorf("dial tcp 10.0.0.7:3333: connect: connection refused")

	rec := decoder.Decode("rig-7", []byte(scenarioA), fetchErr)

	errRec, ok := rec.(*record.ErrorRecord)
	require.True(t, ok)
	assert.Equal(t, "rig-7", errRec.WorkerID)
	assert.Equal(t, fetchErr.Error(), errRec.Detail)
}

func TestDecodeIdempotent(t *testing.T) {
	inputs := []string{
		scenarioA,
		`{"error":"busy","result":null}`,
		`{"error":null,"result":["v",1,"125.5;10","1","0;0;0","0","50;50"]}`,
	}

	for _, raw := range inputs {
		first := decoder.Decode("rig-1", []byte(raw), nil)
		second := decoder.Decode("rig-1", []byte(raw), nil)
		assert.Equal(t, first, second)
	}
}
