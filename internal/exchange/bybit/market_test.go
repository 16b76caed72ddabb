package bybit

import (
	"testing"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKlineResponse_OldestFirst(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		RetMsg:  "OK",
		Result: map[string]interface{}{
			"symbol":   "BTCUSDT",
			"category": "spot",
			"list": [][]string{
				{"1700000060000", "101", "102", "100", "101.5", "3", "304.5"},
				{"1700000000000", "100", "101", "99", "101", "2", "201"},
			},
		},
	}

	klines, err := parseKlineResponse(resp)
	require.NoError(t, err)
	require.Len(t, klines, 2)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), klines[0].StartTime)
	assert.Equal(t, "101.5", klines[1].Close)
	assert.Equal(t, "201", klines[0].Turnover)
}

func TestParseKlineResponse_Errors(t *testing.T) {
	_, err := parseKlineResponse(&bybit_api.ServerResponse{RetCode: ErrCodeRateLimitExceeded, RetMsg: "too many visits"})
	var bybitErr *BybitError
	require.ErrorAs(t, err, &bybitErr)
	assert.Equal(t, 429, bybitErr.HTTPStatus())
	assert.True(t, IsRetryableError(err))

	_, err = parseKlineResponse(&bybit_api.ServerResponse{Result: map[string]interface{}{"list": [][]string{{"1"}}}})
	assert.Error(t, err)

	_, err = parseKlineResponse("nope")
	assert.Error(t, err)
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("15m")
	require.NoError(t, err)
	assert.Equal(t, Interval15m, iv)

	_, err = ParseInterval("7m")
	assert.Error(t, err)
}
