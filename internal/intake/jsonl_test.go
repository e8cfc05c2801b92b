package intake

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		side    types.Side
		wantErr bool
	}{
		{"long", `{"id":"a","symbol":"btcusdt","side":"LONG","confidence":0.8,"entry_price":"116000"}`, types.SideLong, false},
		{"exchange spelling", `{"id":"b","symbol":"ETHUSDT","side":"Sell","confidence":0.5}`, types.SideShort, false},
		{"unknown side", `{"id":"c","symbol":"ETHUSDT","side":"FLAT"}`, "", true},
		{"bad json", `{"id":`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Decode([]byte(tt.line))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.side, sig.Side)
			assert.Equal(t, strings.ToUpper(sig.Symbol), sig.Symbol)
		})
	}
}

func TestDecodeKeepsDecimals(t *testing.T) {
	sig, err := Decode([]byte(`{"symbol":"BTCUSDT","side":"LONG","entry_price":"116000.5","stop_loss":"113000","staged_exit":true}`))
	require.NoError(t, err)
	assert.NotEmpty(t, sig.ID)
	assert.Equal(t, "116000.5", sig.EntryPriceHint.String())
	assert.Equal(t, "113000", sig.StopLoss.String())
	assert.Nil(t, sig.TakeProfit)
	assert.True(t, sig.StagedExit)
}

func TestStream(t *testing.T) {
	input := strings.Join([]string{
		`# replayed signals`,
		`{"id":"a","symbol":"BTCUSDT","side":"LONG"}`,
		``,
		`not json`,
		`{"id":"b","symbol":"BTCUSDT","side":"SHORT"}`,
	}, "\n")

	out := make(chan *types.TradingSignal, 4)
	r := NewReader(zerolog.Nop())
	require.NoError(t, r.Stream(context.Background(), strings.NewReader(input), out))
	close(out)

	var ids []string
	for sig := range out {
		ids = append(ids, sig.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, 1, r.Skipped())
}

func TestStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan *types.TradingSignal)
	err := NewReader(zerolog.Nop()).Stream(ctx, strings.NewReader(`{"id":"a","symbol":"BTCUSDT","side":"LONG"}`), out)
	assert.ErrorIs(t, err, context.Canceled)
}
