package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/snap-coin/snap-coin-node/internal/nodelog"
	"github.com/stretchr/testify/require"
)

type fakeSampler struct{}

func (fakeSampler) Sample() map[string]float64 {
	return map[string]float64{"height": 42}
}

func TestRunIsNoopWhenDisabled(t *testing.T) {
	r := New(Config{Enabled: false}, fakeSampler{}, time.Millisecond, nodelog.Root())
	r.Run(context.Background()) // must return immediately
}

func TestRunWritesSampledPoints(t *testing.T) {
	var writes int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&writes, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	cfg := Config{
		Enabled:   true,
		Endpoint:  ts.URL,
		Database:  "snapcoin",
		Namespace: "snapcoin.",
	}
	r := New(cfg, fakeSampler{}, 10*time.Millisecond, nodelog.Root())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	require.GreaterOrEqual(t, atomic.LoadInt32(&writes), int32(1))
}
