package logarchive

import (
	"context"
	"testing"
	"time"

	"github.com/snap-coin/snap-coin-node/internal/nodelog"
	"github.com/stretchr/testify/require"
)

func TestNewReturnsNoopArchiverWhenDisabled(t *testing.T) {
	a, err := New(Config{Enabled: false}, nodelog.Root())
	require.NoError(t, err)
	require.False(t, a.cfg.Enabled)
}

func TestRunReturnsImmediatelyWhenDisabled(t *testing.T) {
	a, err := New(Config{Enabled: false}, nodelog.Root())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		a.Run(context.Background(), "/nonexistent/info.log", time.Hour)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return immediately for a disabled archiver")
	}
}
