package dnsdisco

import (
	"context"
	"errors"
	"testing"

	"github.com/snap-coin/snap-coin-node/internal/nodelog"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	lastName, lastValue string
	err                 error
}

func (f *fakeProvider) PublishTXT(ctx context.Context, name, value string) error {
	f.lastName, f.lastValue = name, value
	return f.err
}

func TestPublishJoinsAddrsIntoTXTValue(t *testing.T) {
	fp := &fakeProvider{}
	p := New(fp, "peers.snap-coin.example", nodelog.Root())
	p.Publish(context.Background(), []string{"10.0.0.1:30333", "10.0.0.2:30333"})
	require.Equal(t, "peers.snap-coin.example", fp.lastName)
	require.Equal(t, "10.0.0.1:30333,10.0.0.2:30333", fp.lastValue)
}

func TestPublishDoesNotPanicOnProviderError(t *testing.T) {
	fp := &fakeProvider{err: errors.New("throttled")}
	p := New(fp, "peers.snap-coin.example", nodelog.Root())
	p.Publish(context.Background(), nil)
}

func TestNewProviderRejectsUnknownKind(t *testing.T) {
	_, err := NewProvider(context.Background(), "bogus", "zone", "token")
	require.Error(t, err)
}
