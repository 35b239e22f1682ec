package nodeconfig

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"
)

func TestSplitCSVIgnoresEmptyEntries(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitCSV("a,,b"))
	require.Nil(t, splitCSV(""))
}

func TestLoadFileDecodesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapcoin.toml")
	require.NoError(t, os.WriteFile(path, []byte("NodePort = 40000\nSeedPeers = [\"10.0.0.1:30333\"]\n"), 0644))

	cfg := Default()
	require.NoError(t, LoadFile(path, &cfg))
	require.Equal(t, 40000, cfg.NodePort)
	require.Equal(t, []string{"10.0.0.1:30333"}, cfg.SeedPeers)
}

func TestLoadFileRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapcoin.toml")
	require.NoError(t, os.WriteFile(path, []byte("NotAField = 1\n"), 0644))

	cfg := Default()
	require.Error(t, LoadFile(path, &cfg))
}

func TestApplyFlagsOnlyOverridesExplicitlySetFlags(t *testing.T) {
	app := cli.NewApp()
	app.Flags = Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int(NodePortFlag.Name, 0, "")
	require.NoError(t, fs.Set(NodePortFlag.Name, "50000"))
	ctx := cli.NewContext(app, fs, nil)

	cfg := Default()
	ApplyFlags(ctx, &cfg)
	require.Equal(t, 50000, cfg.NodePort)
	require.Equal(t, Default().APIPort, cfg.APIPort)
}
