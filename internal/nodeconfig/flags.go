package nodeconfig

import "gopkg.in/urfave/cli.v1"

// Flags mirrors the teacher's utils flag tables: one cli.Flag value per
// operator-facing knob, registered on the root command in cmd/snapcoind.
var (
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	NodePathFlag = cli.StringFlag{
		Name:  "node-path",
		Usage: "Data directory for the node's log and cache files",
	}
	NodePortFlag = cli.IntFlag{
		Name:  "node-port",
		Usage: "P2P listening port",
	}
	APIPortFlag = cli.IntFlag{
		Name:  "api-port",
		Usage: "Read-only query API listening port",
	}
	PeersFlag = cli.StringFlag{
		Name:  "peers",
		Usage: "Comma-separated list of seed peer addresses (host:port)",
	}
	ReservedIPsFlag = cli.StringFlag{
		Name:  "reserved-ips",
		Usage: "Comma-separated list of IPs exempt from autopeer/reserved-network checks",
	}
	NoAPIFlag = cli.BoolFlag{
		Name:  "no-api",
		Usage: "Disable the read-only query API",
	}
	NoIBDFlag = cli.BoolFlag{
		Name:  "no-ibd",
		Usage: "Disable initial block download on startup",
	}
	NoAutoPeerFlag = cli.BoolFlag{
		Name:  "no-auto-peer",
		Usage: "Disable the background auto-peer discovery loop",
	}
	HeadlessFlag = cli.BoolFlag{
		Name:  "headless",
		Usage: "Suppress the interactive terminal dashboard",
	}
	CreateGenesisFlag = cli.BoolFlag{
		Name:  "create-genesis",
		Usage: "Allow starting without --peers, on the locally mined genesis block",
	}
	FullMemoryFlag = cli.BoolFlag{
		Name:  "full-memory",
		Usage: "Run the PoW engine in full (memoized) mode instead of light mode",
	}
)

// Flags is the full flag table registered on the root cli.App.
var Flags = []cli.Flag{
	ConfigFileFlag,
	NodePathFlag,
	NodePortFlag,
	APIPortFlag,
	PeersFlag,
	ReservedIPsFlag,
	NoAPIFlag,
	NoIBDFlag,
	NoAutoPeerFlag,
	HeadlessFlag,
	CreateGenesisFlag,
	FullMemoryFlag,
}
