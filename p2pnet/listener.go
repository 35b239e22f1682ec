package p2pnet

import (
	"context"
	"fmt"
	"net"

	"github.com/jackpal/go-nat-pmp"
	"github.com/huin/goupnp/dcps/internetgateway2"
	"github.com/snap-coin/snap-coin-node/internal/nodelog"
)

// Listener accepts inbound TCP connections on the configured node port and
// returns each from Accept as a raw net.Conn; the caller (cmd/snapcoind)
// wraps it into a PeerHandle and drives the handshake. Kept separate from
// PeerHandle so p2pnet stays usable as a pure dial+accept+frame layer.
type Listener struct {
	ln  net.Listener
	log nodelog.Logger
}

// Listen binds addr (":<port>") and attempts best-effort NAT traversal so
// the node is dialable from outside a home NAT, per SPEC_FULL.md's P2P
// listener supplement. NAT mapping failure is logged at Warn and never
// fails the listener itself — it is a reachability improvement, not a
// correctness requirement.
func Listen(addr string, log nodelog.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("p2pnet: listen %s: %w", addr, err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	go tryMapPort(port, log)
	return &Listener{ln: ln, log: log}, nil
}

func (l *Listener) Accept() (net.Conn, error) { return l.ln.Accept() }
func (l *Listener) Close() error              { return l.ln.Close() }
func (l *Listener) Addr() net.Addr            { return l.ln.Addr() }

// tryMapPort attempts NAT-PMP first (common on consumer routers), then
// falls back to UPnP/IGDv2, mirroring the dual-protocol approach observed
// in the pack's synnergy-network NewNATManager.
func tryMapPort(port int, log nodelog.Logger) {
	if mapNATPMP(port) {
		log.Info("nat-pmp port mapping established", "port", port)
		return
	}
	if mapUPnP(port) {
		log.Info("upnp port mapping established", "port", port)
		return
	}
	log.Warn("no NAT port mapping available; node may be unreachable from outside its local network", "port", port)
}

func mapNATPMP(port int) bool {
	gw := natpmp.NewClient(defaultGatewayIP())
	if gw == nil {
		return false
	}
	_, err := gw.AddPortMapping("tcp", port, port, 3600)
	return err == nil
}

func mapUPnP(port int) bool {
	clients, _, err := internetgateway2.NewWANIPConnection2Clients()
	if err != nil || len(clients) == 0 {
		clients1, _, err1 := internetgateway2.NewWANIPConnection1Clients()
		if err1 != nil || len(clients1) == 0 {
			return false
		}
		for _, c := range clients1 {
			if c.AddPortMapping("", uint16(port), "TCP", uint16(port), "", true, "snap-coin", 3600) == nil {
				return true
			}
		}
		return false
	}
	for _, c := range clients {
		if c.AddPortMapping("", uint16(port), "TCP", uint16(port), "", true, "snap-coin", 3600) == nil {
			return true
		}
	}
	return false
}

func defaultGatewayIP() net.IP {
	// NAT-PMP requires the router's LAN-facing address; the common home
	// router default is used here as a best-effort guess rather than
	// performing full route-table introspection (out of scope).
	return net.IPv4(192, 168, 1, 1)
}

// Dial connects to a remote peer and performs the session handshake.
func Dial(ctx context.Context, addr string, localHeight uint64, handler Handler, log nodelog.Logger) (*PeerHandle, uint64, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, 0, fmt.Errorf("p2pnet: dial %s: %w", addr, err)
	}
	p := NewPeerHandle(conn, true, handler, log)
	remoteHeight, err := p.Handshake(ctx, localHeight)
	if err != nil {
		return nil, 0, err
	}
	return p, remoteHeight, nil
}
