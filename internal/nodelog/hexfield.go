package nodelog

import "github.com/status-im/keycard-go/hexutils"

// HexField formats raw bytes (a hash, a digest, a public key) as a "0x"
// prefixed hex string for use as a structured log value, the same
// formatting probe/handler.go applies to hash fields before logging them.
func HexField(b []byte) string {
	return "0x" + hexutils.BytesToHex(b)
}
