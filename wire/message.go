package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/snap-coin/snap-coin-node/common"
)

// CommandTag identifies the body layout of a Message, per the table in
// spec.md §4.4.
type CommandTag uint8

const (
	TagPing                    CommandTag = 1
	TagPong                    CommandTag = 2
	TagGetBlockHashes          CommandTag = 3
	TagGetBlockHashesResponse  CommandTag = 4
	TagGetBlock                CommandTag = 5
	TagGetBlockResponse        CommandTag = 6
	TagAnnounceBlock           CommandTag = 7
	TagAnnounceTx              CommandTag = 8
	TagGetPeers                CommandTag = 9
	TagGetPeersResponse        CommandTag = 10
)

// HasReply reports whether a command of this tag expects a correlated
// response, per the Reply column of the command table.
func (t CommandTag) HasReply() bool {
	switch t {
	case TagPing, TagGetBlockHashes, TagGetBlock, TagGetPeers:
		return true
	default:
		return false
	}
}

func (t CommandTag) String() string {
	switch t {
	case TagPing:
		return "Ping"
	case TagPong:
		return "Pong"
	case TagGetBlockHashes:
		return "GetBlockHashes"
	case TagGetBlockHashesResponse:
		return "GetBlockHashesResponse"
	case TagGetBlock:
		return "GetBlock"
	case TagGetBlockResponse:
		return "GetBlockResponse"
	case TagAnnounceBlock:
		return "AnnounceBlock"
	case TagAnnounceTx:
		return "AnnounceTx"
	case TagGetPeers:
		return "GetPeers"
	case TagGetPeersResponse:
		return "GetPeersResponse"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Command is the decoded payload of one Message; Tag selects which of the
// body fields below are set.
type Command struct {
	Tag CommandTag

	PingHeight uint64 // Ping / Pong

	HashRangeStart uint64 // GetBlockHashes
	HashRangeEnd   uint64

	Hashes []common.Hash // GetBlockHashesResponse

	BlockHash common.Hash // GetBlock

	Block *Block // GetBlockResponse (absent sentinel == nil) / AnnounceBlock body

	Tx *Transaction // AnnounceTx

	Peers []PeerAddr // GetPeersResponse
}

// PeerAddr is the wire form of a socket address exchanged by GetPeers.
type PeerAddr struct {
	IP   net.IP
	Port uint16
}

func (p PeerAddr) String() string {
	return net.JoinHostPort(p.IP.String(), fmt.Sprintf("%d", p.Port))
}

func encodePeerAddr(w *Writer, p PeerAddr) {
	ip4 := p.IP.To4()
	if ip4 != nil {
		w.WriteUint8(4)
		w.WriteFixed(ip4)
	} else {
		ip16 := p.IP.To16()
		w.WriteUint8(16)
		w.WriteFixed(ip16)
	}
	var portBytes [2]byte
	binary.BigEndian.PutUint16(portBytes[:], p.Port)
	w.WriteFixed(portBytes[:])
}

func decodePeerAddr(r *Reader) PeerAddr {
	n := r.ReadUint8()
	ip := r.ReadFixed(int(n))
	port := r.ReadFixed(2)
	return PeerAddr{IP: net.IP(ip), Port: binary.BigEndian.Uint16(port)}
}

// EncodeCommand serializes a Command body (not including the message_id or
// tag header, written separately by EncodeMessage).
func EncodeCommand(w *Writer, c *Command) {
	switch c.Tag {
	case TagPing, TagPong:
		w.WriteUint64(c.PingHeight)
	case TagGetBlockHashes:
		w.WriteUint64(c.HashRangeStart)
		w.WriteUint64(c.HashRangeEnd)
	case TagGetBlockHashesResponse:
		w.WriteUint32(uint32(len(c.Hashes)))
		for _, h := range c.Hashes {
			w.WriteHash(h)
		}
	case TagGetBlock:
		w.WriteHash(c.BlockHash)
	case TagGetBlockResponse:
		if c.Block == nil {
			w.WriteUint8(0)
		} else {
			w.WriteUint8(1)
			c.Block.Encode(w)
		}
	case TagAnnounceBlock:
		c.Block.Encode(w)
	case TagAnnounceTx:
		c.Tx.Encode(w)
	case TagGetPeers:
		// no body
	case TagGetPeersResponse:
		w.WriteUint32(uint32(len(c.Peers)))
		for _, p := range c.Peers {
			encodePeerAddr(w, p)
		}
	default:
		panic(fmt.Sprintf("wire: unknown command tag %d", c.Tag))
	}
}

// DecodeCommand reads a Command body for the given tag.
func DecodeCommand(r *Reader, tag CommandTag) (*Command, error) {
	c := &Command{Tag: tag}
	switch tag {
	case TagPing, TagPong:
		c.PingHeight = r.ReadUint64()
	case TagGetBlockHashes:
		c.HashRangeStart = r.ReadUint64()
		c.HashRangeEnd = r.ReadUint64()
	case TagGetBlockHashesResponse:
		n := r.ReadUint32()
		if n > common.MaxHashBatch {
			return nil, fmt.Errorf("%w: hash batch %d exceeds max", common.ErrMalformedFrame, n)
		}
		c.Hashes = make([]common.Hash, 0, n)
		for i := uint32(0); i < n; i++ {
			c.Hashes = append(c.Hashes, r.ReadHash())
		}
	case TagGetBlock:
		c.BlockHash = r.ReadHash()
	case TagGetBlockResponse:
		present := r.ReadUint8()
		if present == 1 {
			b := DecodeBlock(r)
			c.Block = &b
		}
	case TagAnnounceBlock:
		b := DecodeBlock(r)
		c.Block = &b
	case TagAnnounceTx:
		tx := DecodeTransaction(r)
		c.Tx = &tx
	case TagGetPeers:
		// no body
	case TagGetPeersResponse:
		n := r.ReadUint32()
		if n > common.PeerExchangeLimit*4 {
			return nil, fmt.Errorf("%w: peer list %d implausibly large", common.ErrMalformedFrame, n)
		}
		c.Peers = make([]PeerAddr, 0, n)
		for i := uint32(0); i < n; i++ {
			c.Peers = append(c.Peers, decodePeerAddr(r))
		}
	default:
		return nil, fmt.Errorf("%w: unknown command tag %d", common.ErrMalformedFrame, tag)
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return c, nil
}

// Message is one framed protocol unit: `message_id : uint64_be ||
// command_tag : uint8 || command_body` (§4.4). MessageID is assigned by the
// originator and is session-unique; a response carries the MessageID of the
// request it answers.
type Message struct {
	ID      uint64
	Command *Command
}

// EncodeFrame serializes a full frame: `uint32_be length || payload`.
func EncodeFrame(m *Message) []byte {
	w := NewWriter()
	w.WriteUint64(m.ID)
	w.WriteUint8(uint8(m.Command.Tag))
	EncodeCommand(w, m.Command)
	payload := w.Bytes()

	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out
}

// ReadFrame reads one length-prefixed frame from r and decodes it into a
// Message. It returns common.ErrFrameTooLarge if the declared length exceeds
// MaxFrameLength, and common.ErrMalformedFrame on any structural problem.
func ReadFrame(r io.Reader) (*Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxFrameLength {
		return nil, common.ErrFrameTooLarge
	}
	if length < 9 { // message_id(8) + tag(1) minimum
		return nil, common.ErrMalformedFrame
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	rr := NewReader(payload)
	id := rr.ReadUint64()
	tag := CommandTag(rr.ReadUint8())
	if rr.Err() != nil {
		return nil, rr.Err()
	}
	cmd, err := DecodeCommand(rr, tag)
	if err != nil {
		return nil, err
	}
	return &Message{ID: id, Command: cmd}, nil
}

// WriteFrame writes m to w as a single length-prefixed frame.
func WriteFrame(w io.Writer, m *Message) error {
	_, err := w.Write(EncodeFrame(m))
	return err
}
