// Package nodelog is a small leveled, structured logger in the shape of the
// teacher's own `log` package (referenced throughout probe/handler.go,
// crypto/probe/probe.go and rlp/decode_type.go as
// "github.com/probeum/go-probeum/log", backed by github.com/go-stack/stack
// for caller frames but never retrieved as source — built here in the same
// idiom). Every subsystem logs through this package; nothing writes to
// stdout directly.
package nodelog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-isatty"
)

// Lvl is a log severity level, ordered from least to most verbose.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "?????"
	}
}

var lvlColor = map[Lvl]color.Attribute{
	LvlCrit:  color.FgMagenta,
	LvlError: color.FgRed,
	LvlWarn:  color.FgYellow,
	LvlInfo:  color.FgGreen,
	LvlDebug: color.FgCyan,
	LvlTrace: color.FgWhite,
}

// Record is a single log event, plain enough to be rendered either to a
// color terminal or appended as a line to the node's info.log.
type Record struct {
	Time time.Time
	Lvl  Lvl
	Msg  string
	Ctx  []interface{}
	Call stack.Call
}

// Handler consumes Records. StreamHandler and FileHandler below are the two
// handlers snap-coin actually wires up.
type Handler interface {
	Log(r *Record) error
}

// Logger is the interface every subsystem receives; New attaches additional
// key-value context carried on every subsequent call.
type Logger interface {
	New(ctx ...interface{}) Logger
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

type logger struct {
	ctx []interface{}
	h   *holder
}

type holder struct {
	mu sync.Mutex
	h  Handler
}

func (h *holder) Log(r *Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.h != nil {
		_ = h.h.Log(r)
	}
}

func (h *holder) SetHandler(handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.h = handler
}

var root = &logger{h: &holder{h: StreamHandler(os.Stderr, TerminalFormat())}}

// Root returns the package-wide root logger.
func Root() Logger { return root }

// New returns a child of Root with ctx attached.
func New(ctx ...interface{}) Logger { return root.New(ctx...) }

// SetHandler replaces the root logger's handler (used to fan out to the
// per-node info.log file in addition to, or instead of, the terminal).
func SetHandler(h Handler) { root.h.SetHandler(h) }

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{ctx: append(append([]interface{}{}, l.ctx...), ctx...), h: l.h}
}

func (l *logger) write(lvl Lvl, msg string, ctx []interface{}) {
	r := &Record{
		Time: time.Now(),
		Lvl:  lvl,
		Msg:  msg,
		Ctx:  append(append([]interface{}{}, l.ctx...), ctx...),
		Call: stack.Caller(2),
	}
	l.h.Log(r)
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(LvlCrit, msg, ctx) }

// Format renders a Record to bytes.
type Format interface {
	Format(r *Record) []byte
}

type formatFunc func(*Record) []byte

func (f formatFunc) Format(r *Record) []byte { return f(r) }

// TerminalFormat renders human-readable, optionally colorized lines,
// mirroring the teacher's real terminal log handler (color.Attribute
// selection keyed by level, gated on isatty).
func TerminalFormat() Format {
	useColor := isatty.IsTerminal(os.Stderr.Fd())
	return formatFunc(func(r *Record) []byte {
		ts := r.Time.Format("2006-01-02T15:04:05.000Z07:00")
		lvl := r.Lvl.String()
		if useColor {
			lvl = color.New(lvlColor[r.Lvl]).Sprint(padLvl(r.Lvl.String()))
		} else {
			lvl = padLvl(lvl)
		}
		line := fmt.Sprintf("%s %s %-40s", ts, lvl, r.Msg)
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			line += fmt.Sprintf(" %v=%v", r.Ctx[i], r.Ctx[i+1])
		}
		return append([]byte(line), '\n')
	})
}

// PlainFormat renders newline-terminated, uncolored lines suitable for an
// append-only log file (§6 Persistence).
func PlainFormat() Format {
	return formatFunc(func(r *Record) []byte {
		ts := r.Time.UTC().Format(time.RFC3339Nano)
		line := fmt.Sprintf("%s [%s] %s", ts, r.Lvl.String(), r.Msg)
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			line += fmt.Sprintf(" %v=%v", r.Ctx[i], r.Ctx[i+1])
		}
		return append([]byte(line), '\n')
	})
}

func padLvl(s string) string {
	for len(s) < 5 {
		s += " "
	}
	return s
}

type streamHandler struct {
	w   io.Writer
	fmt Format
	mu  sync.Mutex
}

// StreamHandler writes formatted records to w, serializing concurrent
// writers (every peer session and the coordinator log concurrently).
func StreamHandler(w io.Writer, fmtr Format) Handler {
	return &streamHandler{w: w, fmt: fmtr}
}

func (s *streamHandler) Log(r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(s.fmt.Format(r))
	return err
}

// MultiHandler fans a record out to several handlers, used to log to both
// the terminal and the node's info.log file simultaneously.
func MultiHandler(hs ...Handler) Handler {
	return formatHandlerFunc(func(r *Record) error {
		var firstErr error
		for _, h := range hs {
			if err := h.Log(r); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
}

type formatHandlerFunc func(*Record) error

func (f formatHandlerFunc) Log(r *Record) error { return f(r) }

// FileHandler opens (or creates) path for append and returns a handler
// writing PlainFormat records to it, matching §6's
// "<node_path>/info.log (append-only UTF-8, newline-terminated records)".
func FileHandler(path string) (Handler, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return StreamHandler(f, PlainFormat()), f, nil
}
