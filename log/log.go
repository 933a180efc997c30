// Copyright 2025 Cygnus Wealth
// This file is part of the evm-access-core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

// Package log provides the structured, key-value logger used throughout
// this repository: log.Info("msg", "k1", v1, "k2", v2, ...).
package log

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-isatty"
)

// Level is a log severity, ordered from most to least severe.
type Level int

const (
	LevelCrit Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelCrit:
		return "CRIT"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

var levelColor = map[Level]*color.Color{
	LevelCrit:  color.New(color.FgRed, color.Bold),
	LevelError: color.New(color.FgRed),
	LevelWarn:  color.New(color.FgYellow),
	LevelInfo:  color.New(color.FgGreen),
	LevelDebug: color.New(color.FgCyan),
	LevelTrace: color.New(color.FgMagenta),
}

// Record is one emitted log line.
type Record struct {
	Time  time.Time
	Level Level
	Msg   string
	Ctx   []interface{}
	Call  stack.Call
}

// Handler consumes Records. The default root handler is a colorized
// console StreamHandler on stderr; SetHandler replaces it (e.g. with a
// MultiHandler that adds a RotatingFileHandler).
type Handler interface {
	Log(r *Record) error
}

// Logger is the interface every component logs through.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	New(ctx ...interface{}) Logger
}

type logger struct {
	ctx     []interface{}
	handler func() Handler
}

var (
	rootMu      sync.RWMutex
	rootHandler Handler = StreamHandler(os.Stderr, TerminalFormat(isatty.IsTerminal(os.Stderr.Fd())))
	minLevel            = LevelInfo
)

// SetHandler replaces the root handler (e.g. to add a rotating file sink).
func SetHandler(h Handler) {
	rootMu.Lock()
	defer rootMu.Unlock()
	rootHandler = h
}

// SetLevel sets the minimum level the root handler emits.
func SetLevel(l Level) {
	rootMu.Lock()
	defer rootMu.Unlock()
	minLevel = l
}

func currentHandler() (Handler, Level) {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return rootHandler, minLevel
}

// Root returns the base Logger with no bound context.
func Root() Logger {
	return &logger{handler: func() Handler { h, _ := currentHandler(); return h }}
}

// New returns a Logger with ctx permanently bound, e.g.
// log.New("component", "rpcchain", "chain", chainID).
func New(ctx ...interface{}) Logger {
	return Root().New(ctx...)
}

func (l *logger) New(ctx ...interface{}) Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &logger{ctx: merged, handler: l.handler}
}

func (l *logger) write(level Level, msg string, ctx ...interface{}) {
	_, min := currentHandler()
	if level > min {
		return
	}
	all := make([]interface{}, 0, len(l.ctx)+len(ctx))
	all = append(all, l.ctx...)
	all = append(all, ctx...)
	r := &Record{
		Time:  time.Now(),
		Level: level,
		Msg:   msg,
		Ctx:   all,
		Call:  stack.Caller(2),
	}
	h := l.handler()
	if h != nil {
		_ = h.Log(r)
	}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LevelDebug, msg, ctx...) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LevelInfo, msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LevelWarn, msg, ctx...) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LevelError, msg, ctx...) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(LevelCrit, msg, ctx...) }

// Package-level convenience functions logging through Root().
func Trace(msg string, ctx ...interface{}) { Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { Root().Crit(msg, ctx...) }

// fmtCtx renders the key-value context pairs as "k=v k2=v2 ...".
func fmtCtx(ctx []interface{}) string {
	out := ""
	for i := 0; i+1 < len(ctx); i += 2 {
		k := fmt.Sprint(ctx[i])
		v := ctx[i+1]
		out += fmt.Sprintf(" %s=%v", k, formatValue(v))
	}
	if len(ctx)%2 == 1 {
		out += fmt.Sprintf(" %v=MISSING", ctx[len(ctx)-1])
	}
	return out
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
