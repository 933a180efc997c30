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

package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-colorable"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Format renders a Record to bytes.
type Format func(r *Record) []byte

// TerminalFormat renders level-colorized, human-readable lines when color
// is true (an interactive terminal), or plain text otherwise.
func TerminalFormat(color bool) Format {
	return func(r *Record) []byte {
		ts := r.Time.Format("2006-01-02T15:04:05.000Z07:00")
		loc := fmt.Sprintf("%s:%s", filepath.Base(fmt.Sprintf("%s", r.Call)), fmt.Sprintf("%d", r.Call))
		line := fmt.Sprintf("%s [%-5s] %s%s (%s)\n", ts, r.Level, r.Msg, fmtCtx(r.Ctx), loc)
		if !color {
			return []byte(line)
		}
		c, ok := levelColor[r.Level]
		if !ok {
			return []byte(line)
		}
		return []byte(c.Sprint(line))
	}
}

// JSONFormat renders a Record as a single-line JSON-ish object without
// pulling in encoding/json for a handful of scalar fields.
func JSONFormat() Format {
	return func(r *Record) []byte {
		s := fmt.Sprintf(`{"ts":"%s","level":"%s","msg":%q`, r.Time.Format("2006-01-02T15:04:05.000Z07:00"), r.Level, r.Msg)
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			s += fmt.Sprintf(`,"%v":%q`, r.Ctx[i], formatValue(r.Ctx[i+1]))
		}
		s += "}\n"
		return []byte(s)
	}
}

// streamHandler writes formatted records to an io.Writer, serialized by
// a mutex since multiple goroutines across components log concurrently.
type streamHandler struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
}

func (h *streamHandler) Log(r *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(h.format(r))
	return err
}

// StreamHandler wraps w in a Handler using format. When w is an *os.File
// it is first made terminal-escape-aware via go-colorable.
func StreamHandler(w io.Writer, format Format) Handler {
	if f, ok := fileOf(w); ok {
		w = colorable.NewColorable(f)
	}
	return &streamHandler{w: w, format: format}
}

// fileOf reports whether w is an *os.File, the only writer type
// colorable.NewColorable accepts.
func fileOf(w io.Writer) (*os.File, bool) {
	f, ok := w.(*os.File)
	return f, ok
}

// RotatingFileHandler writes records to path, rotated by lumberjack once
// it exceeds maxSizeMB, keeping maxBackups old files.
func RotatingFileHandler(path string, maxSizeMB, maxBackups int) Handler {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	return &streamHandler{w: lj, format: JSONFormat()}
}

// MultiHandler fans a Record out to every handler in hs.
func MultiHandler(hs ...Handler) Handler {
	return multiHandler(hs)
}

type multiHandler []Handler

func (m multiHandler) Log(r *Record) error {
	var firstErr error
	for _, h := range m {
		if err := h.Log(r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
