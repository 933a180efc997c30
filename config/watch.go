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

package config

import (
	"github.com/fsnotify/fsnotify"
)

// Watcher re-parses path on every write event and publishes the result
// through an AtomicOptions, so running components pick up a new config on
// their next read without restarting.
type Watcher struct {
	path    string
	target  *AtomicOptions
	fsw     *fsnotify.Watcher
	onError func(error)
	stop    chan struct{}
}

// Watch starts watching path for changes, publishing reparsed Options into
// target. onError (optional) receives parse/watch errors; a malformed file
// leaves the last good Options in place.
func Watch(path string, target *AtomicOptions, onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, target: target, fsw: fsw, onError: onError, stop: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			opts, err := Load(w.path)
			if err != nil {
				logger.Warn("config reload failed, keeping previous options", "err", err)
				if w.onError != nil {
					w.onError(err)
				}
				continue
			}
			w.target.Set(opts)
			logger.Info("config reloaded", "path", w.path)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// Close stops the watch loop and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	return w.fsw.Close()
}
