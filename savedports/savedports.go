// Package savedports implements the saved ports store from spec.md
// section 6: a small, persistent key-value record of ports the user
// has connected to before, remembered by path with their last serial
// configuration.
package savedports

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/tomrford/scopelink/transport"
)

// Entry is one remembered port.
type Entry struct {
	Path         string                `cbor:"path"`
	LastConfig   *transport.SerialConfig `cbor:"last_config,omitempty"`
}

// Store is the saved ports collaborator.
type Store interface {
	List() []Entry
	Upsert(entries []Entry)
	Remove(paths []string)
}

// FileStore persists entries to a single CBOR file, keyed by path.
type FileStore struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry
}

// Open loads path; a missing or corrupt file starts from an empty
// store rather than failing, since losing remembered ports is
// recoverable (the user just re-selects a port) and not worth
// surfacing as an error to callers.
func Open(path string) *FileStore {
	fs := &FileStore{path: path, entries: map[string]Entry{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return fs
	}
	var list []Entry
	if err := cbor.Unmarshal(data, &list); err != nil {
		return fs
	}
	for _, e := range list {
		fs.entries[e.Path] = e
	}
	return fs
}

func (fs *FileStore) List() []Entry {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]Entry, 0, len(fs.entries))
	for _, e := range fs.entries {
		out = append(out, e)
	}
	return out
}

func (fs *FileStore) Upsert(entries []Entry) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, e := range entries {
		fs.entries[e.Path] = e
	}
	fs.save()
}

func (fs *FileStore) Remove(paths []string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, p := range paths {
		delete(fs.entries, p)
	}
	fs.save()
}

// save must be called with mu held.
func (fs *FileStore) save() {
	list := make([]Entry, 0, len(fs.entries))
	for _, e := range fs.entries {
		list = append(list, e)
	}
	data, err := cbor.Marshal(list)
	if err != nil {
		return
	}
	_ = os.WriteFile(fs.path, data, 0o644)
}
