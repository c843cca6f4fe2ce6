// Package sink implements the snapshot sink collaborator from
// spec.md section 6: durable storage for downloaded post-trigger
// captures, addressed by an opaque id.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/tomrford/scopelink/wire"
)

// Meta is everything about a capture except its sample data: small
// enough that load_meta can list every saved capture without reading
// sample bytes off disk.
type Meta struct {
	ID          string             `cbor:"id"`
	Name        string             `cbor:"name"`
	DevicePath  string             `cbor:"device_path"`
	CreatedUnix int64              `cbor:"created_unix"`
	NumChannels int                `cbor:"num_channels"`
	Header      wire.SnapshotHeader `cbor:"header"`
}

// Record is a full capture: its metadata plus the sample-major
// buffer produced by the downloader.
type Record struct {
	Meta    Meta
	Samples []wire.FrameSample
}

// FileSink persists each capture as a pair of CBOR files under dir:
// <id>.meta.cbor and <id>.samples.cbor, so listing captures never
// requires reading the (potentially large) sample files.
type FileSink struct {
	dir string

	mu  sync.Mutex
	seq int
}

func Open(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) metaPath(id string) string    { return filepath.Join(s.dir, id+".meta.cbor") }
func (s *FileSink) samplesPath(id string) string { return filepath.Join(s.dir, id+".samples.cbor") }

func (s *FileSink) nextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.Itoa(s.seq)
}

// Persist assigns an id, stamps CreatedUnix, and writes both files.
func (s *FileSink) Persist(meta Meta, samples []wire.FrameSample) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("sink: persist: %w", err)
	}
	meta.ID = s.nextID()
	meta.CreatedUnix = time.Now().Unix()

	metaBytes, err := cbor.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("sink: encode meta: %w", err)
	}
	sampleBytes, err := cbor.Marshal(samples)
	if err != nil {
		return "", fmt.Errorf("sink: encode samples: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.ID), metaBytes, 0o644); err != nil {
		return "", fmt.Errorf("sink: write meta: %w", err)
	}
	if err := os.WriteFile(s.samplesPath(meta.ID), sampleBytes, 0o644); err != nil {
		return "", fmt.Errorf("sink: write samples: %w", err)
	}
	return meta.ID, nil
}

// LoadMeta returns the metadata of every saved capture.
func (s *FileSink) LoadMeta() ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("sink: load meta: %w", err)
	}
	var out []Meta
	for _, e := range entries {
		name := e.Name()
		const suffix = ".meta.cbor"
		if e.IsDir() || len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var m Meta
		if err := cbor.Unmarshal(data, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadSamples reads the sample buffer for id.
func (s *FileSink) LoadSamples(id string) ([]wire.FrameSample, error) {
	data, err := os.ReadFile(s.samplesPath(id))
	if err != nil {
		return nil, fmt.Errorf("sink: load samples %s: %w", id, err)
	}
	var samples []wire.FrameSample
	if err := cbor.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("sink: decode samples %s: %w", id, err)
	}
	return samples, nil
}

// Delete removes both files for id. Missing files are not an error.
func (s *FileSink) Delete(id string) error {
	if err := os.Remove(s.metaPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(s.samplesPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Rename updates the Name field of id's metadata in place.
func (s *FileSink) Rename(id, name string) error {
	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		return fmt.Errorf("sink: rename %s: %w", id, err)
	}
	var m Meta
	if err := cbor.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("sink: rename %s: %w", id, err)
	}
	m.Name = name
	out, err := cbor.Marshal(m)
	if err != nil {
		return fmt.Errorf("sink: rename %s: %w", id, err)
	}
	return os.WriteFile(s.metaPath(id), out, 0o644)
}
