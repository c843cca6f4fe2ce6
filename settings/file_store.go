package settings

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore persists Settings as YAML on disk. A missing file is
// treated as "use defaults"; a present but unparsable or invalid file
// is treated as corrupted: it is discarded in memory (never
// overwritten on disk until the next explicit Set) and the one-shot
// recovered flag is raised.
type FileStore struct {
	path string

	mu        sync.Mutex
	current   Settings
	recovered bool
}

// Open loads path, falling back to Defaults() if the file is missing,
// unreadable, or fails to parse or validate. The recovered flag is
// raised in every one of those cases except a missing file.
func Open(path string) *FileStore {
	fs := &FileStore{path: path, current: Defaults()}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			fs.recovered = true
		}
		return fs
	}

	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		fs.recovered = true
		return fs
	}
	if err := validate(loaded); err != nil {
		fs.recovered = true
		return fs
	}
	fs.current = loaded
	return fs
}

func validate(s Settings) error {
	if s.DefaultSerialCfg.Baud <= 0 {
		return &MalformedError{Field: "default_serial_cfg.baud", Reason: "must be positive"}
	}
	switch s.DefaultSerialCfg.DataBits {
	case 5, 6, 7, 8:
	default:
		return &MalformedError{Field: "default_serial_cfg.data_bits", Reason: "must be 5, 6, 7, or 8"}
	}
	switch s.DefaultSerialCfg.StopBits {
	case 1, 2:
	default:
		return &MalformedError{Field: "default_serial_cfg.stop_bits", Reason: "must be 1 or 2"}
	}
	if s.StatePollingHz <= 0 || s.FramePollingHz <= 0 {
		return &MalformedError{Field: "*_polling_hz", Reason: "must be positive"}
	}
	if s.CrcRetryAttempts < 0 {
		return &MalformedError{Field: "crc_retry_attempts", Reason: "must not be negative"}
	}
	if !s.SnapshotGCDays.Never && s.SnapshotGCDays.Days < 0 {
		return &MalformedError{Field: "snapshot_gc_days", Reason: "must not be negative"}
	}
	return nil
}

func (fs *FileStore) Get() Settings {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.current
}

// Set validates, persists to disk, and replaces the in-memory value.
func (fs *FileStore) Set(s Settings) error {
	if err := validate(s); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.WriteFile(fs.path, data, 0o644); err != nil {
		return err
	}
	fs.current = s
	return nil
}

// Recovered reports, and clears, the one-shot recovery flag.
func (fs *FileStore) Recovered() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r := fs.recovered
	fs.recovered = false
	return r
}
