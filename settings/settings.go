// Package settings implements the Settings collaborator from the
// runtime's external interfaces: a small YAML-backed schema with
// defaults and one-shot recovery from a corrupted file on disk.
package settings

import "github.com/tomrford/scopelink/transport"

// Parity mirrors transport.Parity at the settings boundary so this
// package doesn't force callers through the transport package just to
// read a config value.
type Parity = transport.Parity

// SerialConfig is the default port configuration new connections use
// unless overridden.
type SerialConfig struct {
	Baud        int    `yaml:"baud"`
	DataBits    int    `yaml:"data_bits"`
	Parity      Parity `yaml:"parity"`
	StopBits    int    `yaml:"stop_bits"`
	ReadTimeoutMs int  `yaml:"read_timeout_ms"`
}

// SnapshotGCDays is either a number of days or the sentinel "never".
type SnapshotGCDays struct {
	Never bool
	Days  int
}

func (d SnapshotGCDays) MarshalYAML() (interface{}, error) {
	if d.Never {
		return "never", nil
	}
	return d.Days, nil
}

func (d *SnapshotGCDays) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		if s != "never" {
			return &MalformedError{Field: "snapshot_gc_days", Reason: "string value must be \"never\""}
		}
		*d = SnapshotGCDays{Never: true}
		return nil
	}
	var n int
	if err := unmarshal(&n); err != nil {
		return &MalformedError{Field: "snapshot_gc_days", Reason: "must be a number or \"never\""}
	}
	*d = SnapshotGCDays{Days: n}
	return nil
}

// Settings is the full schema named in spec.md section 6.
type Settings struct {
	DefaultSerialCfg   SerialConfig   `yaml:"default_serial_cfg"`
	StatePollingHz     float64        `yaml:"state_polling_hz"`
	FramePollingHz     float64        `yaml:"frame_polling_hz"`
	FrameTimeoutMs     int            `yaml:"frame_timeout_ms"`
	CrcRetryAttempts   int            `yaml:"crc_retry_attempts"`
	LiveBufferDuration int            `yaml:"live_buffer_duration_s"`
	SnapshotAutoSave   bool           `yaml:"snapshot_auto_save"`
	SnapshotGCDays     SnapshotGCDays `yaml:"snapshot_gc_days"`
}

// Defaults returns the built-in baseline settings, used both as the
// zero-config starting point and as the recovery target when a stored
// file is malformed.
func Defaults() Settings {
	return Settings{
		DefaultSerialCfg: SerialConfig{
			Baud:          115200,
			DataBits:      8,
			Parity:        transport.ParityNone,
			StopBits:      1,
			ReadTimeoutMs: 200,
		},
		StatePollingHz:     5,
		FramePollingHz:     20,
		FrameTimeoutMs:     300,
		CrcRetryAttempts:   3,
		LiveBufferDuration: 10,
		SnapshotAutoSave:   true,
		SnapshotGCDays:     SnapshotGCDays{Days: 30},
	}
}

// MalformedError reports a settings file that failed to parse or
// validate.
type MalformedError struct {
	Field  string
	Reason string
}

func (e *MalformedError) Error() string {
	return "settings: " + e.Field + ": " + e.Reason
}

// Store is the Settings collaborator from spec.md section 6.
type Store interface {
	Get() Settings
	Set(Settings) error
	// Recovered reports, and clears, the one-shot "settings were
	// recovered from defaults" flag.
	Recovered() bool
}
