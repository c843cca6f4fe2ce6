// Package session wraps one connected device's handle and cached
// DeviceInfo behind a typed method per protocol operation.
package session

import (
	"fmt"
	"time"

	"github.com/tomrford/scopelink/transport"
	"github.com/tomrford/scopelink/wire"
)

// Session owns a transport.Handle plus the DeviceInfo obtained at
// open. DeviceInfo never changes after open; a device that needs a
// different configuration is disconnected and reconnected.
type Session struct {
	handle  transport.Handle
	tr      *transport.Transport
	info    wire.DeviceInfo
	timeout time.Duration
}

// Open acquires handle, issues GET_INFO, and caches the result. If
// GET_INFO fails the handle is closed before the error is returned, so
// a failed open never leaks a handle.
func Open(handle transport.Handle, requestTimeout time.Duration) (*Session, error) {
	s := &Session{handle: handle, tr: transport.New(handle), timeout: requestTimeout}
	info, err := s.GetInfo()
	if err != nil {
		handle.Close()
		return nil, err
	}
	s.info = info
	return s, nil
}

// Info returns the DeviceInfo captured at Open.
func (s *Session) Info() wire.DeviceInfo { return s.info }

// Close releases the underlying handle.
func (s *Session) Close() error { return s.handle.Close() }

func (s *Session) deadline() time.Time {
	if s.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.timeout)
}

// request sends (typ, payload) and validates that the response TYPE
// matches typ, translating a mismatched or 0xFF response into the
// appropriate error.
func (s *Session) request(typ wire.MessageType, payload []byte) ([]byte, error) {
	gotType, gotPayload, err := s.tr.SendRequest(typ, payload, s.deadline())
	if err != nil {
		return nil, err
	}
	if gotType == wire.ErrorFrame {
		de, err := wire.DecodeErrorResponse(gotPayload)
		if err != nil {
			return nil, err
		}
		return nil, de
	}
	if gotType != typ {
		return nil, &wire.DecodeError{Op: typ, Reason: fmt.Sprintf("unexpected response type %s", gotType)}
	}
	return gotPayload, nil
}

func (s *Session) GetInfo() (wire.DeviceInfo, error) {
	payload, err := s.request(wire.GetInfo, nil)
	if err != nil {
		return wire.DeviceInfo{}, err
	}
	return wire.DecodeGetInfoResponse(payload)
}

func (s *Session) GetTiming() (wire.TimingConfig, error) {
	payload, err := s.request(wire.GetTiming, nil)
	if err != nil {
		return wire.TimingConfig{}, err
	}
	return wire.DecodeTimingResponse(payload, s.info.Endianness)
}

func (s *Session) SetTiming(cfg wire.TimingConfig) (wire.TimingConfig, error) {
	payload, err := s.request(wire.SetTiming, wire.EncodeSetTimingRequest(cfg, s.info.Endianness))
	if err != nil {
		return wire.TimingConfig{}, err
	}
	return wire.DecodeTimingResponse(payload, s.info.Endianness)
}

func (s *Session) GetState() (wire.DeviceState, error) {
	payload, err := s.request(wire.GetState, nil)
	if err != nil {
		return 0, err
	}
	return wire.DecodeStateResponse(payload)
}

func (s *Session) SetState(state wire.DeviceState) (wire.DeviceState, error) {
	payload, err := s.request(wire.SetState, wire.EncodeSetStateRequest(state))
	if err != nil {
		return 0, err
	}
	return wire.DecodeStateResponse(payload)
}

func (s *Session) Trigger() error {
	_, err := s.request(wire.Trigger, nil)
	return err
}

func (s *Session) GetFrame() (wire.FrameSample, error) {
	payload, err := s.request(wire.GetFrame, nil)
	if err != nil {
		return nil, err
	}
	return wire.DecodeFrameResponse(payload, int(s.info.NumChannels), s.info.Endianness)
}

func (s *Session) GetSnapshotHeader() (wire.SnapshotHeader, error) {
	payload, err := s.request(wire.GetSnapshotHdr, nil)
	if err != nil {
		return wire.SnapshotHeader{}, err
	}
	return wire.DecodeSnapshotHeaderResponse(payload, int(s.info.NumChannels), int(s.info.RtCount), s.info.Endianness)
}

func (s *Session) GetSnapshotData(startSample uint16, count uint8) ([]wire.FrameSample, error) {
	req := wire.EncodeGetSnapshotDataRequest(startSample, count, s.info.Endianness)
	payload, err := s.request(wire.GetSnapshotData, req)
	if err != nil {
		return nil, err
	}
	return wire.DecodeSnapshotDataResponse(payload, int(count), int(s.info.NumChannels), s.info.Endianness)
}

func (s *Session) GetVarListPage(start, max uint8) (wire.CatalogPage, error) {
	payload, err := s.request(wire.GetVarList, wire.EncodeCatalogPageRequest(start, max))
	if err != nil {
		return wire.CatalogPage{}, err
	}
	return wire.DecodeCatalogPageResponse(wire.GetVarList, payload, int(s.info.NameLen))
}

func (s *Session) GetRtLabelsPage(start, max uint8) (wire.CatalogPage, error) {
	payload, err := s.request(wire.GetRtLabels, wire.EncodeCatalogPageRequest(start, max))
	if err != nil {
		return wire.CatalogPage{}, err
	}
	return wire.DecodeCatalogPageResponse(wire.GetRtLabels, payload, int(s.info.NameLen))
}

func (s *Session) GetChannelMap() (wire.ChannelMap, error) {
	payload, err := s.request(wire.GetChannelMap, nil)
	if err != nil {
		return nil, err
	}
	return wire.DecodeChannelMapResponse(payload, int(s.info.NumChannels))
}

func (s *Session) SetChannelMap(channelIdx, catalogIdx uint8) (uint8, uint8, error) {
	payload, err := s.request(wire.SetChannelMap, wire.EncodeSetChannelMapRequest(channelIdx, catalogIdx))
	if err != nil {
		return 0, 0, err
	}
	return wire.DecodeSetChannelMapResponse(payload)
}

func (s *Session) GetRtBuffer(index uint8) (float32, error) {
	payload, err := s.request(wire.GetRtBuffer, wire.EncodeGetRtBufferRequest(index))
	if err != nil {
		return 0, err
	}
	return wire.DecodeRtBufferResponse(payload, s.info.Endianness)
}

func (s *Session) SetRtBuffer(index uint8, value float32) (float32, error) {
	payload, err := s.request(wire.SetRtBuffer, wire.EncodeSetRtBufferRequest(index, value, s.info.Endianness))
	if err != nil {
		return 0, err
	}
	return wire.DecodeRtBufferResponse(payload, s.info.Endianness)
}

func (s *Session) GetTrigger() (wire.TriggerConfig, error) {
	payload, err := s.request(wire.GetTrigger, nil)
	if err != nil {
		return wire.TriggerConfig{}, err
	}
	return wire.DecodeTriggerResponse(payload, s.info.Endianness)
}

func (s *Session) SetTrigger(cfg wire.TriggerConfig) (wire.TriggerConfig, error) {
	payload, err := s.request(wire.SetTrigger, wire.EncodeSetTriggerRequest(cfg, s.info.Endianness))
	if err != nil {
		return wire.TriggerConfig{}, err
	}
	return wire.DecodeTriggerResponse(payload, s.info.Endianness)
}
