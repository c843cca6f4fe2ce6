package wire

// This file holds the per-message-family encoders and decoders. Each
// pair is pure: encoders turn typed arguments into a wire payload,
// decoders turn a wire payload (plus, where needed, the session's
// DeviceInfo) back into a typed value. Requests that carry no
// arguments have no Encode function; the caller sends the bare
// MessageType with a nil payload.

// DecodeGetInfoResponse parses the fixed GET_INFO header followed by
// the device name. buffer_size and isr_khz are always little-endian
// on the wire, ahead of the endianness byte itself (see the host
// interoperability note this module carries forward from the
// protocol's design history).
func DecodeGetInfoResponse(payload []byte) (DeviceInfo, error) {
	const headerLen = 10
	if len(payload) < headerLen {
		return DeviceInfo{}, &DecodeError{Op: GetInfo, Reason: "payload too short for header"}
	}
	numChannels, _ := ReadU8(payload, 0)
	bufferSize, _ := ReadU16(payload, 1, Little)
	isrKhz, _ := ReadU16(payload, 3, Little)
	varCount, _ := ReadU8(payload, 5)
	rtCount, _ := ReadU8(payload, 6)
	rtBufferLen, _ := ReadU8(payload, 7)
	nameLen, _ := ReadU8(payload, 8)
	endByte, _ := ReadU8(payload, 9)
	end := Little
	if endByte != 0 {
		end = Big
	}
	if len(payload) != headerLen+int(nameLen) {
		return DeviceInfo{}, &DecodeError{Op: GetInfo, Reason: "payload length does not match name_len"}
	}
	name, err := ReadString(payload, headerLen, int(nameLen))
	if err != nil {
		return DeviceInfo{}, &DecodeError{Op: GetInfo, Reason: "truncated device name"}
	}
	if numChannels < 1 {
		return DeviceInfo{}, &DecodeError{Op: GetInfo, Reason: "num_channels must be >= 1"}
	}
	if nameLen < 1 {
		return DeviceInfo{}, &DecodeError{Op: GetInfo, Reason: "name_len must be >= 1"}
	}
	return DeviceInfo{
		NumChannels: numChannels,
		BufferSize:  bufferSize,
		IsrKhz:      isrKhz,
		VarCount:    varCount,
		RtCount:     rtCount,
		RtBufferLen: rtBufferLen,
		NameLen:     nameLen,
		Endianness:  end,
		DeviceName:  name,
	}, nil
}

func EncodeSetTimingRequest(cfg TimingConfig, end Endianness) []byte {
	buf := make([]byte, 8)
	WriteU32(buf, 0, cfg.Divider, end)
	WriteU32(buf, 4, cfg.PreTrig, end)
	return buf
}

func DecodeTimingResponse(payload []byte, end Endianness) (TimingConfig, error) {
	if len(payload) != 8 {
		return TimingConfig{}, &DecodeError{Op: GetTiming, Reason: "expected 8-byte payload"}
	}
	divider, _ := ReadU32(payload, 0, end)
	preTrig, _ := ReadU32(payload, 4, end)
	return TimingConfig{Divider: divider, PreTrig: preTrig}, nil
}

func EncodeSetStateRequest(state DeviceState) []byte {
	return []byte{byte(state)}
}

func DecodeStateResponse(payload []byte) (DeviceState, error) {
	if len(payload) != 1 {
		return 0, &DecodeError{Op: GetState, Reason: "expected 1-byte payload"}
	}
	return DeviceState(payload[0]), nil
}

func DecodeFrameResponse(payload []byte, numChannels int, end Endianness) (FrameSample, error) {
	want := numChannels * 4
	if len(payload) != want {
		return nil, &DecodeError{Op: GetFrame, Reason: "payload length does not match num_channels*4"}
	}
	out := make(FrameSample, numChannels)
	for i := range out {
		v, _ := ReadF32(payload, i*4, end)
		out[i] = v
	}
	return out, nil
}

func DecodeSnapshotHeaderResponse(payload []byte, numChannels, rtCount int, end Endianness) (SnapshotHeader, error) {
	want := numChannels + 8 + 4 + 1 + 1 + rtCount*4
	if len(payload) != want {
		return SnapshotHeader{}, &DecodeError{Op: GetSnapshotHdr, Reason: "payload length mismatch"}
	}
	off := 0
	cm := make(ChannelMap, numChannels)
	for i := range cm {
		cm[i], _ = ReadU8(payload, off)
		off++
	}
	divider, _ := ReadU32(payload, off, end)
	off += 4
	preTrig, _ := ReadU32(payload, off, end)
	off += 4
	threshold, _ := ReadF32(payload, off, end)
	off += 4
	trigChannel, _ := ReadU8(payload, off)
	off++
	trigMode, _ := ReadU8(payload, off)
	off++
	rtValues := make([]float32, rtCount)
	for i := range rtValues {
		rtValues[i], _ = ReadF32(payload, off, end)
		off += 4
	}
	return SnapshotHeader{
		ChannelMap:       cm,
		Divider:          divider,
		PreTrig:          preTrig,
		TriggerThreshold: threshold,
		TriggerChannel:   trigChannel,
		TriggerMode:      TriggerMode(trigMode),
		RtValues:         rtValues,
	}, nil
}

func EncodeGetSnapshotDataRequest(startSample uint16, count uint8, end Endianness) []byte {
	buf := make([]byte, 3)
	WriteU16(buf, 0, startSample, end)
	buf[2] = byte(count)
	return buf
}

// DecodeSnapshotDataResponse decodes count samples of numChannels
// floats each, in sample-major order.
func DecodeSnapshotDataResponse(payload []byte, count, numChannels int, end Endianness) ([]FrameSample, error) {
	want := count * numChannels * 4
	if len(payload) != want {
		return nil, &DecodeError{Op: GetSnapshotData, Reason: "payload length does not match count*num_channels*4"}
	}
	out := make([]FrameSample, count)
	off := 0
	for i := range out {
		s := make(FrameSample, numChannels)
		for c := range s {
			s[c], _ = ReadF32(payload, off, end)
			off += 4
		}
		out[i] = s
	}
	return out, nil
}

func EncodeCatalogPageRequest(start, max uint8) []byte {
	return []byte{start, max}
}

// DecodeCatalogPageResponse decodes the shared page shape used by
// GET_VAR_LIST and GET_RT_LABELS: total | start | count followed by
// count fixed-width names.
func DecodeCatalogPageResponse(op MessageType, payload []byte, nameLen int) (CatalogPage, error) {
	if len(payload) < 3 {
		return CatalogPage{}, &DecodeError{Op: op, Reason: "payload too short for page header"}
	}
	total, _ := ReadU8(payload, 0)
	start, _ := ReadU8(payload, 1)
	count, _ := ReadU8(payload, 2)
	want := 3 + int(count)*nameLen
	if len(payload) != want {
		return CatalogPage{}, &DecodeError{Op: op, Reason: "payload length does not match count*name_len"}
	}
	entries := make([]string, count)
	off := 3
	for i := range entries {
		name, err := ReadString(payload, off, nameLen)
		if err != nil {
			return CatalogPage{}, &DecodeError{Op: op, Reason: "truncated catalog entry"}
		}
		entries[i] = name
		off += nameLen
	}
	return CatalogPage{TotalCount: total, StartIdx: start, Entries: entries}, nil
}

func DecodeChannelMapResponse(payload []byte, numChannels int) (ChannelMap, error) {
	if len(payload) != numChannels {
		return nil, &DecodeError{Op: GetChannelMap, Reason: "payload length does not match num_channels"}
	}
	cm := make(ChannelMap, numChannels)
	copy(cm, payload)
	return cm, nil
}

func EncodeSetChannelMapRequest(channelIdx, catalogIdx uint8) []byte {
	return []byte{channelIdx, catalogIdx}
}

func DecodeSetChannelMapResponse(payload []byte) (channelIdx, catalogIdx uint8, err error) {
	if len(payload) != 2 {
		return 0, 0, &DecodeError{Op: SetChannelMap, Reason: "expected 2-byte payload"}
	}
	return payload[0], payload[1], nil
}

func EncodeGetRtBufferRequest(index uint8) []byte {
	return []byte{index}
}

func EncodeSetRtBufferRequest(index uint8, value float32, end Endianness) []byte {
	buf := make([]byte, 5)
	buf[0] = index
	WriteF32(buf, 1, value, end)
	return buf
}

func DecodeRtBufferResponse(payload []byte, end Endianness) (float32, error) {
	if len(payload) != 4 {
		return 0, &DecodeError{Op: GetRtBuffer, Reason: "expected 4-byte payload"}
	}
	return ReadF32(payload, 0, end)
}

func EncodeSetTriggerRequest(cfg TriggerConfig, end Endianness) []byte {
	buf := make([]byte, 6)
	WriteF32(buf, 0, cfg.Threshold, end)
	buf[4] = cfg.Channel
	buf[5] = byte(cfg.Mode)
	return buf
}

func DecodeTriggerResponse(payload []byte, end Endianness) (TriggerConfig, error) {
	if len(payload) != 6 {
		return TriggerConfig{}, &DecodeError{Op: GetTrigger, Reason: "expected 6-byte payload"}
	}
	threshold, _ := ReadF32(payload, 0, end)
	return TriggerConfig{
		Threshold: threshold,
		Channel:   payload[4],
		Mode:      TriggerMode(payload[5]),
	}, nil
}

// DecodeErrorResponse decodes a 0xFF ERROR frame's single code byte.
func DecodeErrorResponse(payload []byte) (*DeviceError, error) {
	if len(payload) != 1 {
		return nil, &DecodeError{Op: ErrorFrame, Reason: "expected 1-byte payload"}
	}
	return &DeviceError{Code: ErrorCode(payload[0])}, nil
}
