package midi

import (
	"encoding/binary"
	"fmt"
)

// FormatError reports structurally invalid SMF input: a bad chunk id
// or an unexpected header length. Parsing aborts.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "midi: invalid format: " + e.Msg
}

// TruncatedError reports a declared length that runs past the end of
// the available bytes. Parsing aborts.
type TruncatedError struct {
	What string
}

func (e *TruncatedError) Error() string {
	return "midi: truncated data while reading " + e.What
}

const headerChunkLen = 6

// parserState is the running-status decoder state threaded through the
// track walk. Keeping it a value (not package state) makes Parse safe
// to call concurrently on independent inputs.
type parserState struct {
	lastStatus byte
	cursor     int
}

// Parse decodes a Standard MIDI File. The first chunk must be "MThd"
// with a 6-byte payload and every following chunk must be "MTrk".
// Unknown status bytes are skipped one byte at a time and recorded in
// File.Diagnostics; all other malformations are fatal.
func Parse(data []byte) (*File, error) {
	id, payload, rest, err := readChunk(data)
	if err != nil {
		return nil, err
	}
	if id != "MThd" {
		return nil, &FormatError{Msg: fmt.Sprintf("first chunk id %q, want \"MThd\"", id)}
	}
	if len(payload) != headerChunkLen {
		return nil, &FormatError{Msg: fmt.Sprintf("header length %d, want %d", len(payload), headerChunkLen)}
	}

	f := &File{
		Format:          binary.BigEndian.Uint16(payload[0:2]),
		TicksPerQuarter: binary.BigEndian.Uint16(payload[4:6]),
	}
	trackCount := int(binary.BigEndian.Uint16(payload[2:4]))

	for i := 0; i < trackCount; i++ {
		id, payload, rest, err = readChunk(rest)
		if err != nil {
			return nil, err
		}
		if id != "MTrk" {
			return nil, &FormatError{Msg: fmt.Sprintf("chunk %d id %q, want \"MTrk\"", i+1, id)}
		}
		track, diags, err := parseTrack(payload)
		if err != nil {
			return nil, err
		}
		f.Tracks = append(f.Tracks, track)
		f.Diagnostics = append(f.Diagnostics, diags...)
	}
	return f, nil
}

// readChunk splits off one chunk: 4-byte ASCII id, 4-byte big-endian
// length, payload. The cursor always advances by the declared length.
func readChunk(data []byte) (id string, payload, rest []byte, err error) {
	if len(data) < 8 {
		return "", nil, nil, &TruncatedError{What: "chunk header"}
	}
	id = string(data[0:4])
	length := binary.BigEndian.Uint32(data[4:8])
	body := data[8:]
	if uint32(len(body)) < length {
		return "", nil, nil, &TruncatedError{What: fmt.Sprintf("chunk %q payload", id)}
	}
	return id, body[:length], body[length:], nil
}

func parseTrack(data []byte) (Track, []string, error) {
	var track Track
	var diags []string
	st := parserState{}

	for st.cursor < len(data) {
		delta, pos, err := readVarLen(data, st.cursor)
		if err != nil {
			return track, diags, err
		}
		st.cursor = pos

		if st.cursor >= len(data) {
			return track, diags, &TruncatedError{What: "event status"}
		}
		status := data[st.cursor]
		if status&0x80 != 0 {
			st.cursor++
			st.lastStatus = status
		} else {
			// running status: the byte just read is the first data
			// byte of an event reusing the previous status
			status = st.lastStatus
		}

		ev, err := parseEvent(data, &st, status, delta)
		if err != nil {
			return track, diags, err
		}
		if ev.Kind == KindUnknown {
			diags = append(diags, fmt.Sprintf("skipped unknown status byte 0x%02X", status))
		}
		track.Events = append(track.Events, ev)
	}
	return track, diags, nil
}

func parseEvent(data []byte, st *parserState, status byte, delta uint32) (Event, error) {
	channel := status & 0x0F

	switch status & 0xF0 {
	case statusNoteOff:
		b, err := takeBytes(data, st, 2, "note off")
		if err != nil {
			return Event{}, err
		}
		return newNoteOff(delta, channel, b[0], b[1]), nil

	case statusNoteOn:
		b, err := takeBytes(data, st, 2, "note on")
		if err != nil {
			return Event{}, err
		}
		if b[1] == 0 {
			// velocity 0 is a note off in disguise
			return newNoteOff(delta, channel, b[0], 0), nil
		}
		return newNoteOn(delta, channel, b[0], b[1]), nil

	case statusController:
		b, err := takeBytes(data, st, 2, "controller")
		if err != nil {
			return Event{}, err
		}
		return Event{Delta: delta, Kind: KindController, Controller: &ControllerEvent{
			Channel: channel, Controller: b[0], Value: uint16(b[1]),
		}}, nil

	case statusProgramChange:
		b, err := takeBytes(data, st, 1, "program change")
		if err != nil {
			return Event{}, err
		}
		return Event{Delta: delta, Kind: KindProgramChange, ProgramChange: &ProgramChangeEvent{
			Channel: channel, Program: b[0],
		}}, nil

	case statusPitchBend:
		b, err := takeBytes(data, st, 2, "pitch bend")
		if err != nil {
			return Event{}, err
		}
		return Event{Delta: delta, Kind: KindController, Controller: &ControllerEvent{
			Channel: channel, Value: uint16(b[0]) | uint16(b[1])<<7, PitchBend: true,
		}}, nil
	}

	switch status {
	case statusMeta:
		b, err := takeBytes(data, st, 1, "meta type")
		if err != nil {
			return Event{}, err
		}
		metaType := b[0]
		length, pos, err := readVarLen(data, st.cursor)
		if err != nil {
			return Event{}, err
		}
		st.cursor = pos
		payload, err := takeBytes(data, st, int(length), "meta payload")
		if err != nil {
			return Event{}, err
		}
		return newMeta(delta, metaType, payload), nil

	case statusSysEx, statusSysExCont:
		length, pos, err := readVarLen(data, st.cursor)
		if err != nil {
			return Event{}, err
		}
		st.cursor = pos
		payload, err := takeBytes(data, st, int(length), "sysex payload")
		if err != nil {
			return Event{}, err
		}
		return Event{Delta: delta, Kind: KindSysEx, SysEx: &SysExEvent{Data: payload}}, nil
	}

	// unrecognized status: skip a single byte and keep going
	if st.cursor < len(data) {
		st.cursor++
	}
	return Event{Delta: delta, Kind: KindUnknown}, nil
}

func takeBytes(data []byte, st *parserState, n int, what string) ([]byte, error) {
	if st.cursor+n > len(data) {
		return nil, &TruncatedError{What: what}
	}
	b := data[st.cursor : st.cursor+n]
	st.cursor += n
	return b, nil
}
