// Package midi implements a Standard MIDI File codec and the
// conversion between SMF track data and the sequence timeline.
package midi

import "fmt"

// Status nibbles and meta types used by the codec.
const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusPolyPressure  = 0xA0
	statusController    = 0xB0
	statusProgramChange = 0xC0
	statusChanPressure  = 0xD0
	statusPitchBend     = 0xE0
	statusMeta          = 0xFF
	statusSysEx         = 0xF0
	statusSysExCont     = 0xF7

	// MetaTempo is the Set Tempo meta event type (3-byte payload,
	// microseconds per quarter note, big-endian).
	MetaTempo = 0x51
	// MetaEndOfTrack terminates a track chunk.
	MetaEndOfTrack = 0x2F

	// PercussionChannel is the conventional General MIDI drum channel.
	PercussionChannel = 9
)

// Event is one timed MIDI event. Exactly one of the pointer fields is
// set, discriminated by Kind; the zero variant is Unknown.
type Event struct {
	// Delta is the tick offset from the previous event in the track.
	Delta uint32
	Kind  EventKind

	NoteOn        *NoteEvent
	NoteOff       *NoteEvent
	Controller    *ControllerEvent
	ProgramChange *ProgramChangeEvent
	Meta          *MetaEvent
	SysEx         *SysExEvent
}

// EventKind discriminates the Event union.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindNoteOn
	KindNoteOff
	KindController
	KindProgramChange
	KindMeta
	KindSysEx
)

func (k EventKind) String() string {
	switch k {
	case KindNoteOn:
		return "NoteOn"
	case KindNoteOff:
		return "NoteOff"
	case KindController:
		return "Controller"
	case KindProgramChange:
		return "ProgramChange"
	case KindMeta:
		return "Meta"
	case KindSysEx:
		return "SysEx"
	default:
		return "Unknown"
	}
}

// NoteEvent carries a NoteOn or NoteOff.
type NoteEvent struct {
	Channel  uint8
	Note     uint8
	Velocity uint8
}

// ControllerEvent carries a control change. Pitch bend is represented
// here too, with the 14-bit wheel position in Value.
type ControllerEvent struct {
	Channel    uint8
	Controller uint8
	Value      uint16
	PitchBend  bool
}

// ProgramChangeEvent selects an instrument program on a channel.
type ProgramChangeEvent struct {
	Channel uint8
	Program uint8
}

// MetaEvent is an 0xFF meta event with its raw payload.
type MetaEvent struct {
	Type uint8
	Data []byte
}

// SysExEvent is a system-exclusive payload (0xF0 or 0xF7 framing).
type SysExEvent struct {
	Data []byte
}

// Track is an ordered list of delta-timed events.
type Track struct {
	Events []Event
}

// File is a decoded Standard MIDI File. Only metric (ticks per quarter
// note) division is represented; SMPTE divisions are not interpreted.
type File struct {
	Format          uint16
	TicksPerQuarter uint16
	Tracks          []Track

	// Diagnostics collects non-fatal parser notes, one per skipped
	// unknown status byte.
	Diagnostics []string
}

func newNoteOn(delta uint32, channel, note, velocity uint8) Event {
	return Event{Delta: delta, Kind: KindNoteOn, NoteOn: &NoteEvent{Channel: channel, Note: note, Velocity: velocity}}
}

func newNoteOff(delta uint32, channel, note, velocity uint8) Event {
	return Event{Delta: delta, Kind: KindNoteOff, NoteOff: &NoteEvent{Channel: channel, Note: note, Velocity: velocity}}
}

func newMeta(delta uint32, metaType uint8, data []byte) Event {
	return Event{Delta: delta, Kind: KindMeta, Meta: &MetaEvent{Type: metaType, Data: data}}
}

// TempoBytes encodes a BPM value as the 3-byte Set Tempo payload.
func TempoBytes(bpm float64) []byte {
	if bpm <= 0 {
		bpm = 120
	}
	usPerQuarter := uint32(60_000_000/bpm + 0.5)
	return []byte{byte(usPerQuarter >> 16), byte(usPerQuarter >> 8), byte(usPerQuarter)}
}

// TempoBPM decodes a Set Tempo payload. Payloads that are not exactly
// 3 bytes long decode to the 120 BPM default.
func TempoBPM(data []byte) float64 {
	if len(data) != 3 {
		return 120
	}
	usPerQuarter := uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
	if usPerQuarter == 0 {
		return 120
	}
	return 60_000_000 / float64(usPerQuarter)
}

func (e Event) String() string {
	switch e.Kind {
	case KindNoteOn:
		return fmt.Sprintf("+%d NoteOn ch%d n%d v%d", e.Delta, e.NoteOn.Channel, e.NoteOn.Note, e.NoteOn.Velocity)
	case KindNoteOff:
		return fmt.Sprintf("+%d NoteOff ch%d n%d v%d", e.Delta, e.NoteOff.Channel, e.NoteOff.Note, e.NoteOff.Velocity)
	case KindController:
		return fmt.Sprintf("+%d CC ch%d c%d v%d", e.Delta, e.Controller.Channel, e.Controller.Controller, e.Controller.Value)
	case KindProgramChange:
		return fmt.Sprintf("+%d PC ch%d p%d", e.Delta, e.ProgramChange.Channel, e.ProgramChange.Program)
	case KindMeta:
		return fmt.Sprintf("+%d Meta %02X (%d bytes)", e.Delta, e.Meta.Type, len(e.Meta.Data))
	case KindSysEx:
		return fmt.Sprintf("+%d SysEx (%d bytes)", e.Delta, len(e.SysEx.Data))
	default:
		return fmt.Sprintf("+%d Unknown", e.Delta)
	}
}
