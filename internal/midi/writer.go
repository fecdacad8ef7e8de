package midi

import "encoding/binary"

// Bytes serializes the file back to SMF bytes. Every event restates
// its status byte; running status is never emitted. Unknown events are
// dropped (they carry no payload to restate).
func (f *File) Bytes() []byte {
	out := make([]byte, 0, 14)
	out = appendChunk(out, "MThd", f.headerBytes())
	for _, t := range f.Tracks {
		out = appendChunk(out, "MTrk", t.bytes())
	}
	return out
}

func (f *File) headerBytes() []byte {
	var h [headerChunkLen]byte
	binary.BigEndian.PutUint16(h[0:2], f.Format)
	binary.BigEndian.PutUint16(h[2:4], uint16(len(f.Tracks)))
	binary.BigEndian.PutUint16(h[4:6], f.TicksPerQuarter)
	return h[:]
}

func appendChunk(dst []byte, id string, payload []byte) []byte {
	dst = append(dst, id...)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

func (t Track) bytes() []byte {
	var out []byte
	for _, ev := range t.Events {
		out = ev.appendTo(out)
	}
	return out
}

func (e Event) appendTo(dst []byte) []byte {
	if e.Kind == KindUnknown {
		return dst
	}
	dst = appendVarLen(dst, e.Delta)

	switch e.Kind {
	case KindNoteOn:
		dst = append(dst, statusNoteOn|e.NoteOn.Channel&0x0F, e.NoteOn.Note&0x7F, e.NoteOn.Velocity&0x7F)
	case KindNoteOff:
		dst = append(dst, statusNoteOff|e.NoteOff.Channel&0x0F, e.NoteOff.Note&0x7F, e.NoteOff.Velocity&0x7F)
	case KindController:
		c := e.Controller
		if c.PitchBend {
			dst = append(dst, statusPitchBend|c.Channel&0x0F, byte(c.Value&0x7F), byte(c.Value>>7&0x7F))
		} else {
			dst = append(dst, statusController|c.Channel&0x0F, c.Controller&0x7F, byte(c.Value&0x7F))
		}
	case KindProgramChange:
		dst = append(dst, statusProgramChange|e.ProgramChange.Channel&0x0F, e.ProgramChange.Program&0x7F)
	case KindMeta:
		dst = append(dst, statusMeta, e.Meta.Type)
		dst = appendVarLen(dst, uint32(len(e.Meta.Data)))
		dst = append(dst, e.Meta.Data...)
	case KindSysEx:
		dst = append(dst, statusSysEx)
		dst = appendVarLen(dst, uint32(len(e.SysEx.Data)))
		dst = append(dst, e.SysEx.Data...)
	}
	return dst
}
