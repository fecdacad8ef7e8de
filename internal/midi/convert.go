package midi

import (
	"math"
	"sort"

	"github.com/yyya-nico/AnySound-Sequencer/internal/sequence"
)

// Percussion note numbers used for the two rhythm channels.
const (
	percussionSnare = 38
	percussionKick  = 36
)

// minImportedLength is the floor applied to note lengths on import so
// zero-length pairs remain editable.
const minImportedLength = 0.1

// timedEvent is an event at an absolute tick, before delta encoding.
type timedEvent struct {
	tick uint32
	ev   Event
}

// FromSequence builds a format-1 file: track 0 carries the tempo, each
// distinct note track becomes its own MIDI track on the channel
// matching its track number, and all beats merge into one percussion
// track on channel 9.
func FromSequence(notes []sequence.Note, beats []sequence.Beat, bpm float64, ticksPerQuarter uint16) *File {
	f := &File{Format: 1, TicksPerQuarter: ticksPerQuarter}

	tempoTrack := Track{Events: []Event{
		newMeta(0, MetaTempo, TempoBytes(bpm)),
		newMeta(0, MetaEndOfTrack, nil),
	}}
	f.Tracks = append(f.Tracks, tempoTrack)

	byTrack := make(map[int][]sequence.Note)
	var trackNums []int
	for _, n := range notes {
		if _, ok := byTrack[n.Track]; !ok {
			trackNums = append(trackNums, n.Track)
		}
		byTrack[n.Track] = append(byTrack[n.Track], n)
	}
	sort.Ints(trackNums)

	tpq := float64(ticksPerQuarter)
	for _, tn := range trackNums {
		channel := uint8(tn) & 0x0F
		var timed []timedEvent
		for _, n := range byTrack[tn] {
			on := beatTick(n.Start, tpq)
			off := beatTick(n.Start+n.Length, tpq)
			vel := uint8(sequence.ClampMIDIValue(n.Velocity))
			pitch := uint8(sequence.ClampMIDIValue(n.Pitch))
			timed = append(timed, timedEvent{tick: on, ev: newNoteOn(0, channel, pitch, vel)})
			timed = append(timed, timedEvent{tick: off, ev: newNoteOff(0, channel, pitch, 0)})
		}
		f.Tracks = append(f.Tracks, deltaEncode(timed))
	}

	if len(beats) > 0 {
		hitLen := uint32(ticksPerQuarter / 8)
		var timed []timedEvent
		for _, b := range beats {
			note := uint8(percussionSnare)
			if b.Track == 1 {
				note = percussionKick
			}
			on := beatTick(b.Position, tpq)
			vel := uint8(sequence.ClampMIDIValue(b.Velocity))
			timed = append(timed, timedEvent{tick: on, ev: newNoteOn(0, PercussionChannel, note, vel)})
			timed = append(timed, timedEvent{tick: on + hitLen, ev: newNoteOff(0, PercussionChannel, note, 0)})
		}
		f.Tracks = append(f.Tracks, deltaEncode(timed))
	}

	return f
}

func beatTick(beat, ticksPerQuarter float64) uint32 {
	if beat < 0 {
		beat = 0
	}
	return uint32(math.Round(beat * ticksPerQuarter))
}

// deltaEncode sorts by absolute tick (ties keep insertion order),
// rewrites deltas and appends the end-of-track marker.
func deltaEncode(timed []timedEvent) Track {
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].tick < timed[j].tick })

	var track Track
	var prev uint32
	for _, te := range timed {
		ev := te.ev
		ev.Delta = te.tick - prev
		prev = te.tick
		track.Events = append(track.Events, ev)
	}
	track.Events = append(track.Events, newMeta(0, MetaEndOfTrack, nil))
	return track
}

type openNote struct {
	startBeat float64
	velocity  uint8
}

type noteKey struct {
	channel uint8
	note    uint8
}

// ToSequence walks the file's tracks and rebuilds the editor timeline.
// Only the first tempo event is honored; later tempo changes are not
// reconstructed into a tempo map.
func ToSequence(f *File) *sequence.Sequence {
	out := &sequence.Sequence{
		BPM:         sequence.DefaultBPM,
		Instruments: make(map[int]int),
	}
	tpq := float64(f.TicksPerQuarter)
	if tpq <= 0 {
		tpq = 480
	}

	tempoSeen := false
	var maxEndBeat float64

	for _, track := range f.Tracks {
		var tick uint32
		open := make(map[noteKey]openNote)

		for _, ev := range track.Events {
			tick += ev.Delta
			beat := float64(tick) / tpq

			switch ev.Kind {
			case KindNoteOn:
				n := ev.NoteOn
				open[noteKey{n.Channel, n.Note}] = openNote{startBeat: beat, velocity: n.Velocity}

			case KindNoteOff:
				n := ev.NoteOff
				key := noteKey{n.Channel, n.Note}
				o, ok := open[key]
				if !ok {
					// stray note off, nothing to close
					continue
				}
				delete(open, key)
				length := math.Max(minImportedLength, beat-o.startBeat)
				if n.Channel == PercussionChannel {
					rhythmTrack := 0
					if n.Note == percussionKick {
						rhythmTrack = 1
					}
					out.Beats = append(out.Beats, sequence.NewBeat(rhythmTrack, o.startBeat, int(o.velocity)))
				} else {
					out.Notes = append(out.Notes, sequence.NewNote(int(n.Channel), int(n.Note), o.startBeat, length, int(o.velocity)))
				}

			case KindMeta:
				switch ev.Meta.Type {
				case MetaTempo:
					if !tempoSeen {
						out.BPM = TempoBPM(ev.Meta.Data)
						tempoSeen = true
					}
				case MetaEndOfTrack:
					if beat > maxEndBeat {
						maxEndBeat = beat
					}
				}

			case KindProgramChange:
				pc := ev.ProgramChange
				if pc.Channel != PercussionChannel {
					if _, ok := out.Instruments[int(pc.Channel)]; !ok {
						out.Instruments[int(pc.Channel)] = int(pc.Program)
					}
				}
			}
		}
	}

	out.GridSize = int(math.Ceil(maxEndBeat))
	return out
}
