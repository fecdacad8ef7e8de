package midi

import (
	"math"
	"sort"
	"testing"

	"github.com/yyya-nico/AnySound-Sequencer/internal/sequence"
)

type notePair struct {
	channel uint8
	note    uint8
	onTick  uint32
	offTick uint32
}

// collectPairs extracts (channel, note, on, off) pairs per track with
// absolute ticks, pairing each off against the most recent open on.
func collectPairs(t *testing.T, f *File) map[int][]notePair {
	t.Helper()
	out := make(map[int][]notePair)
	for ti, track := range f.Tracks {
		var tick uint32
		open := make(map[noteKey]notePair)
		for _, ev := range track.Events {
			tick += ev.Delta
			switch ev.Kind {
			case KindNoteOn:
				open[noteKey{ev.NoteOn.Channel, ev.NoteOn.Note}] = notePair{
					channel: ev.NoteOn.Channel, note: ev.NoteOn.Note, onTick: tick,
				}
			case KindNoteOff:
				key := noteKey{ev.NoteOff.Channel, ev.NoteOff.Note}
				p, ok := open[key]
				if !ok {
					t.Fatalf("track %d: unmatched NoteOff %v at tick %d", ti, ev, tick)
				}
				delete(open, key)
				p.offTick = tick
				out[ti] = append(out[ti], p)
			}
		}
		if len(open) != 0 {
			t.Fatalf("track %d: %d notes never closed", ti, len(open))
		}
	}
	return out
}

func TestFromSequenceLayout(t *testing.T) {
	notes := []sequence.Note{
		sequence.NewNote(0, 60, 0, 1, 100),
		sequence.NewNote(0, 64, 1, 0.5, 100),
		sequence.NewNote(2, 48, 0.25, 2, 80),
	}
	beats := []sequence.Beat{
		sequence.NewBeat(0, 0, 127),
		sequence.NewBeat(1, 0.5, 127),
	}

	f := FromSequence(notes, beats, 120, 480)

	if f.Format != 1 {
		t.Errorf("Format = %d, want 1", f.Format)
	}
	// tempo track + two note tracks + one percussion track
	if len(f.Tracks) != 4 {
		t.Fatalf("len(Tracks) = %d, want 4", len(f.Tracks))
	}

	tempo := f.Tracks[0].Events
	if len(tempo) != 2 || tempo[0].Kind != KindMeta || tempo[0].Meta.Type != MetaTempo {
		t.Fatalf("track 0 is not a tempo track: %v", tempo)
	}
	if tempo[0].Delta != 0 || tempo[1].Delta != 0 {
		t.Error("tempo track events must sit at delta 0")
	}
	if got := TempoBPM(tempo[0].Meta.Data); math.Abs(got-120) > 1e-9 {
		t.Errorf("tempo track BPM = %v, want 120", got)
	}
	if last := tempo[len(tempo)-1]; last.Meta.Type != MetaEndOfTrack {
		t.Error("tempo track missing end-of-track")
	}

	pairs := collectPairs(t, f)

	// track 1: sequence track 0 on channel 0
	want1 := []notePair{
		{channel: 0, note: 60, onTick: 0, offTick: 480},
		{channel: 0, note: 64, onTick: 480, offTick: 720},
	}
	checkPairs(t, "track 1", pairs[1], want1)

	// track 2: sequence track 2 on channel 2
	want2 := []notePair{
		{channel: 2, note: 48, onTick: 120, offTick: 1080},
	}
	checkPairs(t, "track 2", pairs[2], want2)

	// track 3: beats on channel 9, hit length tpq/8 = 60 ticks
	want3 := []notePair{
		{channel: 9, note: 38, onTick: 0, offTick: 60},
		{channel: 9, note: 36, onTick: 240, offTick: 300},
	}
	checkPairs(t, "track 3", pairs[3], want3)
}

func checkPairs(t *testing.T, label string, got, want []notePair) {
	t.Helper()
	sortPairs := func(ps []notePair) {
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].onTick != ps[j].onTick {
				return ps[i].onTick < ps[j].onTick
			}
			return ps[i].note < ps[j].note
		})
	}
	sortPairs(got)
	sortPairs(want)
	if len(got) != len(want) {
		t.Fatalf("%s: %d pairs, want %d", label, len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("%s pair %d: %+v, want %+v", label, i, got[i], want[i])
		}
	}
}

func TestSequencerRoundTrip(t *testing.T) {
	notes := []sequence.Note{
		sequence.NewNote(0, 60, 0, 1, 100),
		sequence.NewNote(0, 72, 2, 0.5, 90),
		sequence.NewNote(1, 55, 1.5, 1.25, 70),
	}
	beats := []sequence.Beat{
		sequence.NewBeat(1, 0, 110),
		sequence.NewBeat(0, 1, 110),
	}

	exported := FromSequence(notes, beats, 140, 480)
	parsed, err := Parse(exported.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	origPairs := collectPairs(t, exported)
	newPairs := collectPairs(t, parsed)

	for ti := range origPairs {
		checkPairs(t, "round trip", newPairs[ti], origPairs[ti])
	}
}

func TestToSequence(t *testing.T) {
	notes := []sequence.Note{
		sequence.NewNote(0, 60, 0, 1, 100),
		sequence.NewNote(3, 72, 2, 1.5, 90),
	}
	beats := []sequence.Beat{
		sequence.NewBeat(1, 0.5, 110),
		sequence.NewBeat(0, 1, 105),
	}

	f := FromSequence(notes, beats, 90, 480)
	got := ToSequence(f)

	if math.Abs(got.BPM-90) > 1 {
		t.Errorf("BPM = %v, want ~90", got.BPM)
	}
	if len(got.Notes) != 2 {
		t.Fatalf("got %d notes, want 2", len(got.Notes))
	}
	if len(got.Beats) != 2 {
		t.Fatalf("got %d beats, want 2", len(got.Beats))
	}

	sort.Slice(got.Notes, func(i, j int) bool { return got.Notes[i].Start < got.Notes[j].Start })
	n0 := got.Notes[0]
	if n0.Track != 0 || n0.Pitch != 60 || n0.Start != 0 || math.Abs(n0.Length-1) > 1e-9 || n0.Velocity != 100 {
		t.Errorf("note 0 = %+v", n0)
	}
	n1 := got.Notes[1]
	if n1.Track != 3 || n1.Pitch != 72 || math.Abs(n1.Start-2) > 1e-9 || math.Abs(n1.Length-1.5) > 1e-9 {
		t.Errorf("note 1 = %+v", n1)
	}

	sort.Slice(got.Beats, func(i, j int) bool { return got.Beats[i].Position < got.Beats[j].Position })
	if b0 := got.Beats[0]; b0.Track != 1 || math.Abs(b0.Position-0.5) > 1e-9 || b0.Velocity != 110 {
		t.Errorf("beat 0 = %+v", b0)
	}
	if b1 := got.Beats[1]; b1.Track != 0 || math.Abs(b1.Position-1) > 1e-9 || b1.Velocity != 105 {
		t.Errorf("beat 1 = %+v", b1)
	}

	// last event ends at beat 3.5 -> grid rounds up
	if got.GridSize != 4 {
		t.Errorf("GridSize = %d, want 4", got.GridSize)
	}
}

func TestToSequenceMinimumLength(t *testing.T) {
	// zero-length pair: on and off at the same tick
	f := &File{Format: 0, TicksPerQuarter: 480, Tracks: []Track{{Events: []Event{
		newNoteOn(0, 0, 60, 100),
		newNoteOff(0, 0, 60, 0),
		newMeta(0, MetaEndOfTrack, nil),
	}}}}
	got := ToSequence(f)
	if len(got.Notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(got.Notes))
	}
	if got.Notes[0].Length != 0.1 {
		t.Errorf("Length = %v, want the 0.1 floor", got.Notes[0].Length)
	}
}

func TestToSequenceStrayNoteOffIgnored(t *testing.T) {
	f := &File{Format: 0, TicksPerQuarter: 480, Tracks: []Track{{Events: []Event{
		newNoteOff(0, 0, 60, 0), // nothing open
		newMeta(0, MetaEndOfTrack, nil),
	}}}}
	got := ToSequence(f)
	if len(got.Notes) != 0 {
		t.Errorf("stray NoteOff produced %d notes, want 0", len(got.Notes))
	}
}

func TestToSequenceInstrumentCodes(t *testing.T) {
	f := &File{Format: 1, TicksPerQuarter: 480, Tracks: []Track{{Events: []Event{
		{Kind: KindProgramChange, ProgramChange: &ProgramChangeEvent{Channel: 0, Program: 12}},
		{Kind: KindProgramChange, ProgramChange: &ProgramChangeEvent{Channel: 0, Program: 40}}, // later change ignored
		{Kind: KindProgramChange, ProgramChange: &ProgramChangeEvent{Channel: 9, Program: 1}},  // percussion ignored
		{Kind: KindProgramChange, ProgramChange: &ProgramChangeEvent{Channel: 2, Program: 33}},
		newMeta(0, MetaEndOfTrack, nil),
	}}}}
	got := ToSequence(f)
	if got.Instruments[0] != 12 {
		t.Errorf("Instruments[0] = %d, want 12", got.Instruments[0])
	}
	if got.Instruments[2] != 33 {
		t.Errorf("Instruments[2] = %d, want 33", got.Instruments[2])
	}
	if _, ok := got.Instruments[9]; ok {
		t.Error("percussion channel must not record an instrument")
	}
}

func TestToSequenceOnlyFirstTempo(t *testing.T) {
	f := &File{Format: 1, TicksPerQuarter: 480, Tracks: []Track{{Events: []Event{
		newMeta(0, MetaTempo, TempoBytes(100)),
		newMeta(480, MetaTempo, TempoBytes(180)),
		newMeta(0, MetaEndOfTrack, nil),
	}}}}
	got := ToSequence(f)
	if math.Abs(got.BPM-100) > 1 {
		t.Errorf("BPM = %v, want the first tempo (~100)", got.BPM)
	}
}
