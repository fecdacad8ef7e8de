// Package sequence holds the domain timeline: notes and rhythm beats
// positioned in musical time, plus the tempo map that resolves musical
// time to wall-clock seconds.
package sequence

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
)

// Note is a pitched event on a melodic track. Start and Length are in
// quarter-note beats.
type Note struct {
	ID       string  `json:"id"`
	Track    int     `json:"track"`
	Pitch    int     `json:"pitch"`    // MIDI note number, 0-127
	Start    float64 `json:"start"`    // beats, >= 0
	Length   float64 `json:"length"`   // beats, > 0
	Velocity int     `json:"velocity"` // 0-127
}

// Beat is an unpitched hit on a rhythm channel. Position is in
// quarter-note beats.
type Beat struct {
	ID       string  `json:"id"`
	Track    int     `json:"track"` // rhythm channel index
	Position float64 `json:"position"`
	Velocity int     `json:"velocity"`
}

// NewNote builds a Note with a fresh ID.
func NewNote(track, pitch int, start, length float64, velocity int) Note {
	return Note{
		ID:       uuid.NewString(),
		Track:    track,
		Pitch:    ClampMIDIValue(pitch),
		Start:    start,
		Length:   length,
		Velocity: ClampMIDIValue(velocity),
	}
}

// NewBeat builds a Beat with a fresh ID.
func NewBeat(track int, position float64, velocity int) Beat {
	return Beat{
		ID:       uuid.NewString(),
		Track:    track,
		Position: position,
		Velocity: ClampMIDIValue(velocity),
	}
}

// ClampMIDIValue saturates v into the 7-bit MIDI range.
func ClampMIDIValue(v int) int {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}

// TempoChange is one breakpoint of the piecewise-constant tempo curve.
type TempoChange struct {
	Beat float64 `json:"beat"`
	BPM  float64 `json:"bpm"`
}

// DefaultBPM is assumed when a sequence carries no tempo information.
const DefaultBPM = 120

// TempoMap is an ordered list of tempo breakpoints. A breakpoint at
// beat 0 is always implied; Normalize makes it explicit.
type TempoMap []TempoChange

// Normalize sorts the breakpoints, drops duplicates at the same beat
// (last one wins) and anchors the map at beat 0 with DefaultBPM if no
// entry covers it.
func (tm TempoMap) Normalize() TempoMap {
	out := make(TempoMap, 0, len(tm)+1)
	out = append(out, tm...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Beat < out[j].Beat })

	dedup := out[:0]
	for _, tc := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Beat == tc.Beat {
			dedup[n-1] = tc
			continue
		}
		dedup = append(dedup, tc)
	}
	out = dedup

	if len(out) == 0 || out[0].Beat > 0 {
		out = append(TempoMap{{Beat: 0, BPM: DefaultBPM}}, out...)
	}
	return out
}

// BeatToSeconds converts a beat position to seconds by walking the
// tempo segments. speed scales playback (1 = normal). The result is
// monotonic in beat and continuous at breakpoints.
func (tm TempoMap) BeatToSeconds(beat, speed float64) float64 {
	if speed <= 0 {
		speed = 1
	}
	m := tm.Normalize()

	var seconds float64
	for i, tc := range m {
		segStart := tc.Beat
		segEnd := beat
		if i+1 < len(m) && m[i+1].Beat < beat {
			segEnd = m[i+1].Beat
		}
		if segEnd <= segStart {
			break
		}
		seconds += (segEnd - segStart) * 60 / (tc.BPM * speed)
		if segEnd == beat {
			break
		}
	}
	return seconds
}

// SampleRef points a track at an audio file to play instead of the
// built-in sine voice. PitchShift is in semitones.
type SampleRef struct {
	File       string  `json:"file"`
	PitchShift float64 `json:"pitchShift,omitempty"`
}

// Sequence is the serializable bundle handed across the CLI and HTTP
// boundaries: the full editor state the core needs for an export.
type Sequence struct {
	Notes       []Note            `json:"notes"`
	Beats       []Beat            `json:"beats"`
	Tempo       TempoMap          `json:"tempo,omitempty"`
	BPM         float64           `json:"bpm,omitempty"` // shorthand for a flat tempo
	Instruments map[int]int       `json:"instruments,omitempty"`
	Samples     map[int]SampleRef `json:"samples,omitempty"`
	BeatSamples map[int]SampleRef `json:"beatSamples,omitempty"`
	GridSize    int               `json:"gridSize,omitempty"`
}

// TempoOrDefault resolves the sequence's tempo map, honoring the flat
// BPM shorthand when no explicit map is present.
func (s *Sequence) TempoOrDefault() TempoMap {
	if len(s.Tempo) > 0 {
		return s.Tempo.Normalize()
	}
	bpm := s.BPM
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	return TempoMap{{Beat: 0, BPM: bpm}}
}

// Duration returns the end of the last note or beat, in beats.
func (s *Sequence) Duration() float64 {
	var end float64
	for _, n := range s.Notes {
		if e := n.Start + n.Length; e > end {
			end = e
		}
	}
	for _, b := range s.Beats {
		if b.Position > end {
			end = b.Position
		}
	}
	return end
}

// Load reads a sequence from a JSON file.
func Load(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading sequence file: %w", err)
	}
	var s Sequence
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing sequence file: %w", err)
	}
	return &s, nil
}

// Save writes a sequence to a JSON file.
func (s *Sequence) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding sequence: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("error writing sequence file: %w", err)
	}
	return nil
}
