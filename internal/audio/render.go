package audio

import (
	"context"
	"math"

	"github.com/yyya-nico/AnySound-Sequencer/internal/sequence"
)

const (
	// DefaultBlockSize is the mixing block length in samples. The
	// rendered output is bit-identical for any block size; the block
	// only bounds how often progress is reported and cancellation is
	// checked.
	DefaultBlockSize = 16384

	melodicGain    = 0.5
	percussiveGain = 0.7

	beatDuration   = 0.2 // seconds per rhythm hit
	beatFreqSnare  = 200.0
	beatFreqKick   = 150.0
	minDampingTime = 1e-3
)

// Render-time pitch range. Pitches outside the piano range saturate.
const (
	minRenderPitch = 21
	maxRenderPitch = 108
)

// RenderedAudio is the mixdown result: one float32 plane per output
// channel. Values are left unclamped; clamping happens at encode time.
type RenderedAudio struct {
	Channels   [][]float32
	SampleRate int
}

// SampleCount returns the per-channel sample count.
func (r *RenderedAudio) SampleCount() int {
	if len(r.Channels) == 0 {
		return 0
	}
	return len(r.Channels[0])
}

// ProgressFunc receives (samplesProcessed, totalSamples) after each
// mixed block.
type ProgressFunc func(done, total int)

// RenderConfig carries the fixed parameters of one mixdown.
type RenderConfig struct {
	SampleRate   int
	ChannelCount int
	Duration     float64 // seconds of output
	Speed        float64 // playback speed multiplier, 1 = normal
	MasterGain   float64 // defaults to 1
	BlockSize    int     // defaults to DefaultBlockSize

	// Sources maps melodic track numbers to sample sources; rhythm
	// tracks use BeatSources. Missing entries fall back to sine.
	Sources     map[int]Source
	BeatSources map[int]Source

	Progress ProgressFunc
}

// voice is one precomputed note or beat occurrence.
type voice struct {
	startSample int
	endSample   int
	duration    float64 // seconds, damping time constant
	gain        float64

	// sine
	frequency float64

	// file playback
	planes       [][]float32
	nativeRate   int
	playbackRate float64
}

// Render mixes the timeline into a fresh PCM buffer. The work runs on
// the calling goroutine; ctx is checked at block boundaries only, so
// cancellation never changes already-mixed samples.
func Render(ctx context.Context, notes []sequence.Note, beats []sequence.Beat, tempo sequence.TempoMap, cfg RenderConfig) (*RenderedAudio, error) {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.MasterGain == 0 {
		cfg.MasterGain = 1
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	if cfg.ChannelCount <= 0 {
		cfg.ChannelCount = 2
	}
	tempo = tempo.Normalize()

	totalSamples := int(math.Round(cfg.Duration * float64(cfg.SampleRate)))
	out := &RenderedAudio{SampleRate: cfg.SampleRate}
	out.Channels = make([][]float32, cfg.ChannelCount)
	for c := range out.Channels {
		out.Channels[c] = make([]float32, totalSamples)
	}

	voices := precompute(notes, beats, tempo, cfg)

	for blockStart := 0; blockStart < totalSamples; blockStart += cfg.BlockSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blockEnd := blockStart + cfg.BlockSize
		if blockEnd > totalSamples {
			blockEnd = totalSamples
		}
		for i := range voices {
			mixVoice(out, &voices[i], blockStart, blockEnd)
		}
		if cfg.Progress != nil {
			cfg.Progress(blockEnd, totalSamples)
		}
	}
	return out, nil
}

func precompute(notes []sequence.Note, beats []sequence.Beat, tempo sequence.TempoMap, cfg RenderConfig) []voice {
	voices := make([]voice, 0, len(notes)+len(beats))
	rate := float64(cfg.SampleRate)

	for _, n := range notes {
		pitch := clampPitch(n.Pitch)
		startSec := tempo.BeatToSeconds(n.Start, cfg.Speed)
		endSec := tempo.BeatToSeconds(n.Start+n.Length, cfg.Speed)
		v := voice{
			startSample: int(math.Floor(startSec * rate)),
			endSample:   int(math.Floor(endSec * rate)),
			duration:    endSec - startSec,
			gain:        cfg.MasterGain * float64(sequence.ClampMIDIValue(n.Velocity)) / 127.0 * melodicGain,
		}
		applySource(&v, cfg.Sources[n.Track], pitch, MIDINoteFrequency(pitch))
		voices = append(voices, v)
	}

	for _, b := range beats {
		startSec := tempo.BeatToSeconds(b.Position, cfg.Speed)
		freq := beatFreqSnare
		if b.Track == 1 {
			freq = beatFreqKick
		}
		v := voice{
			startSample: int(math.Floor(startSec * rate)),
			endSample:   int(math.Floor((startSec + beatDuration) * rate)),
			duration:    beatDuration,
			gain:        cfg.MasterGain * float64(sequence.ClampMIDIValue(b.Velocity)) / 127.0 * percussiveGain,
		}
		applySource(&v, cfg.BeatSources[b.Track], 60, freq)
		voices = append(voices, v)
	}

	return voices
}

func applySource(v *voice, src Source, pitch int, sineFreq float64) {
	if fs, ok := src.(*FileSource); ok && len(fs.Channels) > 0 {
		v.planes = fs.Channels
		v.nativeRate = fs.SampleRate
		v.playbackRate = math.Pow(2, (float64(pitch)-60+fs.PitchShift)/12)
		return
	}
	v.frequency = sineFreq
}

func clampPitch(p int) int {
	if p < minRenderPitch {
		return minRenderPitch
	}
	if p > maxRenderPitch {
		return maxRenderPitch
	}
	return p
}

// mixVoice adds the voice's contribution to every output sample inside
// [blockStart, blockEnd). All sample math derives from absolute sample
// indices, so the result is independent of block boundaries.
func mixVoice(out *RenderedAudio, v *voice, blockStart, blockEnd int) {
	from := v.startSample
	if from < blockStart {
		from = blockStart
	}
	to := v.endSample
	if to > blockEnd {
		to = blockEnd
	}
	if from >= to {
		return
	}

	rate := float64(out.SampleRate)
	damp := math.Max(minDampingTime, v.duration)

	if v.planes == nil {
		for i := from; i < to; i++ {
			t := float64(i-v.startSample) / rate
			s := math.Sin(2*math.Pi*v.frequency*t) * math.Exp(-t/damp) * v.gain
			for c := range out.Channels {
				out.Channels[c][i] += float32(s)
			}
		}
		return
	}

	for i := from; i < to; i++ {
		t := float64(i-v.startSample) / rate
		srcIndex := t * v.playbackRate * float64(v.nativeRate)
		idx := int(srcIndex)
		frac := float32(srcIndex - float64(idx))
		for c := range out.Channels {
			plane := v.planes[0]
			if c < len(v.planes) {
				plane = v.planes[c]
			}
			if idx < 0 || idx+1 >= len(plane) {
				continue
			}
			s := plane[idx] + (plane[idx+1]-plane[idx])*frac
			out.Channels[c][i] += s * float32(v.gain)
		}
	}
}
