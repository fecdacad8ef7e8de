// Package audio renders the sequence timeline into PCM and encodes it
// as 16-bit WAV.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Source is a per-track sample source: either a synthesized sine tone
// or a decoded audio file.
type Source interface {
	source()
}

// SineSource synthesizes a damped sine at the note's pitch
// (440 * 2^((pitch-69)/12) Hz).
type SineSource struct{}

func (SineSource) source() {}

// FileSource plays back a decoded audio file, pitch-shifted by
// resampling. PitchShift is in semitones relative to middle C.
type FileSource struct {
	Channels   [][]float32
	SampleRate int
	PitchShift float64
}

func (*FileSource) source() {}

// MIDINoteFrequency converts a MIDI note number to Hz (A4 = 440).
func MIDINoteFrequency(note int) float64 {
	return 440.0 * math.Pow(2.0, (float64(note)-69.0)/12.0)
}

// LoadWAV decodes a 16-bit PCM RIFF/WAVE file into channel planes.
// Only uncompressed 16-bit input is accepted; that is what the encoder
// side produces and what the editor hands us.
func LoadWAV(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading sample file: %w", err)
	}
	return DecodeWAV(data)
}

// DecodeWAV decodes 16-bit PCM RIFF/WAVE bytes into channel planes.
func DecodeWAV(data []byte) (*FileSource, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		numChannels   int
		sampleRate    int
		bitsPerSample int
		pcm           []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := data[pos+8:]
		if size > len(body) {
			return nil, fmt.Errorf("truncated %q chunk", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short (%d bytes)", size)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			if audioFormat != 1 {
				return nil, fmt.Errorf("unsupported audio format %d (want PCM)", audioFormat)
			}
			numChannels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
		case "data":
			pcm = body[:size]
		}
		// chunks are word-aligned
		pos += 8 + size + size&1
	}

	if numChannels == 0 || sampleRate == 0 {
		return nil, fmt.Errorf("missing fmt chunk")
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d (want 16)", bitsPerSample)
	}
	if pcm == nil {
		return nil, fmt.Errorf("missing data chunk")
	}

	frameCount := len(pcm) / (2 * numChannels)
	planes := make([][]float32, numChannels)
	for c := range planes {
		planes[c] = make([]float32, frameCount)
	}
	for i := 0; i < frameCount; i++ {
		for c := 0; c < numChannels; c++ {
			v := int16(binary.LittleEndian.Uint16(pcm[(i*numChannels+c)*2:]))
			planes[c][i] = float32(v) / 32768.0
		}
	}

	return &FileSource{Channels: planes, SampleRate: sampleRate}, nil
}
