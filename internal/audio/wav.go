package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	wavBitsPerSample  = 16
	wavBytesPerSample = wavBitsPerSample / 8
	wavHeaderSize     = 44
)

// EncodeWAV serializes float32 channel planes as canonical RIFF/WAVE
// bytes: 16-bit little-endian PCM, frame-major interleaving. Samples
// are clamped to [-1, 1] and quantized with negative values scaled by
// 0x8000 and non-negative by 0x7FFF, rounded to nearest.
//
// progress may be nil; when set it is called roughly every
// max(65536, total/200) samples and once at completion.
func EncodeWAV(planes [][]float32, sampleRate int, progress ProgressFunc) ([]byte, error) {
	numChannels := len(planes)
	if numChannels == 0 {
		return nil, fmt.Errorf("no channel data")
	}
	numSamples := len(planes[0])
	for c, p := range planes {
		if len(p) != numSamples {
			return nil, fmt.Errorf("channel %d has %d samples, want %d", c, len(p), numSamples)
		}
	}

	blockAlign := numChannels * wavBytesPerSample
	dataLen := numSamples * blockAlign

	out := make([]byte, 0, wavHeaderSize+dataLen)
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+dataLen))
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, uint16(numChannels))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate*blockAlign))
	out = binary.LittleEndian.AppendUint16(out, uint16(blockAlign))
	out = binary.LittleEndian.AppendUint16(out, wavBitsPerSample)
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(dataLen))

	step := progressStep(numSamples)
	for i := 0; i < numSamples; i++ {
		for c := 0; c < numChannels; c++ {
			out = binary.LittleEndian.AppendUint16(out, uint16(quantize16(planes[c][i])))
		}
		if progress != nil && (i+1)%step == 0 {
			progress(i+1, numSamples)
		}
	}
	if progress != nil {
		progress(numSamples, numSamples)
	}
	return out, nil
}

// progressStep picks the coarser of a fixed 65536-sample cadence and
// roughly 200 updates over the whole buffer.
func progressStep(total int) int {
	step := 65536
	if byCount := total / 200; byCount > step {
		step = byCount
	}
	return step
}

// quantize16 converts one float sample to signed 16-bit PCM.
func quantize16(v float32) int16 {
	f := float64(v)
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	if f < 0 {
		return int16(math.Round(f * 0x8000))
	}
	return int16(math.Round(f * 0x7FFF))
}
