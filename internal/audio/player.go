package audio

import (
	"io"

	"github.com/ebitengine/oto/v3"
)

// Player streams a rendered buffer through the system audio output.
type Player struct {
	otoCtx *oto.Context
	player *oto.Player
	done   chan struct{}
}

// NewPlayer opens the audio device for the buffer's format and starts
// playback. Done() is closed when the stream has been fully read.
func NewPlayer(rendered *RenderedAudio) (*Player, error) {
	channelCount := len(rendered.Channels)
	if channelCount == 0 {
		channelCount = 1
	}

	op := &oto.NewContextOptions{
		SampleRate:   rendered.SampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}
	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	p := &Player{
		otoCtx: otoCtx,
		done:   make(chan struct{}),
	}
	p.player = otoCtx.NewPlayer(&bufferReader{rendered: rendered, done: p.done})
	p.player.Play()
	return p, nil
}

// Done is closed once the whole buffer has been handed to the device.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// bufferReader feeds the rendered planes to oto as interleaved 16-bit
// little-endian PCM, reusing the encoder's quantization so playback
// matches the exported file.
type bufferReader struct {
	rendered *RenderedAudio
	pos      int // frame cursor
	done     chan struct{}
	closed   bool
}

func (r *bufferReader) Read(buf []byte) (int, error) {
	channels := r.rendered.Channels
	channelCount := len(channels)
	total := r.rendered.SampleCount()

	if r.pos >= total {
		if !r.closed {
			r.closed = true
			close(r.done)
		}
		return 0, io.EOF
	}

	frameBytes := channelCount * 2
	frames := len(buf) / frameBytes
	if remaining := total - r.pos; frames > remaining {
		frames = remaining
	}

	for i := 0; i < frames; i++ {
		for c := 0; c < channelCount; c++ {
			v := quantize16(channels[c][r.pos+i])
			idx := (i*channelCount + c) * 2
			buf[idx] = byte(v)
			buf[idx+1] = byte(v >> 8)
		}
	}
	r.pos += frames
	return frames * frameBytes, nil
}
