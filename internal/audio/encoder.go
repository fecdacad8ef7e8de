package audio

import "fmt"

// EncodeResult is the single message delivered when an encode finishes.
// Exactly one of Data or Err is set.
type EncodeResult struct {
	Data []byte
	Err  error
}

// EncodeProgress is a coalesced progress update from the encoder.
type EncodeProgress struct {
	Done  int
	Total int
}

// StartEncode runs EncodeWAV on its own goroutine so large buffers
// never block the caller. The rendered audio is moved into the encoder;
// the caller must not touch it afterwards. Progress updates arrive on
// the first channel at a bounded cadence; the result (or one error)
// arrives exactly once on the second, after the progress channel is
// closed. Abandoning both channels is a safe way to cancel: both are
// buffered enough that the goroutine always terminates.
func StartEncode(rendered *RenderedAudio) (<-chan EncodeProgress, <-chan EncodeResult) {
	progressCh := make(chan EncodeProgress, 256)
	resultCh := make(chan EncodeResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- EncodeResult{Err: fmt.Errorf("encoder failure: %v", r)}
			}
			close(resultCh)
		}()
		defer close(progressCh)

		data, err := EncodeWAV(rendered.Channels, rendered.SampleRate, func(done, total int) {
			select {
			case progressCh <- EncodeProgress{Done: done, Total: total}:
			default:
				// drop rather than stall the encode when the consumer
				// lags; the final result is never dropped
			}
		})
		if err != nil {
			resultCh <- EncodeResult{Err: err}
			return
		}
		resultCh <- EncodeResult{Data: data}
	}()

	return progressCh, resultCh
}
