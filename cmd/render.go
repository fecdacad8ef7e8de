package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/yyya-nico/AnySound-Sequencer/internal/audio"
	"github.com/yyya-nico/AnySound-Sequencer/internal/sequence"
	"github.com/yyya-nico/AnySound-Sequencer/internal/tui"
)

var (
	renderOutput   string
	renderRate     int
	renderChannels int
	renderSpeed    float64
	renderGain     float64
	renderDuration float64
)

var renderCmd = &cobra.Command{
	Use:   "render <sequence.json>",
	Short: "Render a sequence to a 16-bit WAV file",
	Long: `Render a sequence offline into a 16-bit PCM WAV file.

Tracks without a sample reference are synthesized as damped sine tones.
Rendering and encoding progress is shown in a terminal view.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "out.wav", "Output .wav path")
	renderCmd.Flags().IntVar(&renderRate, "rate", 44100, "Sample rate in Hz")
	renderCmd.Flags().IntVar(&renderChannels, "channels", 2, "Output channel count")
	renderCmd.Flags().Float64Var(&renderSpeed, "speed", 1.0, "Playback speed multiplier")
	renderCmd.Flags().Float64Var(&renderGain, "gain", 1.0, "Master gain")
	renderCmd.Flags().Float64Var(&renderDuration, "duration", 0, "Output length in seconds (0 = auto)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	seq, err := sequence.Load(args[0])
	if err != nil {
		return err
	}

	rendered, err := renderWithProgress(seq, "Rendering "+renderOutput)
	if err != nil {
		return err
	}

	if err := os.WriteFile(renderOutput, rendered, 0600); err != nil {
		return fmt.Errorf("error writing WAV file: %w", err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", renderOutput, len(rendered))
	return nil
}

// renderWithProgress runs the mixdown and encode while driving the
// progress TUI, and returns the encoded WAV bytes.
func renderWithProgress(seq *sequence.Sequence, title string) ([]byte, error) {
	cfg, err := buildRenderConfig(seq)
	if err != nil {
		return nil, err
	}

	p := tea.NewProgram(tui.NewProgressModel(title))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wav []byte
	go func() {
		cfg.Progress = func(done, total int) {
			p.Send(tui.ProgressMsg{Phase: "Rendering", Done: done, Total: total})
		}
		rendered, err := audio.Render(ctx, seq.Notes, seq.Beats, seq.TempoOrDefault(), cfg)
		if err != nil {
			p.Send(tui.DoneMsg{Err: err})
			return
		}

		progressCh, resultCh := audio.StartEncode(rendered)
		for pr := range progressCh {
			p.Send(tui.ProgressMsg{Phase: "Encoding", Done: pr.Done, Total: pr.Total})
		}
		res := <-resultCh
		if res.Err != nil {
			p.Send(tui.DoneMsg{Err: res.Err})
			return
		}
		wav = res.Data
		p.Send(tui.DoneMsg{})
	}()

	final, err := p.Run()
	cancel()
	if err != nil {
		return nil, fmt.Errorf("error running progress view: %w", err)
	}
	if m, ok := final.(tui.ProgressModel); ok && m.Err() != nil {
		return nil, m.Err()
	}
	if wav == nil {
		return nil, fmt.Errorf("render canceled")
	}
	return wav, nil
}

// buildRenderConfig resolves flags and the sequence's sample
// references into a render configuration.
func buildRenderConfig(seq *sequence.Sequence) (audio.RenderConfig, error) {
	cfg := audio.RenderConfig{
		SampleRate:   renderRate,
		ChannelCount: renderChannels,
		Speed:        renderSpeed,
		MasterGain:   renderGain,
		Duration:     renderDuration,
	}
	if cfg.Duration <= 0 {
		// end of the last event plus a one second release tail
		cfg.Duration = seq.TempoOrDefault().BeatToSeconds(seq.Duration(), cfg.Speed) + 1
	}

	var err error
	if cfg.Sources, err = loadSampleRefs(seq.Samples); err != nil {
		return cfg, err
	}
	if cfg.BeatSources, err = loadSampleRefs(seq.BeatSamples); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadSampleRefs(refs map[int]sequence.SampleRef) (map[int]audio.Source, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make(map[int]audio.Source, len(refs))
	for track, ref := range refs {
		fs, err := audio.LoadWAV(ref.File)
		if err != nil {
			return nil, fmt.Errorf("error loading sample for track %d: %w", track, err)
		}
		fs.PitchShift = ref.PitchShift
		out[track] = fs
	}
	return out, nil
}
