package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yyya-nico/AnySound-Sequencer/internal/audio"
	"github.com/yyya-nico/AnySound-Sequencer/internal/sequence"
)

var playCmd = &cobra.Command{
	Use:   "play <sequence.json>",
	Short: "Render a sequence and play it through the system audio output",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	seq, err := sequence.Load(args[0])
	if err != nil {
		return err
	}

	cfg, err := buildRenderConfig(seq)
	if err != nil {
		return err
	}

	rendered, err := audio.Render(context.Background(), seq.Notes, seq.Beats, seq.TempoOrDefault(), cfg)
	if err != nil {
		return err
	}

	player, err := audio.NewPlayer(rendered)
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}

	fmt.Printf("Playing %.1fs at %d Hz... (Ctrl+C to stop)\n", cfg.Duration, cfg.SampleRate)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-player.Done():
	case <-sig:
	}
	return nil
}
