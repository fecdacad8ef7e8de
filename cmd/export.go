package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yyya-nico/AnySound-Sequencer/internal/midi"
	"github.com/yyya-nico/AnySound-Sequencer/internal/sequence"
)

var (
	exportOutput string
	exportTPQ    uint16
)

var exportCmd = &cobra.Command{
	Use:   "export <sequence.json>",
	Short: "Export a sequence to a Standard MIDI File",
	Long: `Export a sequence JSON file to a format-1 Standard MIDI File.

Track 0 carries the tempo; each note track becomes its own MIDI track
and all beats merge into one percussion track on channel 10.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "out.mid", "Output .mid path")
	exportCmd.Flags().Uint16Var(&exportTPQ, "resolution", 480, "Ticks per quarter note")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	seq, err := sequence.Load(args[0])
	if err != nil {
		return err
	}

	bpm := seq.TempoOrDefault()[0].BPM
	f := midi.FromSequence(seq.Notes, seq.Beats, bpm, exportTPQ)
	if err := os.WriteFile(exportOutput, f.Bytes(), 0600); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}

	fmt.Printf("Wrote %s (%d tracks)\n", exportOutput, len(f.Tracks))
	return nil
}
