package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yyya-nico/AnySound-Sequencer/internal/midi"
)

var importOutput string

var importCmd = &cobra.Command{
	Use:   "import <file.mid>",
	Short: "Import a Standard MIDI File into a sequence",
	Long: `Import a Standard MIDI File and write the reconstructed sequence as
JSON: notes, beats, instrument programs, BPM and grid size.

Only the first tempo event is honored; later tempo changes are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "sequence.json", "Output .json path")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("error reading MIDI file: %w", err)
	}

	f, err := midi.Parse(data)
	if err != nil {
		return err
	}
	for _, d := range f.Diagnostics {
		fmt.Fprintf(os.Stderr, "warning: %s\n", d)
	}

	seq := midi.ToSequence(f)
	if err := seq.Save(importOutput); err != nil {
		return err
	}

	fmt.Printf("Wrote %s (%d notes, %d beats)\n", importOutput, len(seq.Notes), len(seq.Beats))
	return nil
}
