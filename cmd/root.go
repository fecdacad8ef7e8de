package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "anysound",
	Short: "Sequencer timeline to MIDI and WAV converter",
	Long: `anysound converts sequencer timelines (notes, beats and a tempo map)
to Standard MIDI Files and offline WAV mixdowns, and imports MIDI files
back into editable timelines.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
