package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "liteplayer",
	Short: "Lightweight streaming audio player engine",
	Long: `liteplayer - a lightweight streaming audio player engine.

Plays MP3 and WAV/PCM streams from local files or HTTP(S) URLs
through a pull-model decode/resample/sink pipeline, with a registry-based
adapter model for sources and sinks. M4A/AAC containers are recognized
(see probe), but no AAC decoder is built in, so play cannot play them.

Commands:
  - play:  play a local file or URL through the default audio device
  - probe: inspect a stream's container format without playing it`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
