package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/drgolem/go-portaudio/portaudio"

	asink "github.com/drgolem/liteplayer/adapters/sink"
	"github.com/drgolem/liteplayer/adapters/source"
	"github.com/drgolem/liteplayer/pkg/player"
	"github.com/drgolem/liteplayer/pkg/registry"
	"github.com/drgolem/liteplayer/pkg/types"
)

var (
	playDeviceIdx  int
	playBufferSize uint64
	playFrames     int
	playOutFile    string
	playVerbose    bool
)

// playCmd represents the play command, grounded on the teacher's
// cmd/player.go: PortAudio init/teardown, signal handling, and a status
// ticker, retargeted at pkg/player's state-machine engine instead of the
// teacher's audioplayer.Player.
var playCmd = &cobra.Command{
	Use:   "play <file_or_url>",
	Short: "Play an audio file or URL (MP3, WAV)",
	Long: `Play a local file or http(s) URL through the default audio device,
or to a WAV file with --out.

Examples:
  liteplayer play music.mp3
  liteplayer play https://example.com/stream.mp3
  liteplayer play --out copy.wav music.mp3`,
	Args: cobra.ExactArgs(1),
	Run:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", 0, "Audio output device index")
	playCmd.Flags().Uint64VarP(&playBufferSize, "buffer", "b", 256*1024, "Ring buffer size in bytes (decoded PCM, and compressed data for http(s) sources)")
	playCmd.Flags().IntVarP(&playFrames, "frames", "f", 512, "Audio frames per buffer")
	playCmd.Flags().StringVar(&playOutFile, "out", "", "Write decoded PCM to this WAV file instead of the audio device")
	playCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runPlay(cmd *cobra.Command, args []string) {
	url := args[0]

	logLevel := slog.LevelInfo
	if playVerbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	playerID := uuid.NewString()
	slog.Info("starting playback", "player_id", playerID, "url", url)

	reg := registry.New()
	reg.RegisterSourceWrapper(source.NewFileSource())
	reg.RegisterSourceWrapper(source.NewHTTPSource("http", int(playBufferSize)))
	reg.RegisterSourceWrapper(source.NewHTTPSource("https", int(playBufferSize)))

	var sinkPriv any
	if playOutFile != "" {
		reg.RegisterSinkWrapper(asink.NewWavFileSink(playOutFile))
	} else {
		if err := portaudio.Initialize(); err != nil {
			slog.Error("failed to initialize portaudio", "error", err, "hint", "make sure PortAudio is installed")
			os.Exit(1)
		}
		defer portaudio.Terminate()
		reg.RegisterSinkWrapper(asink.NewPortAudioSink(playDeviceIdx, playFrames))
	}

	cfg := player.DefaultConfig()
	cfg.PCMBufferSize = playBufferSize
	cfg.FramesPerBuffer = playFrames
	cfg.SinkPriv = sinkPriv

	p := player.New(reg, cfg)

	done := make(chan struct{})
	p.RegisterStateListener(func(s types.State, kind types.ErrorKind, priv any) {
		slog.Debug("state transition", "player_id", playerID, "state", s.String())
		switch s {
		case types.StateCompleted, types.StateError, types.StateStopped:
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})

	if err := p.SetDataSource(url); err != nil {
		slog.Error("set data source failed", "error", err)
		os.Exit(1)
	}
	if err := p.PrepareAsync(); err != nil {
		slog.Error("prepare failed", "error", err)
		os.Exit(1)
	}

	status := p.GetPlaybackStatus()
	slog.Info("stream ready", "sample_rate", status.SampleRate, "channels", status.Channels, "duration_ms", status.DurationMs)

	if err := p.Start(); err != nil {
		slog.Error("start failed", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			slog.Info("playback finished", "player_id", playerID, "final_state", p.State().String())
			return
		case sig := <-sigChan:
			slog.Info("signal received, stopping", "signal", sig)
			if err := p.Stop(); err != nil {
				slog.Error("stop failed", "error", err)
			}
			return
		case <-ticker.C:
			st := p.GetPlaybackStatus()
			fmt.Printf("\rposition=%dms duration=%dms buffer=%d/%d  ",
				st.PositionMs, st.DurationMs, st.BufferAvailable, st.BufferCapacity)
		}
	}
}
