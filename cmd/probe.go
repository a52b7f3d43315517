package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drgolem/liteplayer/adapters/source"
	"github.com/drgolem/liteplayer/pkg/extractor"
	"github.com/drgolem/liteplayer/pkg/types"
)

// probeCmd inspects a stream's container format without playing it: a
// read-only counterpart to play, exercising pkg/extractor directly.
var probeCmd = &cobra.Command{
	Use:   "probe <file_or_url>",
	Short: "Print container/codec information for a stream",
	Args:  cobra.ExactArgs(1),
	Run:   runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) {
	url := args[0]

	var wrapper types.SourceWrapper
	if len(url) >= 7 && url[:7] == "http://" {
		wrapper = source.NewHTTPSource("http", 0)
	} else if len(url) >= 8 && url[:8] == "https://" {
		wrapper = source.NewHTTPSource("https", 0)
	} else {
		wrapper = source.NewFileSource()
	}

	handle, err := wrapper.Open(context.Background(), url, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %q: %v\n", url, err)
		os.Exit(1)
	}
	defer wrapper.Close(handle)

	codec := extractor.SniffExtension(url)
	if codec == types.CodecUnknown {
		peek := make([]byte, extractor.SniffPeekSize)
		n, _ := wrapper.Read(handle, peek)
		codec = extractor.SniffMagic(peek[:n])
		if err := wrapper.Seek(handle, 0); err != nil {
			fmt.Fprintf(os.Stderr, "seek %q: %v\n", url, err)
			os.Exit(1)
		}
	}
	if codec == types.CodecUnknown {
		fmt.Fprintf(os.Stderr, "could not identify container format for %q\n", url)
		os.Exit(1)
	}

	fetch := func(buf []byte, off int64) (int, error) {
		if err := wrapper.Seek(handle, off); err != nil {
			return 0, err
		}
		return wrapper.Read(handle, buf)
	}
	info, err := extractor.Extract(codec, fetch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extract %q: %v\n", url, err)
		os.Exit(1)
	}

	fmt.Printf("url:      %s\n", url)
	fmt.Printf("codec:    %v\n", info.Codec)
	fmt.Printf("duration: %dms\n", info.Duration())
	switch info.Codec {
	case types.CodecPCM:
		fmt.Printf("format:   %dHz %dch %dbit\n", info.Wav.SampleRate, info.Wav.Channels, info.Wav.Bits)
	case types.CodecMP3:
		fmt.Printf("format:   %dHz %dch %dbps\n", info.Mp3.SampleRate, info.Mp3.Channels, info.Mp3.BitRate)
	case types.CodecM4A:
		fmt.Printf("format:   %dHz %dch %dbit\n", info.M4a.SampleRate, info.M4a.Channels, info.M4a.Bits)
	case types.CodecAAC:
		fmt.Printf("format:   %dHz %dch\n", info.Aac.SampleRate, info.Aac.Channels)
	}
}
