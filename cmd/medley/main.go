// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ik5/medley/audio"
	"github.com/ik5/medley/config"
	"github.com/ik5/medley/device"
	"github.com/ik5/medley/engine"
	"github.com/ik5/medley/formats/aiff"
	"github.com/ik5/medley/formats/flac"
	"github.com/ik5/medley/formats/mp3"
	"github.com/ik5/medley/formats/vorbis"
	"github.com/ik5/medley/formats/wav"
	"github.com/ik5/medley/queue"
)

const version = "0.1.0"

var (
	configPath string
	queuePaths []string
)

var rootCmd = &cobra.Command{
	Use:   "medley",
	Short: "medley plays a queue of audio files with automatic crossfades.",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a medley.yaml config file")
	rootCmd.Flags().StringArrayVar(&queuePaths, "track", nil, "track path to enqueue (repeatable)")
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func run(cmd *cobra.Command, args []string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "medley").Logger()
	logger.Info().Str("version", version).Msg("medley starting")

	settings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("flac", flac.Decoder{})

	q := queue.NewList()
	for _, path := range queuePaths {
		q.PushPath(path)
	}
	for _, path := range args {
		q.PushPath(path)
	}
	if q.Count() == 0 {
		return fmt.Errorf("no tracks given: pass --track or positional file arguments")
	}

	dev := device.NewOto(logger)

	eng, err := engine.New(engine.Config{
		Queue:    q,
		Registry: reg,
		Device:   dev,
		Settings: settings,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}
	defer eng.Close()

	eng.Play()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Msg("medley playing, press Ctrl+C to stop")
	<-ctx.Done()

	logger.Info().Msg("medley shutting down")
	eng.Stop()
	return nil
}
