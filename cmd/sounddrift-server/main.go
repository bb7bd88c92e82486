// ABOUTME: Entry point for the SoundDrift development server
// ABOUTME: Streams a test tone or an audio file to sounddrift players over TCP
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/SoundDrift/sounddrift-go/internal/logging"
	"github.com/SoundDrift/sounddrift-go/internal/server"
	"github.com/SoundDrift/sounddrift-go/internal/version"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newCommand().ExecuteContext(context.Background()); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		cfg         server.Config
		logLevel    string
		logFile     string
		noMDNS      bool
		noBroadcast bool
	)

	cmd := &cobra.Command{
		Use:   "sounddrift-server",
		Short: "Stream PCM audio to sounddrift players",
		Long: `sounddrift-server stands in for the Android phone. It listens on TCP
port 12345 and streams 16-bit signed little-endian mono 44100 Hz PCM
to one client at a time, from a 440 Hz test tone or an MP3/FLAC file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := logging.Setup(logging.Options{
				Level:   logLevel,
				File:    logFile,
				Console: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer closeLog()

			cfg.EnableMDNS = !noMDNS
			cfg.EnableBroadcast = !noBroadcast
			logger.Info("Starting SoundDrift server", "version", version.Version, "addr", cfg.Addr)
			logger.Info("Press Ctrl-C to stop")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := server.New(cfg).ListenAndServe(ctx); err != nil {
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Addr, "addr", ":12345", "listen address")
	f.StringVar(&cfg.Name, "name", "", "mDNS service name (default: hostname-sounddrift-server)")
	f.BoolVar(&noMDNS, "no-mdns", false, "disable mDNS advertisement")
	f.BoolVar(&noBroadcast, "no-broadcast", false, "do not answer UDP discovery requests")
	f.StringVar(&cfg.DiscoveryAddr, "discovery-addr", ":55558", "UDP address for discovery requests")
	f.StringVarP(&cfg.Source.Path, "audio", "a", "", "MP3, FLAC or raw s16le file to stream (default: test tone)")
	f.BoolVar(&cfg.Source.Loop, "loop", false, "restart the file at the end instead of closing the stream")
	f.Float64Var(&cfg.Source.ToneFrequency, "tone", server.DefaultToneFrequency, "test tone frequency in Hz")
	f.Int64Var(&cfg.MaxBytes, "max-bytes", 0, "close each stream after this many bytes (0 = unlimited)")
	f.BoolVar(&cfg.NoPacing, "no-pacing", false, "send as fast as the client reads")
	f.IntVar(&cfg.ChunkSize, "chunk-size", 1024, "bytes per write")
	f.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&logFile, "log-file", "", "also write logs to this file")

	return cmd
}
