// ABOUTME: Command line interface for the SoundDrift player
// ABOUTME: Resolves configuration, prompts for the phone address and runs the player
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SoundDrift/sounddrift-go/internal/config"
	"github.com/SoundDrift/sounddrift-go/internal/discovery"
	"github.com/SoundDrift/sounddrift-go/internal/logging"
	"github.com/SoundDrift/sounddrift-go/internal/ui"
	"github.com/SoundDrift/sounddrift-go/internal/version"
	"github.com/SoundDrift/sounddrift-go/pkg/audio/output"
	"github.com/SoundDrift/sounddrift-go/pkg/relay"
	"github.com/SoundDrift/sounddrift-go/pkg/sounddrift"
	"github.com/SoundDrift/sounddrift-go/pkg/source"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const promptText = "Enter Android phone's IP address: "

// deps are the pieces of the outside world the command touches
type deps struct {
	openSystem sounddrift.OpenSystemFunc
	dialer     source.Dialer
	discover   func(ctx context.Context, timeout time.Duration) (*discovery.ServerInfo, error)
	newTUI     func(ui.Options) *tea.Program
	signals    []os.Signal
}

func defaultDeps() deps {
	return deps{
		openSystem: output.Initialize,
		discover:   discovery.Discover,
		newTUI:     ui.New,
		signals:    []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error(err)
		return 1
	}
	return 0
}

// NewRootCommand builds the sounddrift command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps())
}

func newRootCommand(d deps) *cobra.Command {
	var (
		envFile string
		flags   = config.Default()
	)

	cmd := &cobra.Command{
		Use:   "sounddrift",
		Short: "Play audio streamed from an Android phone",
		Long: `sounddrift connects to an Android phone streaming raw PCM audio
(16-bit signed little-endian, mono, 44100 Hz) over TCP port 12345
and plays it on the local audio output until the phone closes the
stream or you press Ctrl+C.

With no server configured it asks for the phone's IP address.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			applyFlags(cmd, &cfg, flags)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			return run(cmd, cfg, d)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.Server, "server", "s", "", "phone address, host or host:port (skips the prompt)")
	f.IntVarP(&flags.Port, "port", "p", flags.Port, "server port when the address has none")
	f.StringVarP(&flags.Backend, "backend", "b", flags.Backend, "audio output backend (see 'sounddrift backends')")
	f.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "log level: debug, info, warn, error")
	f.StringVar(&flags.LogFile, "log-file", "", "also write logs to this file")
	f.DurationVar(&flags.DialTimeout, "dial-timeout", 0, "connect timeout (0 waits for the OS)")
	f.BoolVarP(&flags.Discover, "discover", "d", false, "find the phone on the local network instead of prompting")
	f.DurationVar(&flags.DiscoverTimeout, "discover-timeout", flags.DiscoverTimeout, "how long to browse for a server")
	f.BoolVar(&flags.TUI, "tui", false, "show a live status screen")
	f.StringVar(&envFile, "env-file", config.DefaultEnvFile, "optional .env file with SOUNDDRIFT_* settings")

	cmd.AddCommand(newVersionCommand(), newBackendsCommand())
	return cmd
}

// applyFlags overrides cfg with every flag set on the command line
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags config.Config) {
	changed := cmd.Flags().Changed
	if changed("server") {
		cfg.Server = flags.Server
	}
	if changed("port") {
		cfg.Port = flags.Port
	}
	if changed("backend") {
		cfg.Backend = flags.Backend
	}
	if changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if changed("log-file") {
		cfg.LogFile = flags.LogFile
	}
	if changed("dial-timeout") {
		cfg.DialTimeout = flags.DialTimeout
	}
	if changed("discover") {
		cfg.Discover = flags.Discover
	}
	if changed("discover-timeout") {
		cfg.DiscoverTimeout = flags.DiscoverTimeout
	}
	if changed("tui") {
		cfg.TUI = flags.TUI
	}
}

func run(cmd *cobra.Command, cfg config.Config, d deps) error {
	logger, closeLog, err := logging.Setup(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cmd.ErrOrStderr(),
		Quiet:   cfg.TUI,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Debug("Starting", "product", version.Product, "version", version.Version, "backend", cfg.Backend)

	ctx, stop := signal.NotifyContext(cmd.Context(), d.signals...)
	defer stop()

	out := cmd.OutOrStdout()
	resolve := func(ctx context.Context) (string, error) {
		if cfg.Discover {
			server, err := d.discover(ctx, cfg.DiscoverTimeout)
			if err != nil {
				return "", err
			}
			logger.Info("Discovered server", "name", server.Name, "addr", server.Addr())
			return server.Addr(), nil
		}
		return promptServer(ctx, cmd.InOrStdin(), out)
	}

	if cfg.TUI {
		return runTUI(ctx, cfg, d, resolve)
	}

	playerCfg := playerConfig(cfg, d)
	if cfg.Server == "" {
		playerCfg.ResolveServer = resolve
	}
	playerCfg.OnStateChange = announcer(out)

	player, err := sounddrift.NewPlayer(playerCfg)
	if err != nil {
		return err
	}

	res, err := player.Run(ctx)
	if err != nil {
		return err
	}
	logger.Debug("Stream finished", "reason", res.Reason, "chunks", res.Chunks, "bytes", res.Bytes)
	return nil
}

// runTUI runs the player under the status screen. The address is resolved
// before the screen takes over the terminal.
func runTUI(ctx context.Context, cfg config.Config, d deps, resolve func(context.Context) (string, error)) error {
	if cfg.Server == "" {
		addr, err := resolve(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		cfg.Server = addr
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var prog *tea.Program
	playerCfg := playerConfig(cfg, d)
	playerCfg.OnStateChange = func(s sounddrift.PlayerState) {
		prog.Send(statusMsg(s))
	}

	player, err := sounddrift.NewPlayer(playerCfg)
	if err != nil {
		return err
	}

	prog = d.newTUI(ui.Options{
		OnQuit: cancel,
		Stats: func() ui.StatsMsg {
			s := player.Stats()
			return ui.StatsMsg{Chunks: s.Chunks, Bytes: s.Bytes, Played: s.Played}
		},
	})

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		_, err := prog.Run()
		return err
	})
	g.Go(func() error {
		defer prog.Quit()
		_, err := player.Run(ctx)
		return err
	})
	return g.Wait()
}

func playerConfig(cfg config.Config, d deps) sounddrift.PlayerConfig {
	return sounddrift.PlayerConfig{
		ServerAddr:  cfg.Server,
		Port:        cfg.Port,
		Backend:     cfg.Backend,
		DialTimeout: cfg.DialTimeout,
		Dialer:      d.dialer,
		OpenSystem:  d.openSystem,
	}
}

// announcer prints the operator-facing progress lines
func announcer(out io.Writer) func(sounddrift.PlayerState) {
	return func(s sounddrift.PlayerState) {
		switch s.State {
		case sounddrift.StateConnecting:
			fmt.Fprintf(out, "Connecting to %s...\n", s.ServerAddr)
		case sounddrift.StateStreaming:
			fmt.Fprintln(out, "Connected to Android server")
		case sounddrift.StateStopping:
			if s.Reason == relay.Interrupted {
				fmt.Fprintln(out, "Stopping client...")
			}
		}
	}
}

func statusMsg(s sounddrift.PlayerState) ui.StatusMsg {
	connected := s.Connected
	msg := ui.StatusMsg{
		Connected:  &connected,
		ServerName: s.ServerAddr,
		SessionID:  s.SessionID,
		Backend:    s.Backend,
		Format:     s.Format.String(),
		State:      s.State,
	}
	if s.Reason != 0 {
		msg.Reason = s.Reason.String()
	}
	return msg
}

// promptServer asks for the phone address on out and reads one line from in
func promptServer(ctx context.Context, in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, promptText)

	type result struct {
		line string
		err  error
	}
	lines := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		lines <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(out)
		return "", ctx.Err()
	case r := <-lines:
		addr := strings.TrimSpace(r.line)
		if addr != "" {
			return addr, nil
		}
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return "", fmt.Errorf("failed to read address: %w", r.err)
		}
		return "", sounddrift.ErrNoServer
	}
}
