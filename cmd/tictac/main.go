// Package main provides the CLI entrypoint for tictac.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/tictac/internal/config"
	"github.com/verte-zerg/tictac/internal/logging"
	"github.com/verte-zerg/tictac/internal/model"
	"github.com/verte-zerg/tictac/internal/session"
	"github.com/verte-zerg/tictac/internal/stats"
	"github.com/verte-zerg/tictac/internal/store"
	"github.com/verte-zerg/tictac/internal/transport"
	"github.com/verte-zerg/tictac/internal/tui"
)

const (
	defaultCurveWindow = 10
	defaultLogLevel    = "info"
)

var (
	devicePort    string
	deviceBaud    int
	deviceMockIn  string
	deviceMockOut string
	logLevel      string

	statsMode   string
	statsSince  string
	statsLast   int
	statsWindow int

	resetHistory bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tictac",
		Short:         "Tic-tac-toe client for the serial game board",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	addDeviceFlags(rootCmd)

	rootCmd.AddCommand(newScriptCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newPortsCmd())
	rootCmd.AddCommand(newResetStatsCmd())

	return rootCmd
}

func addDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&devicePort, "port", "", "serial port (default: platform specific)")
	cmd.Flags().IntVar(&deviceBaud, "baud", transport.DefaultBaud, "baud rate")
	cmd.Flags().StringVar(&deviceMockIn, "mock-in", transport.DefaultMockInPath, "mock input file used when CI is set")
	cmd.Flags().StringVar(&deviceMockOut, "mock-out", transport.DefaultMockOutPath, "mock output file used when CI is set")
	cmd.Flags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
}

// app holds what every game-driving command needs.
type app struct {
	ctrl   *session.Controller
	store  *store.Store
	logger *zap.Logger
}

func (a *app) Close() {
	if cerr := a.ctrl.Close(); cerr != nil {
		a.logger.Warn("failed to close transport", zap.Error(cerr))
	}
	if cerr := a.store.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
	if err := a.logger.Sync(); err != nil {
		// Best-effort flush; syncing stderr fails on some platforms.
		_ = err
	}
}

// openApp loads configuration and state, opens the history store and the
// transport, and builds the session controller. logPath overrides the
// configured log file when non-empty.
func openApp(cmd *cobra.Command, logPath string) (*app, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "port", &devicePort, fileCfg.Device.Port)
	applyIntConfig(cmd, "baud", &deviceBaud, fileCfg.Device.Baud)
	applyStringConfig(cmd, "mock-in", &deviceMockIn, fileCfg.Device.MockInPath)
	applyStringConfig(cmd, "mock-out", &deviceMockOut, fileCfg.Device.MockOutPath)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	if logPath == "" {
		logPath = fileCfg.Log.File
	}

	if deviceBaud <= 0 {
		return nil, fmt.Errorf("--baud must be > 0")
	}

	logger, err := logging.New(logLevel, logPath)
	if err != nil {
		return nil, err
	}

	stateFile := config.NewStateFile(fileCfg.Storage.StatePath)
	initial, err := stateFile.Load()
	if err != nil {
		if !errors.Is(err, config.ErrStateNotFound) {
			logger.Warn("failed to load state, using defaults", zap.Error(err))
		} else {
			logger.Info("no saved state, starting fresh", zap.String("path", stateFile.Path))
		}
		initial = config.State{}
	}

	st, err := store.Open(fileCfg.Storage.HistoryPath)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	opts := transport.DefaultOptions()
	opts.Mock = transport.MockRequested()
	opts.Baud = deviceBaud
	opts.MockInPath = deviceMockIn
	opts.MockOutPath = deviceMockOut
	if devicePort != "" {
		opts.Port = devicePort
	}
	tr, err := transport.Open(opts)
	if err != nil {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
		_ = logger.Sync()
		return nil, err
	}
	logger.Info("transport opened", zap.String("transport", tr.Name()))

	ctrl := session.New(tr, session.Options{
		Initial:   initial,
		Persister: stateFile,
		Recorder:  st,
		Logger:    logger,
	})
	return &app{ctrl: ctrl, store: st, logger: logger}, nil
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("stdout is not a terminal; use `tictac script` for non-interactive play")
	}
	a, err := openApp(cmd, "")
	if err != nil {
		return err
	}
	defer a.Close()

	program := tea.NewProgram(tui.NewModel(a.ctrl), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script [file]",
		Short: "Play intents read from a file or stdin",
		Long: `Play intents read from a file or stdin, one per line:

  move <row> <col>
  reset
  mode pvp|player|ai
  led 1|2

Blank lines and lines starting with # are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScriptCmd,
	}
	addDeviceFlags(cmd)
	return cmd
}

func runScriptCmd(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				// Best-effort close for read-only file.
				_ = cerr
			}
		}()
		in = f
	}

	a, err := openApp(cmd, "stderr")
	if err != nil {
		return err
	}
	defer a.Close()

	return runScript(context.Background(), a.ctrl, in, cmd.OutOrStdout())
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats and recent games",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsMode, "mode", "", "mode filter (pvp, player_first, ai_first)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 20, "limit to last N games")
	cmd.Flags().IntVar(&statsWindow, "window", defaultCurveWindow, "moving average window for the win-rate trend")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	filter, err := historyFilter(statsMode, statsSince, statsLast)
	if err != nil {
		return err
	}

	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	state, stateErr := config.NewStateFile(fileCfg.Storage.StatePath).Load()
	if stateErr != nil && !errors.Is(stateErr, config.ErrStateNotFound) {
		return fmt.Errorf("failed to load state: %w", stateErr)
	}

	st, err := store.Open(fileCfg.Storage.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildReport(context.Background(), st, filter)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	summary := model.Stats{PvP: state.PvP, AI: state.AI}
	if stateErr != nil {
		// No saved counters yet; rebuild them from whatever history exists.
		summary = stats.HistoryStats(report.Games)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, summary); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderHistory(out, report.Games, statsWindow); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(report.Outcomes) > 0 {
		if _, err := fmt.Fprintf(out, "\nAll recorded results: %s\n", formatOutcomes(report.Outcomes)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func historyFilter(mode, since string, last int) (model.HistoryFilter, error) {
	filter := model.HistoryFilter{Mode: model.Mode(mode), Last: last}
	if mode != "" && !filter.Mode.Valid() {
		return model.HistoryFilter{}, fmt.Errorf("invalid --mode value %q", mode)
	}
	if last < 0 {
		return model.HistoryFilter{}, fmt.Errorf("--last must be >= 0")
	}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.HistoryFilter{}, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	return filter, nil
}

func formatOutcomes(counts map[model.Outcome]int) string {
	order := []model.Outcome{model.OutcomeXWin, model.OutcomeOWin, model.OutcomeYouWin, model.OutcomeAIWin, model.OutcomeDraw}
	parts := make([]string, 0, len(order))
	for _, o := range order {
		if n, ok := counts[o]; ok {
			parts = append(parts, fmt.Sprintf("%s %d", o, n))
		}
	}
	return strings.Join(parts, ", ")
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE:  runPortsCmd,
	}
}

func runPortsCmd(cmd *cobra.Command, _ []string) error {
	ports, err := transport.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		logErrf("No serial ports found. The board usually shows up as %s\n", transport.DefaultPort())
		return fmt.Errorf("no serial ports found")
	}
	for _, p := range ports {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), p); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newResetStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-stats",
		Short: "Zero the win/loss counters",
		Args:  cobra.NoArgs,
		RunE:  runResetStatsCmd,
	}
	cmd.Flags().BoolVar(&resetHistory, "history", false, "also delete recorded games")
	return cmd
}

func runResetStatsCmd(_ *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	stateFile := config.NewStateFile(fileCfg.Storage.StatePath)
	state, err := stateFile.Load()
	if err != nil && !errors.Is(err, config.ErrStateNotFound) {
		return fmt.Errorf("failed to load state: %w", err)
	}
	state.PvP = model.PvPStats{}
	state.AI = model.AIStats{}
	if err := stateFile.Save(state); err != nil {
		return err
	}
	logErrf("Cleared counters in %s\n", stateFile.Path)

	if !resetHistory {
		return nil
	}
	st, err := store.Open(fileCfg.Storage.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	n, err := st.DeleteAll(context.Background())
	if err != nil {
		return err
	}
	logErrf("Deleted %d recorded games\n", n)
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target *string, value string) {
	if value == "" {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyIntConfig(cmd *cobra.Command, name string, target *int, value int) {
	if value == 0 {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tictac configuration
# Uncomment a value to enable it. CLI flags override config values,
# TICTAC_* environment variables override this file.

[device]
# port = %q       # Serial port of the game board
# baud = %d                  # Baud rate
# mock-in = %q   # Replies read when CI is set
# mock-out = %q # Commands written when CI is set

[storage]
# state = %q
# history = %q

[log]
# level = %q                # debug, info, warn, error
# file = %q
`,
		transport.DefaultPort(),
		transport.DefaultBaud,
		transport.DefaultMockInPath,
		transport.DefaultMockOutPath,
		config.DefaultStatePath(),
		config.DefaultDBPath(),
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
