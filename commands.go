package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"chatsync/internal/backend"
	"chatsync/internal/config"
	"chatsync/internal/history"
	"chatsync/internal/logging"
	"chatsync/internal/orchestrator"
	"chatsync/internal/ui"
)

// rootFlags holds the command-line overrides of the configuration
type rootFlags struct {
	configPath string
	backendURL string
	userID     string
	timeout    time.Duration
	discovery  string
	logPath    string
	verbose    bool
	noMarkdown bool
	recent     int
}

// app is the wiring shared by every command
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  *backend.Client
	display *ui.Display
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "chatsync",
		Short: "Multi-session terminal client for a chat backend",
		Long: `chatsync keeps several conversations with a chat backend side by side.

Messages appear immediately and are confirmed when the backend replies.
Switching sessions reloads their history from the backend.

Run without arguments to start the interactive chat.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()
			return runChat(cmd.Context(), a, cmd.InOrStdin())
		},
	}

	flags.bind(root.PersistentFlags())

	root.AddCommand(newSessionsCmd(flags), newLoginCmd(flags), newSummaryCmd(flags))
	return root
}

func (f *rootFlags) bind(pf *pflag.FlagSet) {
	pf.StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&f.backendURL, "backend", "", "chat backend base URL")
	pf.StringVarP(&f.userID, "user", "u", "", "user id whose sessions are listed")
	pf.DurationVar(&f.timeout, "timeout", 0, "backend request timeout")
	pf.StringVar(&f.discovery, "discovery", "", "initial session discovery: remote or local")
	pf.StringVar(&f.logPath, "log-file", "", "log file path (empty string disables logging)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&f.noMarkdown, "no-markdown", false, "print assistant replies without markdown rendering")
	pf.IntVar(&f.recent, "recent", 0, "messages shown when a session is loaded (0 shows all)")
}

// loadConfig layers explicitly set flags over the file and environment.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("backend") {
		cfg.BackendURL = flags.backendURL
	}
	if changed("user") {
		cfg.UserID = flags.userID
	}
	if changed("timeout") {
		cfg.RequestTimeout = flags.timeout
	}
	if changed("discovery") {
		cfg.Discovery = flags.discovery
	}
	if changed("log-file") {
		cfg.LogPath = flags.logPath
	}
	if changed("verbose") {
		cfg.Verbose = flags.verbose
	}
	if changed("no-markdown") {
		cfg.Markdown = !flags.noMarkdown
	}
	if changed("recent") {
		cfg.RecentCount = flags.recent
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func setup(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogPath, cfg.Verbose)
	if err != nil {
		return nil, err
	}
	logger.Info("Starting chatsync",
		zap.String("backend", cfg.BackendURL),
		zap.String("user", cfg.UserID),
		zap.String("discovery", cfg.Discovery),
		zap.String("command", cmd.Name()))

	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  backend.NewClient(cfg.BackendURL, cfg.RequestTimeout, backend.WithLogger(logger)),
		display: ui.NewDisplay(cmd.OutOrStdout(), ui.Options{Markdown: cfg.Markdown, Recent: cfg.RecentCount}),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) orchestratorOptions() orchestrator.Options {
	return orchestrator.Options{
		UserID:    a.cfg.UserID,
		Discovery: orchestrator.Discovery(a.cfg.Discovery),
		Logger:    a.logger,
	}
}

func newSessionsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions known to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.client.ListSessions(cmd.Context(), a.cfg.UserID)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			views := make([]orchestrator.SessionView, len(list))
			for i, s := range list {
				views[i] = orchestrator.SessionView{Session: s}
			}
			a.display.PrintSessions(views)
			return nil
		},
	}
}

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for the user id that scopes session listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()

			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				if username, err = prompt(cmd, in, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptSecret(cmd, in, "Password: "); err != nil {
					return err
				}
			}

			userID, err := a.client.Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			a.logger.Info("Logged in", zap.String("user", userID))
			a.display.PrintSuccess("Logged in as " + userID)
			a.display.PrintInfo(fmt.Sprintf("Use --user %s or export %sUSER_ID=%s", userID, config.EnvPrefix, userID))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account name (prompted when empty)")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newSummaryCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <session-id>",
		Short: "Print the backend's summary of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.client.Summary(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("summary: %w", err)
			}
			a.display.PrintSummary(history.Session{ID: args[0]}.Label(), s)
			return nil
		},
	}
}

func prompt(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return prompt(cmd, in, label)
	}
	fmt.Fprint(cmd.OutOrStdout(), label)
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(secret), nil
}
