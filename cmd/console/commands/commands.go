package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/adapters/devbackend"
	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/application/services"
	"github.com/taskmaster/console/internal/infrastructure/config"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/infrastructure/server"
	"github.com/taskmaster/console/internal/session"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type globalFlags struct {
	backend   string
	tokenFile string
	verbose   bool
}

// NewRootCommand builds the taskmaster command tree
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "taskmaster",
		Short:         "TaskMaster web console and command line client",
		Long:          `TaskMaster talks to the project management backend: it serves the web console, or works with projects, tasks and assignment offers from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "Backend base URL (overrides BACKEND_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flags.tokenFile, "token-file", "", "Where the CLI keeps its session token")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log backend calls to stderr")

	// Add commands
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewDevBackendCommand())
	rootCmd.AddCommand(NewLoginCommand(flags))
	rootCmd.AddCommand(NewLogoutCommand(flags))
	rootCmd.AddCommand(NewWhoamiCommand(flags))
	rootCmd.AddCommand(NewProjectsCommand(flags))
	rootCmd.AddCommand(NewBoardCommand(flags))
	rootCmd.AddCommand(NewTasksCommand(flags))
	rootCmd.AddCommand(NewUsersCommand(flags))
	rootCmd.AddCommand(NewInboxCommand(flags))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the TaskMaster web console",
		Long:  "Start the web console in front of the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// NewDevBackendCommand creates the devbackend command
func NewDevBackendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devbackend",
		Short: "Start the in-memory development backend",
		Long:  "Start a seeded, in-memory implementation of the backend REST API for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevBackend()
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print TaskMaster version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "TaskMaster Console %s\n", Version)
		},
	}
}

type stopper interface {
	Shutdown(ctx context.Context) error
}

// serveUntilSignal runs start until it fails or the process is told to
// stop, then shuts srv down gracefully.
func serveUntilSignal(appLogger *logger.Logger, srv stopper, start func() error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorw("Graceful shutdown failed", "error", err)
		return err
	}
	return nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	srv, err := server.New(cfg, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to initialize server", "error", err)
		return err
	}

	return serveUntilSignal(appLogger, srv, srv.Start)
}

func runDevBackend() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	backend, err := devbackend.New(cfg.DevBackend, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to initialize dev backend", "error", err)
		return err
	}
	if cfg.DevBackend.Seed {
		fmt.Fprintf(os.Stderr, "Demo accounts use the password %q\n", devbackend.DemoPassword)
	}

	return serveUntilSignal(appLogger, backend, func() error {
		return backend.Start(fmt.Sprintf(":%d", cfg.DevBackend.Port))
	})
}

// cliApp is what the client commands share: the config and a workspace
// bound to the token file.
type cliApp struct {
	cfg    *config.Config
	logger *logger.Logger
	ws     *services.Workspace
	store  *session.FileStore
}

func newCLIApp(flags *globalFlags) (*cliApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.backend != "" {
		cfg.Backend.BaseURL = flags.backend
	}

	appLogger := logger.NewNop()
	if flags.verbose {
		logCfg := cfg.Logger
		logCfg.Output = "stderr"
		logCfg.Format = "console"
		logCfg.Level = "debug"
		if appLogger, err = logger.New(logCfg); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	path := flags.tokenFile
	if path == "" {
		path = cfg.Session.TokenFile
	}
	if path == "" {
		if path, err = session.DefaultTokenPath(); err != nil {
			return nil, err
		}
	}
	store := session.NewFileStore(path)

	client := api.New(cfg.Backend, api.WithLogger(appLogger))
	cache := query.NewCache(
		query.WithDefaultStaleTime(cfg.Cache.StaleTime),
		query.WithLogger(appLogger),
	)
	ws := services.NewWorkspace(client, session.New(store, appLogger), cache, services.WorkspaceOptions{
		MeStaleTime: cfg.Cache.MeStaleTime,
		Logger:      appLogger,
	})

	return &cliApp{cfg: cfg, logger: appLogger, ws: ws, store: store}, nil
}

// close waits for background cache refreshes so none is cut short.
func (a *cliApp) close() {
	a.ws.Cache.Wait()
	_ = a.logger.Close()
}

// requireUser returns the signed-in user or an error telling how to sign in.
func (a *cliApp) requireUser(ctx context.Context) (*services.AuthState, error) {
	state := a.ws.Auth.Current(ctx)
	if state.Err != nil {
		return nil, describe(state.Err)
	}
	if !state.IsAuthenticated {
		return nil, errors.New("not signed in, run `taskmaster login`")
	}
	return &state, nil
}

// describe turns a backend failure into a one-line message.
func describe(err error) error {
	var verr *services.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		return verr
	case api.IsNetwork(err):
		return fmt.Errorf("backend unreachable: %w", err)
	default:
		return errors.New(api.Message(err, err.Error()))
	}
}
