package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chatkeep/internal/backend"
	"chatkeep/internal/config"
	"chatkeep/internal/logger"
	"chatkeep/internal/store"
)

var (
	cfgFile string
	cfg     *config.Config
	logr    *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chatkeep",
	Short: "Durable chat-session store: create, append, list, search and expire conversations",
	Long: `chatkeep keeps chat sessions (ordered user/assistant messages with derived
titles) in a pluggable backend: JSON files, SQLite, Redis or S3.
Every command reads through the same store the chat UI and bot runtime use.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.NewViper()
		if err := bindFlags(v, cmd); err != nil {
			return err
		}

		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		l, err := logger.New(loaded.Log.Level, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		cfg, logr = loaded, l
		if cfg.File != "" {
			logr.Debug("Loaded config", "file", cfg.File)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default <data-dir>/chatkeep.yaml)")
	flags.String("data-dir", "", "directory for sessions and config (default $XDG_DATA_HOME/chatkeep)")
	flags.String("backend", "", "storage backend: file, sqlite, redis, s3, memory")
	flags.String("log-level", "", "log level: debug, info, warn, error")
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	bindings := map[string]string{
		config.KeyDataDir:     "data-dir",
		config.KeyBackendType: "backend",
		config.KeyLogLevel:    "log-level",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (*store.Store, error) {
	bc := cfg.BackendConfig()
	b, err := backend.Open(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bc.Type, err)
	}
	logr.Debug("Opened backend", "type", bc.Type)
	return store.New(b, store.WithLogger(logr)), nil
}

// sessionErr rewrites lookup failures into a message naming the id.
func sessionErr(id string, err error) error {
	if errors.Is(err, store.ErrSessionNotFound) {
		return fmt.Errorf("session %q not found", id)
	}
	return err
}
