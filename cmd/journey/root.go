package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/journey/internal/cli"
	"github.com/aretw0/journey/internal/config"
	"github.com/aretw0/journey/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"workflows_dir": "dir",
	"log.level":     "log-level",
	"log.format":    "log-format",
	"store.driver":  "store",
	"store.dir":     "store-dir",
	"http.addr":     "addr",
}

var rootCmd = &cobra.Command{
	Use:   "journey",
	Short: "Journey runs block-based conversational workflows",
	Long: `Journey interprets workflows made of nodes and blocks: it shows content,
asks for input, branches on conditions and delegates work to registered actions.
Workflows can be run in the terminal, served over HTTP or exposed to agents via MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.New()
		if err := config.BindFlags(v, cmd.Flags(), flagKeys); err != nil {
			return err
		}
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
		if cfg.File != "" {
			logger.Debug("Config loaded", "file", cfg.File)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./journey.yaml or $HOME/.journey/journey.yaml)")
	rootCmd.PersistentFlags().String("dir", "", "Directory containing workflow definitions")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("store", "", "Session store: memory, file or redis")
	rootCmd.PersistentFlags().String("store-dir", "", "Directory of the file session store")
}

// newApp builds the engine and store from the loaded configuration.
func newApp() (*cli.App, error) {
	app, err := cli.Build(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing journey: %w", err)
	}
	return app, nil
}
