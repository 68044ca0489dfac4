package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/registrar/internal/app"
	"github.com/zjrosen/registrar/internal/config"
	"github.com/zjrosen/registrar/internal/log"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 reply cannot race the input loop.
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const (
	localConfigPath = ".registrar/config.yaml"
	envLogPath      = "REGISTRAR_LOG"
)

var (
	version    = "dev"
	cfgFile    string
	debugFlag  bool
	cfg        config.Config
	cfgPath    string
	cfgErr     error
	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "registrar",
	Short: "A reactive registry of commands, sidebar items and catalog entities",
	Long: `registrar keeps a live registry of contributions (commands, sidebar items,
menu items, status bar items) from built-in and on-disk extensions, and a
catalog of entities such as Kubernetes clusters read from manifest files.

Running registrar without a subcommand opens the catalog browser.`,
	Version:            version,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE:               runBrowse,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: "+localConfigPath+" or ~/.config/registrar/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs (also enabled by "+log.EnvDebug+")")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the database, extensions and entities")

	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	cfg, cfgPath, cfgErr = loadConfig(viper.GetViper(), cfgFile)
}

// loadConfig reads the config file into v and returns the resolved config and
// the path later writes go to. Lookup order:
//  1. explicit --config
//  2. .registrar/config.yaml in the current directory
//  3. ~/.config/registrar/config.yaml
//
// When no file exists a commented default is written to the user config.
func loadConfig(v *viper.Viper, explicit string) (config.Config, string, error) {
	config.SetDefaults(v)

	userPath := ""
	if dir := config.DefaultDataDir(); dir != "" {
		userPath = filepath.Join(dir, "config.yaml")
	}

	path := explicit
	if path == "" {
		if _, err := os.Stat(localConfigPath); err == nil {
			path = localConfigPath
		} else {
			path = userPath
		}
	}

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && explicit == "" {
			if err := config.WriteDefaultConfig(path); err != nil {
				// Run on defaults when the home directory is read-only.
				fmt.Fprintf(os.Stderr, "warning: could not write default config: %v\n", err)
			}
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if explicit != "" || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
				return config.Config{}, path, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	c, err := config.Load(v)
	if err != nil {
		return config.Config{}, path, err
	}
	return c, path, nil
}

// setup validates the config and starts debug logging.
func setup(cmd *cobra.Command, _ []string) error {
	if cfgErr != nil {
		return cfgErr
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", cfgPath, err)
	}

	if debugFlag || os.Getenv(log.EnvDebug) != "" {
		logPath := os.Getenv(envLogPath)
		if logPath == "" {
			logPath = filepath.Join(cfg.DataDir, "registrar.log")
		}
		if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		level := log.ParseLevel(cfg.LogLevel)
		if debugFlag {
			level = log.LevelDebug
		}
		log.SetMinLevel(level)
		logCleanup = cleanup
		log.Info(log.CatApp, "Registrar starting", "version", version, "command", cmd.Name(), "config", cfgPath)
	}
	return nil
}

func teardown(*cobra.Command, []string) error {
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
	return nil
}

// openApp builds the application for a command.
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg, cfg.HostVersion)
	if err != nil {
		return nil, fmt.Errorf("starting registrar: %w", err)
	}
	return a, nil
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Watch(); err != nil {
		log.ErrorErr(log.CatWatcher, "Watching disabled", err)
	}

	zone.NewGlobal()

	debug := debugFlag || os.Getenv(log.EnvDebug) != ""
	p := tea.NewProgram(app.NewModel(a, debug),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running catalog browser: %w", err)
	}
	return nil
}

var browseCmd = &cobra.Command{
	Use:   "catalog:browse",
	Short: "Open the catalog browser",
	Long: `Open the interactive catalog browser.

The sidebar lists categories, the main pane the entities of the selected
category. Entity manifests are watched and the view updates as they change.
Press : for the command palette and ? for help.`,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
