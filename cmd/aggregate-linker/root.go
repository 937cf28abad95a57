package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Gavin1937/aggregate-linker/internal/version"
	"github.com/Gavin1937/aggregate-linker/pkg/config"
	"github.com/Gavin1937/aggregate-linker/pkg/engine"
	"github.com/Gavin1937/aggregate-linker/pkg/filesystem"
	"github.com/Gavin1937/aggregate-linker/pkg/logging"
	"github.com/Gavin1937/aggregate-linker/pkg/ui"
	"github.com/Gavin1937/aggregate-linker/pkg/watcher"
)

var (
	verbosity  int
	configPath string

	rootCmd = &cobra.Command{
		Use:   "aggregate-linker",
		Short: "Mirror files from many directories into one symlink root",
		Long: `aggregate-linker watches a set of source directories and maintains a
single unified root directory of symbolic links to every file matching
the configured glob and exclusion rules. The mirror is kept correct
under continuous churn: files appearing and disappearing, whole source
directories being deleted and recreated, and name collisions between
sources (first match wins).

Links are removed again on shutdown; the root directory itself and any
files the tool did not create are never touched.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE:          runLinker,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFileName, "Path to the JSON configuration file")

	rootCmd.AddCommand(genconfigCmd)
	rootCmd.AddCommand(versionCmd)
}

func runLinker(cmd *cobra.Command, args []string) error {
	if !config.Exists(configPath) {
		fmt.Printf("Configuration file %q not found. Creating default configuration...\n", configPath)
		if err := config.WriteDefault(configPath); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("--- ACTION REQUIRED ---")
		fmt.Printf("Default configuration written to %q.\n", configPath)
		fmt.Println("Please edit ROOT_FOLDER and the SOURCE_FOLDERS list with your actual paths,")
		fmt.Println("then run aggregate-linker again.")
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	reporter := ui.NewTerminal()
	for _, spec := range cfg.Sources {
		if spec.Disabled {
			reporter.SpecDisabled(spec.Pattern, spec.DisabledReason)
		}
	}

	source, err := watcher.New()
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, filesystem.NewOS(), source, reporter)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("aggregate-linker is running. Press CTRL+C to stop.")
	return eng.Run(ctx)
}

var genconfigCmd = &cobra.Command{
	Use:   "genconfig",
	Short: "Write a default configuration file",
	Long: `Write a starter configuration file to the --config path (default
config.json). Existing files are not overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Exists(configPath) {
			return fmt.Errorf("refusing to overwrite existing config file %q", configPath)
		}
		if err := config.WriteDefault(configPath); err != nil {
			return err
		}
		fmt.Printf("Default configuration written to %q.\n", configPath)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("aggregate-linker version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}
