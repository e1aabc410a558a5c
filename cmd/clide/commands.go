// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clide-dev/clide/internal/config"
	"github.com/clide-dev/clide/pkg/logging"
	"github.com/clide-dev/clide/pkg/ux"
)

// --- Global Command Variables ---
var (
	configPath   string
	manifestPath string
	rulesPath    string
	jsonOutput   bool
	plainOutput  bool
	debug        bool
	watchFlag    bool
	packageFlag  string
	whereFlags   []string
	assumeYes    bool

	cfg     *config.ClideConfig
	logger  *logging.Logger
	printer *ux.Printer

	rootCmd = &cobra.Command{
		Use:   "clide",
		Short: "Inspect and serve decorated component catalogs",
		Long: `clide loads a part manifest, rewrites part and export metadata
with a rule file, and shows or serves the decorated catalog.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Close()
			}
		},
	}

	partsCmd = &cobra.Command{
		Use:   "parts",
		Short: "List the decorated parts of the catalog",
		Args:  cobra.NoArgs,
		RunE:  runParts,
	}

	exportsCmd = &cobra.Command{
		Use:   "exports <contract>",
		Short: "List the decorated exports of a contract",
		Long: `List every export of the given contract after decoration.

Use --where key=value to keep only exports whose metadata holds value
under key. Values are compared as strings.`,
		Args: cobra.ExactArgs(1),
		RunE: runExports,
	}

	commandsCmd = &cobra.Command{
		Use:   "commands",
		Short: "List the commands exported by the catalog",
		Args:  cobra.NoArgs,
		RunE:  runCommands,
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check that the manifest and rule file load and decorate cleanly",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the decorated catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	initCmd = &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter manifest and rule file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.clide/clide.yaml)")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "part manifest, overrides the config")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "decoration rule file, overrides the config")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "disable colors and icons")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	exportsCmd.Flags().StringArrayVar(&whereFlags, "where", nil, "metadata filter as key=value (repeatable)")
	commandsCmd.Flags().StringVar(&packageFlag, "package", "", "only list commands of this package id")
	serveCmd.Flags().BoolVar(&watchFlag, "watch", false, "reload when the manifest changes")
	initCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "overwrite existing files without asking")

	rootCmd.AddCommand(partsCmd, exportsCmd, commandsCmd, validateCmd, serveCmd, initCmd)
}

// setup loads the config and builds the logger and printer shared by all
// subcommands.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.Load(configPath); err != nil {
		return err
	}
	c := config.Global
	if manifestPath != "" {
		c.Manifest = manifestPath
	}
	if rulesPath != "" {
		c.Rules = rulesPath
	}
	cfg = &c

	logCfg := cfg.LoggerConfig()
	if debug {
		logCfg.Level = logging.LevelDebug
	}
	logger = logging.New(logCfg)

	mode := ux.ModeAuto
	if plainOutput {
		mode = ux.ModePlain
	}
	printer = ux.NewPrinter(os.Stdout, mode)

	logger.Debug("configuration loaded",
		"manifest", cfg.Manifest,
		"rules", cfg.Rules,
	)
	return nil
}

func requireManifest() error {
	if cfg.Manifest == "" {
		return fmt.Errorf("no manifest configured: pass --manifest or set manifest in the config file")
	}
	return nil
}
