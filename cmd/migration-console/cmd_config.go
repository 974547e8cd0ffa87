package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/battlewithbytes/migration-console/internal/config"
	"github.com/battlewithbytes/migration-console/internal/forms"
	"github.com/battlewithbytes/migration-console/internal/ui"
)

var (
	configInitForce       bool
	configInitInteractive bool
)

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
	configInitCmd.Flags().BoolVarP(&configInitInteractive, "interactive", "i", false, "prompt for backend and service settings")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and create the migration console configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}

		cfg := config.Default()
		if configInitInteractive {
			answers := forms.NewConfigAnswers(cfg)
			if err := forms.BuildConfigForm(answers).Run(); err != nil {
				return fmt.Errorf("config form: %w", err)
			}
			if !answers.Confirmed {
				fmt.Println(ui.Dim.Render("Aborted."))
				return nil
			}
			if err := answers.Apply(cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
		}

		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Println(ui.Green.Render("✓") + " Wrote " + ui.White.Render(configPath))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		fmt.Print(string(out))
		fmt.Println()
		fmt.Println(ui.Dim.Render("Config file: " + configPath))
		return nil
	},
}
