package main

import (
	"github.com/spf13/cobra"

	"github.com/battlewithbytes/migration-console/internal/browser"
	"github.com/battlewithbytes/migration-console/internal/lifecycle"
	"github.com/battlewithbytes/migration-console/internal/notify"
)

var browseRefresh int

func init() {
	browseCmd.Flags().IntVar(&browseRefresh, "refresh", 10, "auto refresh interval in seconds (0 disables)")
	rootCmd.AddCommand(browseCmd)
}

var browseCmd = &cobra.Command{
	Use:       "browse <batches|queue|vms>",
	Short:     "Browse a table interactively",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"batches", "queue", "vms"},
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := browser.ParseView(args[0])
		if err != nil {
			return err
		}

		hub := notify.NewHub()
		e, err := openEnv(lifecycle.WithNotifier(hub.Outcome))
		if err != nil {
			return err
		}
		defer e.Close()

		notes, cancel := hub.Subscribe()
		defer cancel()

		m := browser.New(cmd.Context(), e.console, view,
			browser.WithNotifications(notes),
			browser.WithPerPage(e.cfg.Tables.DefaultPerPage),
			browser.WithRefreshInterval(secondsDuration(browseRefresh)),
		)
		return m.Run()
	},
}
