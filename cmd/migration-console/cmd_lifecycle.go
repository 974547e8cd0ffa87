package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/battlewithbytes/migration-console/internal/console"
	"github.com/battlewithbytes/migration-console/internal/lifecycle"
	"github.com/battlewithbytes/migration-console/internal/table"
	"github.com/battlewithbytes/migration-console/internal/ui"
)

// listFlags are shared by every list subcommand.
type listFlags struct {
	sort    string
	desc    bool
	page    int
	perPage int
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort by column name")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.perPage, "per-page", 0, "rows per page (default from config)")
}

// state turns the flags into a normalized table state for t.
func (f *listFlags) state(t table.Table, defaultPerPage int) (table.State, error) {
	s := table.NewState()
	perPage := f.perPage
	if perPage == 0 {
		perPage = defaultPerPage
	}
	s = s.SetPerPage(perPage)

	if f.sort != "" {
		col := -1
		for i, h := range t.Headers {
			if strings.EqualFold(h, f.sort) {
				col = i
				break
			}
		}
		if col < 0 {
			return s, fmt.Errorf("unknown column %q", f.sort)
		}
		s = s.SetSort(col)
		if f.desc {
			s.Direction = table.Descending
		}
	}
	return s.SetPage(f.page, len(t.Rows)), nil
}

func printTable(t table.Table, f *listFlags, defaultPerPage int) error {
	s, err := f.state(t, defaultPerPage)
	if err != nil {
		return err
	}
	fmt.Println(table.Render(table.View(t, s)))
	return nil
}

// newLifecycleCmd builds "<kind> list" plus one subcommand per action.
func newLifecycleCmd(use, short, kind string, actions []lifecycle.Action,
	load func(context.Context, *console.Console) (table.Table, error)) *cobra.Command {

	parent := &cobra.Command{Use: use, Short: short}

	var flags listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List " + use,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			t, err := load(cmd.Context(), e.console)
			if err != nil {
				return err
			}
			return printTable(t, &flags, e.cfg.Tables.DefaultPerPage)
		},
	}
	flags.register(list)
	parent.AddCommand(list)

	for _, a := range actions {
		parent.AddCommand(&cobra.Command{
			Use:   string(a) + " <id>",
			Short: fmt.Sprintf("%s a %s", a, kind),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAction(cmd.Context(), lifecycle.Request{Kind: kind, ID: args[0], Action: a})
			},
		})
	}
	return parent
}

// runAction dispatches req and waits for its outcome.
func runAction(ctx context.Context, req lifecycle.Request) error {
	var outcome *lifecycle.Outcome
	e, err := openEnv(lifecycle.WithNotifier(func(o lifecycle.Outcome) { outcome = &o }))
	if err != nil {
		return err
	}
	defer e.Close()
	return dispatchAndWait(ctx, e.console, req, func() *lifecycle.Outcome { return outcome })
}

func dispatchAndWait(ctx context.Context, c *console.Console, req lifecycle.Request, result func() *lifecycle.Outcome) error {
	if !c.Dispatch(ctx, req) {
		return fmt.Errorf("%s %s: %s is not permitted in its current status", req.Kind, req.ID, req.Action)
	}
	c.Wait()
	o := result()
	if o == nil {
		return fmt.Errorf("%s %s: %s finished without an outcome", req.Kind, req.ID, req.Action)
	}
	if o.Err != nil {
		return fmt.Errorf("%s", o.Message())
	}
	fmt.Println(ui.Green.Render("✓") + " " + o.Message())
	return nil
}

func init() {
	rootCmd.AddCommand(newLifecycleCmd("batches", "List and control migration batches",
		lifecycle.KindBatch, lifecycle.BatchActions,
		func(ctx context.Context, c *console.Console) (table.Table, error) { return c.BatchTable(ctx) }))
	rootCmd.AddCommand(newLifecycleCmd("queue", "List and control queued migrations",
		lifecycle.KindQueue, lifecycle.QueueActions,
		func(ctx context.Context, c *console.Console) (table.Table, error) { return c.QueueTable(ctx) }))
}
