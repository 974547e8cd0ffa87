package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/battlewithbytes/migration-console/internal/forms"
	"github.com/battlewithbytes/migration-console/internal/migrator"
	"github.com/battlewithbytes/migration-console/internal/ui"
	"github.com/battlewithbytes/migration-console/internal/units"
)

var vmsListFlags listFlags

func init() {
	vmsListFlags.register(vmsListCmd)
	vmsCmd.AddCommand(vmsListCmd)
	vmsCmd.AddCommand(vmsOverrideCmd)
	rootCmd.AddCommand(vmsCmd)
}

var vmsCmd = &cobra.Command{
	Use:   "vms",
	Short: "List source VMs and edit their target sizing",
}

var vmsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List VMs with effective CPU and memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()
		t, err := e.console.VMTable(cmd.Context())
		if err != nil {
			return err
		}
		return printTable(t, &vmsListFlags, e.cfg.Tables.DefaultPerPage)
	},
}

var vmsOverrideCmd = &cobra.Command{
	Use:   "override <id>",
	Short: "Edit the target name, CPU count and memory of a VM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		vm, err := findVM(e, cmd, args[0])
		if err != nil {
			return err
		}

		answers := forms.NewOverrideAnswers(vm)
		if err := forms.BuildOverrideForm(vm, answers).Run(); err != nil {
			return fmt.Errorf("override form: %w", err)
		}
		if !answers.Confirmed {
			fmt.Println(ui.Dim.Render("Aborted."))
			return nil
		}
		in, err := answers.ToInput()
		if err != nil {
			return err
		}
		if err := e.console.SetOverride(cmd.Context(), vm.ID, in); err != nil {
			return err
		}

		fmt.Println(ui.Green.Render("✓") + " Saved override for " + ui.White.Render(vm.Name))
		if in.CPUCount > 0 {
			fmt.Println(ui.Dim.Render("  CPUs:    ") + ui.White.Render(fmt.Sprintf("%d", in.CPUCount)))
		}
		if in.MemoryMiB > 0 {
			fmt.Println(ui.Dim.Render("  Memory:  ") + ui.White.Render(units.FormatMiB(in.MemoryMiB)))
		}
		return nil
	},
}

func findVM(e *env, cmd *cobra.Command, id string) (migrator.VM, error) {
	vms, err := e.console.VMs(cmd.Context())
	if err != nil {
		return migrator.VM{}, err
	}
	for _, vm := range vms {
		if vm.ID == id || vm.Name == id {
			return vm, nil
		}
	}
	return migrator.VM{}, fmt.Errorf("vm %q not found", id)
}
