// Package forms builds the interactive terminal forms of the CLI.
package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/battlewithbytes/migration-console/internal/migrator"
	"github.com/battlewithbytes/migration-console/internal/table"
	"github.com/battlewithbytes/migration-console/internal/units"
)

// BuildOverrideForm constructs the override editor for one VM. Invalid sizes
// keep the form from being submitted.
func BuildOverrideForm(vm migrator.VM, answers *OverrideAnswers) *huh.Form {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("VM:      %s (%s)\n", vm.Name, vm.ID))
	sb.WriteString(fmt.Sprintf("Source:  %d CPUs, %s memory\n", vm.CPUCount, units.FormatMiB(vm.MemoryMiB)))
	sb.WriteString("Leave a field empty to keep the source value.")

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Override target sizing").
				Description(sb.String()),
			huh.NewInput().
				Title("Target name").
				Placeholder(vm.Name).
				Value(&answers.Name),
			huh.NewInput().
				Title("CPU count").
				Placeholder(strconv.Itoa(vm.CPUCount)).
				Value(&answers.CPUStr).
				Validate(ValidateCPU),
			huh.NewInput().
				Title("Memory").
				Description("e.g. 8 GiB, 4096 MiB, 2.5GB").
				Placeholder(units.FormatMiB(vm.MemoryMiB)).
				Value(&answers.MemoryStr).
				Validate(units.ValidateHuman),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save override?").
				Value(&answers.Confirmed),
		),
	).WithTheme(huh.ThemeCatppuccin())
}

// BuildConfigForm constructs the config init wizard.
func BuildConfigForm(answers *ConfigAnswers) *huh.Form {
	perPageOpts := make([]huh.Option[int], 0, len(table.PerPageOptions))
	for _, n := range table.PerPageOptions {
		perPageOpts = append(perPageOpts, huh.NewOption(strconv.Itoa(n), n))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Migration backend URL").
				Value(&answers.BaseURL).
				Validate(ValidateURL),
			huh.NewInput().
				Title("API token").
				EchoMode(huh.EchoModePassword).
				Value(&answers.Token),
			huh.NewConfirm().
				Title("Skip TLS verification?").
				Description("Only for backends with self-signed certificates.").
				Value(&answers.TLSSkipVerify),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Bind Address").
				Value(&answers.BindAddress).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("bind address cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Port").
				Value(&answers.PortStr).
				Validate(ValidatePort),
			huh.NewSelect[int]().
				Title("Rows per page").
				Options(perPageOpts...).
				Value(&answers.PerPage),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Write configuration?").
				Value(&answers.Confirmed),
		),
	).WithTheme(huh.ThemeCatppuccin())
}
