package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/battlewithbytes/migration-console/internal/config"
	"github.com/battlewithbytes/migration-console/internal/migrator"
	"github.com/battlewithbytes/migration-console/internal/override"
	"github.com/battlewithbytes/migration-console/internal/units"
)

// OverrideAnswers holds raw string values from the override form.
// Numeric fields are strings because huh.Input binds to *string.
// An empty field leaves that value unset.
type OverrideAnswers struct {
	Name      string
	CPUStr    string
	MemoryStr string
	Confirmed bool
}

// NewOverrideAnswers prefills the form from the VM's current override.
func NewOverrideAnswers(vm migrator.VM) *OverrideAnswers {
	a := &OverrideAnswers{}
	if !override.HasOverride(vm.Overrides) {
		return a
	}
	rec := vm.Overrides
	a.Name = rec.Name
	if rec.CPUCount != nil && *rec.CPUCount > 0 {
		a.CPUStr = strconv.Itoa(*rec.CPUCount)
	}
	if rec.MemoryMiB != nil && *rec.MemoryMiB > 0 {
		a.MemoryStr = units.FormatMiB(*rec.MemoryMiB)
	}
	return a
}

// ToInput converts the answers into a backend override request.
func (a *OverrideAnswers) ToInput() (migrator.OverrideInput, error) {
	in := migrator.OverrideInput{Name: strings.TrimSpace(a.Name)}
	if s := strings.TrimSpace(a.CPUStr); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return in, fmt.Errorf("cpu count must be a non-negative integer, got %q", a.CPUStr)
		}
		in.CPUCount = n
	}
	if strings.TrimSpace(a.MemoryStr) != "" {
		n, err := units.HumanToBytes(a.MemoryStr)
		if err != nil {
			return in, fmt.Errorf("memory: %w", err)
		}
		in.MemoryMiB = units.BytesToMiB(n)
	}
	return in, nil
}

// ValidateCPU accepts an empty value or a non-negative integer.
func ValidateCPU(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// ConfigAnswers holds raw string values from the config init form.
type ConfigAnswers struct {
	BaseURL       string
	Token         string
	TLSSkipVerify bool
	BindAddress   string
	PortStr       string
	PerPage       int
	Confirmed     bool
}

// NewConfigAnswers prefills the form from cfg.
func NewConfigAnswers(cfg *config.Config) *ConfigAnswers {
	return &ConfigAnswers{
		BaseURL:       cfg.Backend.BaseURL,
		Token:         cfg.Backend.Token,
		TLSSkipVerify: cfg.Backend.TLSSkipVerify,
		BindAddress:   cfg.Service.BindAddress,
		PortStr:       strconv.Itoa(cfg.Service.Port),
		PerPage:       cfg.Tables.DefaultPerPage,
	}
}

// Apply writes the answers into cfg and validates the result.
func (a *ConfigAnswers) Apply(cfg *config.Config) error {
	port, err := strconv.Atoi(strings.TrimSpace(a.PortStr))
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %q", a.PortStr)
	}
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	cfg.Backend.Token = strings.TrimSpace(a.Token)
	cfg.Backend.TLSSkipVerify = a.TLSSkipVerify
	cfg.Service.BindAddress = strings.TrimSpace(a.BindAddress)
	cfg.Service.Port = port
	cfg.Tables.DefaultPerPage = a.PerPage
	return cfg.Validate()
}

// ValidatePort returns nil if s is a valid port number.
func ValidatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("must be 1-65535")
	}
	return nil
}

// ValidateURL returns nil if s is an http(s) URL.
func ValidateURL(s string) error {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return fmt.Errorf("must start with http:// or https://")
	}
	return nil
}
