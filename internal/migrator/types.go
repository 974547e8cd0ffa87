package migrator

import (
	"time"

	"github.com/battlewithbytes/migration-console/internal/override"
)

// Batch is a group of migrations started and stopped together.
type Batch struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Status         string     `json:"status"`
	MigrationCount int        `json:"migration_count"`
	Finished       int        `json:"finished_count"`
	Failed         int        `json:"failed_count"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

// QueueEntry is a single VM migration scheduled by a batch.
type QueueEntry struct {
	ID               string    `json:"id"`
	BatchID          string    `json:"batch_id"`
	VMID             string    `json:"vm_id"`
	VMName           string    `json:"vm_name"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	DiskBytes        uint64    `json:"disk_bytes"`
	TransferredBytes uint64    `json:"transferred_bytes"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// VM is a source virtual machine discovered by the backend, with an optional
// administrator override of its target sizing.
type VM struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Source     string           `json:"source"`
	PowerState string           `json:"power_state"`
	CPUCount   int              `json:"cpu_count"`
	MemoryMiB  uint64           `json:"memory"`
	DiskBytes  uint64           `json:"disk_bytes"`
	Overrides  *override.Record `json:"overrides,omitempty"`
}

// OverrideInput is the body of an override update.
type OverrideInput struct {
	Name      string `json:"name,omitempty"`
	CPUCount  int    `json:"cpu_count"`
	MemoryMiB uint64 `json:"memory"`
}

// Count is returned by count queries.
type Count struct {
	Count int `json:"count"`
}
