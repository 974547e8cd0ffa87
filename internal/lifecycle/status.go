// Package lifecycle decides which lifecycle actions a batch or queue entry
// currently permits and dispatches permitted actions to the backend.
package lifecycle

import "strings"

// Action is a lifecycle transition an administrator can request.
type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionReset  Action = "reset"
	ActionCancel Action = "cancel"
	ActionRetry  Action = "retry"
	ActionDelete Action = "delete"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionStart, ActionStop, ActionReset, ActionCancel, ActionRetry, ActionDelete:
		return a, true
	default:
		return "", false
	}
}

// Status is implemented by each entity's closed status type.
type Status interface {
	Permits(Action) bool
	String() string
}

// Allowed reports whether status s permits action a.
func Allowed[S Status](s S, a Action) bool {
	return s.Permits(a)
}

// Permitted lists the actions s permits, in declaration order of actions.
func Permitted[S Status](s S, actions []Action) []Action {
	var out []Action
	for _, a := range actions {
		if s.Permits(a) {
			out = append(out, a)
		}
	}
	return out
}

// BatchStatus is the backend-reported status of a migration batch.
type BatchStatus int

const (
	BatchUnknown BatchStatus = iota
	BatchDefined
	BatchQueued
	BatchRunning
	BatchStopped
	BatchFinished
	BatchError
)

var batchStatusNames = map[BatchStatus]string{
	BatchDefined:  "Defined",
	BatchQueued:   "Queued",
	BatchRunning:  "Running",
	BatchStopped:  "Stopped",
	BatchFinished: "Finished",
	BatchError:    "Error",
}

// BatchActions are the actions a batch row offers.
var BatchActions = []Action{ActionStart, ActionStop, ActionReset}

// ParseBatchStatus maps the backend string to a BatchStatus. Unrecognized
// strings yield BatchUnknown, which permits nothing.
func ParseBatchStatus(s string) BatchStatus {
	for st, name := range batchStatusNames {
		if name == s {
			return st
		}
	}
	return BatchUnknown
}

func (s BatchStatus) String() string {
	if name, ok := batchStatusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Permits implements Status.
func (s BatchStatus) Permits(a Action) bool {
	switch a {
	case ActionStart:
		return s == BatchDefined || s == BatchStopped || s == BatchError
	case ActionStop:
		return s == BatchQueued || s == BatchRunning
	case ActionReset:
		return s == BatchRunning
	default:
		return false
	}
}

// QueueEntryStatus is the backend-reported status of one queued migration.
type QueueEntryStatus int

const (
	QueueUnknown QueueEntryStatus = iota
	QueueBlocked
	QueueWaiting
	QueueCreating
	QueueBackgroundImport
	QueueIdle
	QueueFinalImport
	QueuePostImport
	QueueFinished
	QueueError
	QueueCanceled
)

var queueStatusNames = map[QueueEntryStatus]string{
	QueueBlocked:          "Blocked",
	QueueWaiting:          "Waiting",
	QueueCreating:         "Creating",
	QueueBackgroundImport: "BackgroundImport",
	QueueIdle:             "Idle",
	QueueFinalImport:      "FinalImport",
	QueuePostImport:       "PostImport",
	QueueFinished:         "Finished",
	QueueError:            "Error",
	QueueCanceled:         "Canceled",
}

// QueueActions are the actions a queue entry row offers.
var QueueActions = []Action{ActionCancel, ActionRetry, ActionDelete}

// ParseQueueEntryStatus maps the backend string to a QueueEntryStatus.
// Unrecognized strings yield QueueUnknown, which permits nothing.
func ParseQueueEntryStatus(s string) QueueEntryStatus {
	for st, name := range queueStatusNames {
		if name == s {
			return st
		}
	}
	return QueueUnknown
}

func (s QueueEntryStatus) String() string {
	if name, ok := queueStatusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Permits implements Status.
func (s QueueEntryStatus) Permits(a Action) bool {
	if s == QueueUnknown {
		return false
	}
	switch a {
	case ActionCancel:
		return s != QueueCanceled
	case ActionRetry:
		return s == QueueCanceled
	case ActionDelete:
		return s == QueueError || s == QueueFinished
	default:
		return false
	}
}
