// Package messages defines the tea.Msg types exchanged between TUI views
// and the provisioning run driving them.
package messages

import "github.com/thomassicaud/teams-portal/internal/core/domain"

// EventReceived carries one progress event from the running operation.
type EventReceived struct {
	Event domain.Event
}

// RunFinished is sent once when the operation returns.
type RunFinished struct {
	Result *domain.ProvisionResult
	Err    error
}

// ErrorOccurred reports a failure outside the run itself.
type ErrorOccurred struct {
	Err error
}
