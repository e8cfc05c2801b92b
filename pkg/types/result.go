package types

import "time"

// ExecutionStatus is the terminal status reported for a signal.
type ExecutionStatus string

const (
	StatusSubmitted ExecutionStatus = "SUBMITTED"
	StatusRejected  ExecutionStatus = "REJECTED"
	StatusError     ExecutionStatus = "ERROR"
	StatusConflict  ExecutionStatus = "CONFLICT"
)

// ExecutionState is the per-slot state machine position.
type ExecutionState string

const (
	StateIdle            ExecutionState = "IDLE"
	StateLeveragePending ExecutionState = "LEVERAGE_PENDING"
	StateBuilding        ExecutionState = "BUILDING"
	StateSubmitting      ExecutionState = "SUBMITTING"
	StateAccepted        ExecutionState = "ACCEPTED"
	StateRejected        ExecutionState = "REJECTED"
	StateError           ExecutionState = "ERROR"
)

type ExecutionResult struct {
	SignalID        string
	Symbol          string
	Side            Side
	PositionIndex   PositionIndex
	Status          ExecutionStatus
	ExchangeOrderID string
	Reason          string
	Err             error `json:"-"`
	LeverageWarning string
	Warnings        []string
	Attempts        int
	Request         *OrderRequest
	StartedAt       time.Time
	FinishedAt      time.Time
}

func (r ExecutionResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r ExecutionResult) Succeeded() bool {
	return r.Status == StatusSubmitted
}
