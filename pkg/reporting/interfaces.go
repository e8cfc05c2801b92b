package reporting

import (
	"io"

	"github.com/ducminhle1904/futures-executor/internal/risk"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// Package reporting provides output generation for execution results

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	PrintSummary(w io.Writer, results []types.ExecutionResult)
	PrintRiskConfig(w io.Writer, cfg *risk.Config, environment string)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteExecutionsCSV(results []types.ExecutionResult, path string) error
	WriteExecutionsXLSX(results []types.ExecutionResult, path string) error
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle    int
	BaseStyle      int
	DecimalStyle   int
	SubmittedStyle int
	RejectedStyle  int
	ErrorStyle     int
	ConflictStyle  int
	SummaryStyle   int
}
