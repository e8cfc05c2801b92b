package reporting

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

var executionHeaders = []string{
	"Started", "Signal", "Symbol", "Side", "Position_Idx", "Status", "Order_ID",
	"Qty", "Entry", "Stop_Loss", "Take_Profit", "TP_Levels", "Attempts", "Duration_ms", "Reason",
}

// WriteExecutionsCSV writes one row per execution result
func WriteExecutionsCSV(results []types.ExecutionResult, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	// Excel output is requested by extension
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteExecutionsXLSX(results, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(executionHeaders); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write(executionRow(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func executionRow(r types.ExecutionResult) []string {
	row := []string{
		r.StartedAt.UTC().Format(time.RFC3339),
		r.SignalID,
		r.Symbol,
		string(r.Side),
		strconv.Itoa(int(r.PositionIndex)),
		string(r.Status),
		r.ExchangeOrderID,
		"", "", "", "", "",
		strconv.Itoa(r.Attempts),
		strconv.FormatInt(r.Duration().Milliseconds(), 10),
		reasonText(r),
	}
	if req := r.Request; req != nil {
		row[7] = req.Quantity.String()
		row[8] = req.EntryPrice.String()
		if req.StopLoss != nil {
			row[9] = req.StopLoss.String()
		}
		if req.TakeProfit != nil {
			row[10] = req.TakeProfit.String()
		}
		row[11] = ladderText(req.TPLevels)
	}
	return row
}

// ladderText renders levels as price x qty pairs separated by "; "
func ladderText(levels []types.TPLevel) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		parts = append(parts, l.Price.String()+" x "+l.Quantity.String())
	}
	return strings.Join(parts, "; ")
}

func reasonText(r types.ExecutionResult) string {
	parts := make([]string, 0, 2+len(r.Warnings))
	if r.Reason != "" {
		parts = append(parts, r.Reason)
	}
	if r.LeverageWarning != "" {
		parts = append(parts, "leverage: "+r.LeverageWarning)
	}
	parts = append(parts, r.Warnings...)
	return strings.Join(parts, " | ")
}
