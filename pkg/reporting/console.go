package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/futures-executor/internal/risk"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// PrintRiskConfig prints the active risk parameters
func PrintRiskConfig(w io.Writer, cfg *risk.Config, environment string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("EXECUTOR CONFIGURATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🔧 Environment", environment},
		{"💰 Fixed Balance", fmt.Sprintf("$%.2f", cfg.FixedBalance)},
		{"📊 Risk Fraction", fmt.Sprintf("%.2f%%", cfg.RiskFraction*100)},
		{"⚙️ Leverage", fmt.Sprintf("%dx (cap %dx)", cfg.Leverage, cfg.MaxLeveragePerSymbol)},
	})
	if len(cfg.SymbolLeverage) > 0 {
		symbols := make([]string, 0, len(cfg.SymbolLeverage))
		for s := range cfg.SymbolLeverage {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		overrides := make([]string, 0, len(symbols))
		for _, s := range symbols {
			overrides = append(overrides, fmt.Sprintf("%s=%dx", s, cfg.SymbolLeverage[s]))
		}
		t.AppendRow(table.Row{"⚙️ Overrides", strings.Join(overrides, ", ")})
	}

	t.AppendSeparator()

	stages := make([]string, 0, len(cfg.StagedTakeProfit))
	for _, st := range cfg.StagedTakeProfit {
		stages = append(stages, fmt.Sprintf("%.0f%%@%gx", st.Fraction*100, st.Multiplier))
	}
	t.AppendRows([]table.Row{
		{"🛑 Stop Loss", fmt.Sprintf("%.2f%%", cfg.StopLossPct*100)},
		{"🎯 Take Profit", fmt.Sprintf("%.2f%%", cfg.TakeProfitPct*100)},
		{"🪜 TP Ladder", strings.Join(stages, " / ")},
		{"💵 Min Order", fmt.Sprintf("$%.2f", cfg.MinOrderValue)},
		{"📏 Min Stop Dist", fmt.Sprintf("%.2f%%", cfg.MinStopDistancePct*100)},
		{"📝 Entry Type", cfg.EntryOrderType},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(w)
}

// PrintSummary prints per-symbol execution counts
func PrintSummary(w io.Writer, results []types.ExecutionResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("EXECUTION SUMMARY")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Total", "Submitted", "Rejected", "Errors", "Conflicts", "Warnings"})

	var total SymbolSummary
	for _, s := range Summarize(results) {
		t.AppendRow(table.Row{s.Symbol, s.Total(), s.Submitted, s.Rejected, s.Errors, s.Conflicts, s.Warnings})
		total.Submitted += s.Submitted
		total.Rejected += s.Rejected
		total.Errors += s.Errors
		total.Conflicts += s.Conflicts
		total.Warnings += s.Warnings
	}
	t.AppendFooter(table.Row{"TOTAL", total.Total(), total.Submitted, total.Rejected, total.Errors, total.Conflicts, total.Warnings})

	t.Render()
	fmt.Fprintln(w)
}
