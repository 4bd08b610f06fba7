// Package report renders a finished run's per-period summary.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/efreitasn/dasim/internal/store"
)

// Console prints summaries as text tables.
type Console struct {
	out io.Writer
}

// NewConsole creates a Console writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a Console writing to w.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PeriodLogs are the logs PrintPeriods joins. Nil logs are shown as
// empty columns.
type PeriodLogs struct {
	Volume   store.Table
	OHLC     store.Table
	Effalloc store.Table
}

// PrintPeriods prints one line per period: volume, price summary and
// efficiency of allocation. Periods without trades have no prices.
func (c *Console) PrintPeriods(logs PeriodLogs) error {
	volume := byPeriod(logs.Volume)
	ohlc := byPeriod(logs.OHLC)
	eff := byPeriod(logs.Effalloc)

	periods := make([]int, 0, len(volume))
	for p := range volume {
		periods = append(periods, p)
	}
	sort.Ints(periods)

	table := tablewriter.NewWriter(c.out)
	table.Header("Period", "Volume", "Open", "High", "Low", "Close", "Efficiency")

	for _, p := range periods {
		row := []any{fmt.Sprintf("%d", p), cell(volume[p], 1, "%v")}
		for i := 1; i <= 4; i++ {
			row = append(row, cell(ohlc[p], i, "%.2f"))
		}
		row = append(row, cell(eff[p], 1, "%.2f%%"))
		if err := table.Append(row...); err != nil {
			return fmt.Errorf("report.PrintPeriods: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("report.PrintPeriods: %w", err)
	}
	return nil
}

// byPeriod indexes a log's rows by their leading period column.
func byPeriod(t store.Table) map[int][]any {
	out := make(map[int][]any)
	if t == nil {
		return out
	}
	for _, row := range t.Rows() {
		if len(row) == 0 {
			continue
		}
		if p, ok := asInt(row[0]); ok {
			out[p] = row
		}
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func cell(row []any, i int, format string) string {
	if i >= len(row) || row[i] == nil {
		return "-"
	}
	return fmt.Sprintf(format, row[i])
}
