package report

import (
	"fmt"
	"io"
	"time"

	"github.com/ethpandaops/runcenter/pkg/api/store"
	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the worksheet holding the daily report.
	SheetName = "Daily Report"

	// HeaderRow is the row carrying the run column headers.
	HeaderRow = 4

	cellTimeLayout = time.RFC3339
)

// Columns lists the run columns in sheet order.
var Columns = []string{"run_id", "status", "started_at", "finished_at", "message"}

// WriteDaily renders the daily report workbook for dt and writes it to w.
//
// Layout: A1 "Date" | dt, A2 "Runs" | count, row 4 column headers and one
// run per row from row 5.
func WriteDaily(w io.Writer, dt string, runs []store.Run) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &[]any{"Date", dt}); err != nil {
		return fmt.Errorf("writing date row: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A2", &[]any{"Runs", len(runs)}); err != nil {
		return fmt.Errorf("writing count row: %w", err)
	}

	header := make([]any, 0, len(Columns))
	for _, c := range Columns {
		header = append(header, c)
	}

	if err := f.SetSheetRow(SheetName, cell(HeaderRow), &header); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	last, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return fmt.Errorf("resolving last column: %w", err)
	}

	if err := f.SetCellStyle(
		SheetName, cell(HeaderRow), fmt.Sprintf("%s%d", last, HeaderRow), bold,
	); err != nil {
		return fmt.Errorf("styling header row: %w", err)
	}

	for i, run := range runs {
		row := []any{
			run.RunID,
			run.Status,
			formatTime(run.StartedAt),
			formatTime(run.FinishedAt),
			deref(run.Message),
		}

		if err := f.SetSheetRow(SheetName, cell(HeaderRow+1+i), &row); err != nil {
			return fmt.Errorf("writing run %s: %w", run.RunID, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", last, 24); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}

func cell(row int) string {
	return fmt.Sprintf("A%d", row)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}

	return t.UTC().Format(cellTimeLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
