package usage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/xuri/excelize/v2"
)

// ReadRecords parses an NDJSON usage log. Lines that fail to decode are
// skipped and counted rather than aborting the read; a half-written trailing
// line must not make the rest of the log unreadable.
func ReadRecords(path string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open usage log: %w", err)
	}
	defer f.Close()

	var (
		recs    []Record
		skipped int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan usage log: %w", err)
	}
	return recs, skipped, nil
}

type modelTotals struct {
	calls      int
	errors     int
	prompt     int
	completion int
	total      int
}

// ExportXLSX renders the usage log at path as an XLSX workbook: one sheet with
// the raw records and one with per-model totals.
func ExportXLSX(path string) ([]byte, error) {
	recs, _, err := ReadRecords(path)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const recordsSheet = "Records"
	const totalsSheet = "Totals"

	// excelize starts with "Sheet1"; rename it rather than leaving it behind.
	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(totalsSheet); err != nil {
		return nil, err
	}

	headers := []string{"Timestamp", "Kind", "Function", "Model", "Prompt Tokens", "Completion Tokens", "Total Tokens", "Error", "Error Kind"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(recordsSheet, cell, h)
	}

	byModel := map[string]*modelTotals{}
	row := 2
	for _, r := range recs {
		values := []any{
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Kind,
			r.Function,
			r.Model,
			r.PromptTokens,
			r.CompletionTokens,
			r.TotalTokens,
			r.Error,
			r.ErrorKind,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(recordsSheet, cell, v)
		}
		row++

		t := byModel[r.Model]
		if t == nil {
			t = &modelTotals{}
			byModel[r.Model] = t
		}
		t.calls++
		if r.Kind == KindError {
			t.errors++
		}
		t.prompt += r.PromptTokens
		t.completion += r.CompletionTokens
		t.total += r.TotalTokens
	}

	totalsHeaders := []string{"Model", "Calls", "Errors", "Prompt Tokens", "Completion Tokens", "Total Tokens"}
	for i, h := range totalsHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(totalsSheet, cell, h)
	}
	models := make([]string, 0, len(byModel))
	for m := range byModel {
		models = append(models, m)
	}
	sort.Strings(models)
	for i, m := range models {
		t := byModel[m]
		values := []any{m, t.calls, t.errors, t.prompt, t.completion, t.total}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(totalsSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
