package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/pumpschedule/internal/domain/flowrate"
	"github.com/mamadbah2/pumpschedule/internal/domain/models"
	"github.com/mamadbah2/pumpschedule/internal/repository/memory"
	"github.com/mamadbah2/pumpschedule/internal/service/scheduling"
)

// memorySheet keeps a single range in memory, overwriting from the top like
// the Sheets values.update call.
type memorySheet struct {
	rows   [][]interface{}
	ranges []string
}

func (m *memorySheet) ReadRange(_ context.Context, sheetRange string) ([][]interface{}, error) {
	m.ranges = append(m.ranges, sheetRange)
	return m.rows, nil
}

func (m *memorySheet) UpdateRange(_ context.Context, sheetRange string, rows [][]interface{}) error {
	m.ranges = append(m.ranges, sheetRange)
	for i, row := range rows {
		if i < len(m.rows) {
			m.rows[i] = row
		} else {
			m.rows = append(m.rows, row)
		}
	}
	return nil
}

// data returns the non-blank rows.
func (m *memorySheet) data() [][]interface{} {
	var out [][]interface{}
	for _, row := range m.rows {
		if cellString(row[0]) != "" {
			out = append(out, row)
		}
	}
	return out
}

func seededService(t *testing.T) (*scheduling.Service, time.Time) {
	t.Helper()
	svc := scheduling.NewService(memory.NewEntryRepository(), flowrate.Default(), scheduling.Options{Location: time.UTC}, nil)
	day := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	inputs := []models.EntryInput{
		{Company: "TRR", Product: "QAV", Quota: 300, Start: day.Add(23 * time.Hour)},
		{Company: "POO", Product: "S10", Quota: 1200, Start: day.Add(6 * time.Hour)},
	}
	for _, in := range inputs {
		if _, err := svc.Create(context.Background(), in); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	return svc, day
}

func TestRows(t *testing.T) {
	start := time.Date(2024, 10, 1, 23, 0, 0, 0, time.UTC)
	bars := []models.TimelineBar{{
		Label:    "TRR (23:00 - 00:15)",
		Start:    start,
		End:      start.Add(75 * time.Minute),
		Category: "QAV",
		Tooltip:  models.TimelineTooltip{Company: "TRR", Product: "QAV", Quota: 300, Duration: "01:15"},
	}}

	rows := Rows(bars)
	if len(rows) != 1 || len(rows[0]) != len(Header) {
		t.Fatalf("unexpected shape: %v", rows)
	}
	if rows[0][0] != "2024-10-01" || rows[0][4] != "23:00" || rows[0][5] != "00:15 (+1)" || rows[0][6] != "01:15" {
		t.Errorf("unexpected row: %v", rows[0])
	}
}

func TestPublishDay(t *testing.T) {
	svc, day := seededService(t)
	sheet := &memorySheet{}
	exporter := NewService(svc, sheet, "Schedule!A:H", nil)

	n, err := exporter.PublishDay(context.Background(), day)
	if err != nil {
		t.Fatalf("PublishDay: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
	for _, r := range sheet.ranges {
		if r != "Schedule!A:H" {
			t.Errorf("range = %q", r)
		}
	}

	rows := sheet.data()
	if len(rows) != 3 || rows[0][0] != "date" || rows[1][1] != "POO" || rows[2][1] != "TRR" {
		t.Fatalf("unexpected sheet: %v", rows)
	}

	if _, err := exporter.PublishDay(context.Background(), day); err != nil {
		t.Fatalf("second PublishDay: %v", err)
	}
	if got := sheet.data(); len(got) != 3 {
		t.Fatalf("republishing duplicated rows: %v", got)
	}
}

func TestPublishDayReplacesOnlyThatDay(t *testing.T) {
	svc, day := seededService(t)
	other := []interface{}{"2024-09-30", "ABC", "GAS", 500.0, "08:00", "09:00", "01:00", "ABC (08:00 - 09:00)"}
	stale := []interface{}{"2024-10-01", "OLD", "OC", 1.0, "01:00", "01:01", "00:01", "OLD (01:00 - 01:01)"}
	sheet := &memorySheet{rows: [][]interface{}{
		append([]interface{}(nil), Header...),
		other,
		stale,
		{"2024-10-01", "OLD2", "OC", 1.0, "02:00", "02:01", "00:01", "OLD2 (02:00 - 02:01)"},
		{"2024-10-01", "OLD3", "OC", 1.0, "03:00", "03:01", "00:01", "OLD3 (03:00 - 03:01)"},
	}}
	exporter := NewService(svc, sheet, "Schedule!A:H", nil)

	if _, err := exporter.PublishDay(context.Background(), day); err != nil {
		t.Fatalf("PublishDay: %v", err)
	}

	rows := sheet.data()
	if len(rows) != 4 {
		t.Fatalf("expected header + other day + 2 rows, got %v", rows)
	}
	if rows[1][1] != "ABC" || rows[2][1] != "POO" || rows[3][1] != "TRR" {
		t.Errorf("unexpected rows: %v", rows)
	}
	if len(sheet.rows) != 5 {
		t.Errorf("stale tail not blanked: %v", sheet.rows)
	}

	// An emptied day removes its rows.
	n, err := exporter.PublishDay(context.Background(), day.AddDate(0, 0, -1))
	if err != nil || n != 0 {
		t.Fatalf("empty day: n=%d err=%v", n, err)
	}
	if got := sheet.data(); len(got) != 3 {
		t.Errorf("rows of the emptied day kept: %v", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	svc, day := seededService(t)
	exporter := NewService(svc, nil, "", nil)

	bars, err := exporter.Bars(context.Background(), day)
	if err != nil {
		t.Fatalf("Bars: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, day, bars); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("2024-10-01")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "company" || rows[1][1] != "POO" || rows[2][7] != "TRR (23:00 - 00:15)" {
		t.Errorf("unexpected workbook contents: %v", rows)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)); got != "bombeios_20241001.xlsx" {
		t.Errorf("FileName = %q", got)
	}
}
