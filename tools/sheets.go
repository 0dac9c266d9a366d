package tools

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
)

type SheetInput struct {
	FilePath string `json:"file_path" jsonschema_description:"Relative path of the attached file."`
	Query    string `json:"query" jsonschema_description:"Question about the data."`
}

func AnalyzeCSV(env Env) ToolDefinition {
	return NewTool("analyze_csv_file", "A tool to analyze a CSV file and answer a question about it.",
		func(_ context.Context, in SheetInput) (string, error) {
			t, err := loadCSV(env, in.FilePath)
			if err != nil {
				return "", fmt.Errorf("analyze csv: %w", err)
			}
			return env.clamp(t.describe("CSV")), nil
		})
}

func AnalyzeExcel(env Env) ToolDefinition {
	return NewTool("analyze_excel_file", "A tool to analyze an Excel file and answer a question about it.",
		func(_ context.Context, in SheetInput) (string, error) {
			t, err := loadExcel(env, in.FilePath)
			if err != nil {
				return "", fmt.Errorf("analyze excel: %w", err)
			}
			return env.clamp(t.describe("Excel")), nil
		})
}

var errNoSandbox = errors.New("no attachments directory configured")

// table is a header row plus data rows padded to the header width.
type table struct {
	columns []string
	rows    [][]string
}

func newTable(records [][]string) (table, error) {
	if len(records) == 0 {
		return table{}, errors.New("file has no header row")
	}
	t := table{columns: records[0]}
	for _, rec := range records[1:] {
		row := make([]string, len(t.columns))
		copy(row, rec)
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func loadCSV(env Env, rel string) (table, error) {
	if env.Files == nil {
		return table{}, errNoSandbox
	}
	path, err := env.Files.ResolveFile(rel, ".csv")
	if err != nil {
		return table{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return table{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return table{}, err
	}
	return newTable(records)
}

func loadExcel(env Env, rel string) (table, error) {
	if env.Files == nil {
		return table{}, errNoSandbox
	}
	path, err := env.Files.ResolveFile(rel, ".xlsx", ".xlsm")
	if err != nil {
		return table{}, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return table{}, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table{}, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return table{}, err
	}
	return newTable(records)
}

func (t table) describe(kind string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s file loaded with %d rows and %d columns.\n", kind, len(t.rows), len(t.columns))
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(t.columns, ", "))
	b.WriteString("Summary statistics:\n")

	var names []string
	var stats []summary
	for i, name := range t.columns {
		vals, ok := t.numeric(i)
		if !ok {
			continue
		}
		names = append(names, name)
		stats = append(stats, summarize(vals))
	}
	if len(names) == 0 {
		b.WriteString("no numeric columns")
		return b.String()
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(names, "\t"))
	for _, label := range summaryLabels {
		cells := make([]string, len(stats))
		for i, s := range stats {
			cells[i] = formatStat(s.get(label))
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", label, strings.Join(cells, "\t"))
	}
	tw.Flush()
	return b.String()
}

// numeric returns column i's non-empty values when all of them parse as numbers.
func (t table) numeric(i int) ([]float64, bool) {
	var vals []float64
	for _, row := range t.rows {
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		vals = append(vals, v)
	}
	return vals, len(vals) > 0
}

var summaryLabels = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

type summary struct {
	count, mean, std, min, q1, median, q3, max float64
}

func (s summary) get(label string) float64 {
	switch label {
	case "count":
		return s.count
	case "mean":
		return s.mean
	case "std":
		return s.std
	case "min":
		return s.min
	case "25%":
		return s.q1
	case "50%":
		return s.median
	case "75%":
		return s.q3
	default:
		return s.max
	}
}

func summarize(vals []float64) summary {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := float64(len(sorted))

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / n

	std := math.NaN()
	if len(sorted) > 1 {
		sq := 0.0
		for _, v := range sorted {
			sq += (v - mean) * (v - mean)
		}
		std = math.Sqrt(sq / (n - 1))
	}
	return summary{
		count:  n,
		mean:   mean,
		std:    std,
		min:    sorted[0],
		q1:     quantile(sorted, 0.25),
		median: quantile(sorted, 0.5),
		q3:     quantile(sorted, 0.75),
		max:    sorted[len(sorted)-1],
	}
}

// quantile interpolates linearly between closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
