package chunker

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ChunkTabular renders rows as a schema chunk, row batches and, when
// enabled, a summary statistics chunk. The schema chunk always comes first.
// When columns is empty the column list is taken from the row keys.
func (p *Processor) ChunkTabular(rows []map[string]any, columns []string) []string {
	chunks, _ := p.chunkTabular(rows, columns)
	return chunks
}

func (p *Processor) chunkTabular(rows []map[string]any, columns []string) ([]string, []string) {
	if len(columns) == 0 {
		columns = inferColumns(rows)
	}

	chunks := []string{schemaChunk(columns, len(rows))}
	sections := []string{SectionSchema}

	for start := 0; start < len(rows); start += p.rowsPerChunk {
		end := min(start+p.rowsPerChunk, len(rows))
		lines := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			lines = append(lines, formatRow(i+1, rows[i], columns))
		}
		chunks = append(chunks, strings.Join(lines, "\n"))
		sections = append(sections, SectionRows)
	}

	if p.statistics {
		if stats, ok := statisticsChunk(rows, columns); ok {
			chunks = append(chunks, stats)
			sections = append(sections, SectionStatistics)
		}
	}

	if p.maxChunks > 0 && len(chunks) > p.maxChunks {
		chunks = chunks[:p.maxChunks]
		sections = sections[:p.maxChunks]
	}
	return chunks, sections
}

func schemaChunk(columns []string, rowCount int) string {
	return fmt.Sprintf("Dataset Schema:\nColumns: %s\nTotal Rows: %d", strings.Join(columns, ", "), rowCount)
}

func formatRow(n int, row map[string]any, columns []string) string {
	pairs := make([]string, len(columns))
	for i, col := range columns {
		pairs[i] = col + ": " + formatValue(row[col])
	}
	return fmt.Sprintf("Row %d: %s", n, strings.Join(pairs, ", "))
}

func statisticsChunk(rows []map[string]any, columns []string) (string, bool) {
	var lines []string
	for _, col := range columns {
		var (
			count  int
			sum    float64
			lo, hi = math.Inf(1), math.Inf(-1)
		)
		for _, row := range rows {
			v, ok := toFloat(row[col])
			if !ok {
				continue
			}
			count++
			sum += v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if count == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: Sum=%.2f, Avg=%.2f, Min=%s, Max=%s",
			col, sum, sum/float64(count), formatFloat(lo), formatFloat(hi)))
	}
	if len(lines) == 0 {
		return "", false
	}
	return "Summary Statistics:\n" + strings.Join(lines, "\n"), true
}

func inferColumns(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)
	return cols
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toFloat converts numeric values and numeric strings to float64.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
