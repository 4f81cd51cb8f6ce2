package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/maauso/pfp-animate/internal/job"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:           i + 1,
			Align:            align,
			AlignHeader:      text.AlignLeft,
			WidthMax:         72,
			WidthMaxEnforcer: text.WrapSoft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderSummary formats a job result as a two-column table.
func renderSummary(out *job.Output) string {
	rows := [][]string{
		{"Job", out.JobID},
		{"Status", string(out.Status)},
	}
	if out.Path != "" {
		rows = append(rows, []string{"Output", out.Path})
	}
	if out.URL != "" {
		rows = append(rows, []string{"URL", out.URL})
	}
	if out.Format != "" {
		format := out.Format
		if out.FellBack {
			format += " (fallback)"
		}
		rows = append(rows, []string{"Format", format})
	}
	if out.Frames > 0 {
		rows = append(rows, []string{"Frames", fmt.Sprintf("%d/%d", out.Frames-len(out.LostFrames), out.Frames)})
	}
	if len(out.LostFrames) > 0 {
		rows = append(rows, []string{"Lost frames", joinInts(out.LostFrames)})
	}
	rows = append(rows, []string{"Elapsed", out.Elapsed.Round(100 * time.Millisecond).String()})
	if out.CostEstimate > 0 {
		rows = append(rows, []string{"Est. cost", fmt.Sprintf("$%.3f", out.CostEstimate)})
	}
	if out.Error != "" {
		rows = append(rows, []string{"Error", out.Error})
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

// joinInts lists indices 1-based, the way frames are reported in logs.
func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v + 1)
	}
	return strings.Join(parts, ", ")
}
