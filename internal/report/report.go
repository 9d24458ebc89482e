// Package report renders a finished job's candidates as a spreadsheet for
// human review before approval.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"videopins-go/internal/types"
)

const sheetName = "Candidates"

var headers = []string{
	"Name", "Confidence", "Method", "Resolved Name", "Address",
	"Latitude", "Longitude", "Places Query", "Lookup Failed", "Evidence",
}

// WriteCandidates writes one row per candidate to w as an XLSX workbook.
func WriteCandidates(w io.Writer, video *types.Video, candidates []types.Candidate) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	f.SetSheetName(f.GetSheetName(0), sheetName)

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, c := range candidates {
		row := []any{
			c.Name,
			c.Confidence,
			string(c.Method),
			c.PlacesName,
			c.PlacesAddress,
			cellFloat(c.Latitude),
			cellFloat(c.Longitude),
			c.PlacesQuery,
			c.PlacesFailed,
			evidenceSummary(c.Evidence),
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("cell for row %d: %w", i+2, err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("write candidate %q: %w", c.Name, err)
			}
		}
	}

	if video != nil {
		if err := f.SetDocProps(&excelize.DocProperties{
			Title:   "Place candidates: " + video.Filename,
			Subject: video.ID,
		}); err != nil {
			return fmt.Errorf("set doc props: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func evidenceSummary(e types.Evidence) string {
	var parts []string
	for _, s := range e.TranscriptSnippets {
		parts = append(parts, s.Text)
	}
	for _, s := range e.OCRSnippets {
		parts = append(parts, s.Text)
	}
	parts = append(parts, e.Quotes...)
	summary := strings.Join(parts, " | ")
	if len(summary) > 500 {
		summary = summary[:500] + "..."
	}
	return summary
}
