package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Compliance"

var columns = []string{
	"Project", "Subcontractor", "Broker", "Compliance Status",
	"On-Site Date", "Latest Verdict", "Deficiencies", "Verified At",
}

// ExportXLSX renders the compliance rows as a styled workbook: bold filled
// header row, frozen pane, autofilter over the data range.
func ExportXLSX(rows []Row, generatedAt time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return nil, err
		}
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheetName, "A1", endHeader, headerStyle); err != nil {
		return nil, err
	}

	for r, row := range rows {
		values := []interface{}{
			row.ProjectName,
			row.SubcontractorName,
			row.BrokerName,
			string(row.Status),
			formatDate(row.OnSiteDate),
			row.VerdictStatus,
			row.Deficiencies,
			formatTimestamp(row.VerifiedAt),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		endData, _ := excelize.CoordinatesToCellName(len(columns), len(rows)+1)
		if err := f.AutoFilter(sheetName, "A1:"+endData, nil); err != nil {
			return nil, err
		}
	}

	f.SetCellValue(sheetName, cellBelowData(len(rows)), "Generated "+generatedAt.Format(time.RFC3339))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func cellBelowData(rowCount int) string {
	cell, _ := excelize.CoordinatesToCellName(1, rowCount+3)
	return cell
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
