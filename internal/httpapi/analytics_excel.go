package httpapi

import (
	"bytes"
	"fmt"
	"strings"

	"asha-triage/internal/models"

	"github.com/xuri/excelize/v2"
)

// DistrictAnalyticsExportHeader 区级分析导出表头
var DistrictAnalyticsExportHeader = []string{
	"Event ID",
	"Event Type",
	"District",
	"State",
	"Urgency Level",
	"Symptoms",
	"Timestamp",
}

// GenerateDistrictAnalyticsExport 生成区级分析事件 Excel 文件
// events 为空时只生成表头
func GenerateDistrictAnalyticsExport(events []models.AnalyticsEvent) ([]byte, error) {
	f := excelize.NewFile()
	// 注意：不能在这里 defer Close()，WriteTo 需要文件保持打开

	sheetName := "District Analytics"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 写入表头
	for col, header := range DistrictAnalyticsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	columnWidths := []float64{
		38, // Event ID
		12, // Event Type
		18, // District
		18, // State
		14, // Urgency Level
		50, // Symptoms
		24, // Timestamp
	}
	for i := range DistrictAnalyticsExportHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 写入数据（第1行是表头，数据从第2行开始）
	for rowIdx, event := range events {
		row := rowIdx + 2
		values := []any{
			event.EventID,
			string(event.EventType),
			event.District,
			event.State,
			string(event.UrgencyLevel),
			strings.Join(event.Symptoms, "; "),
			event.Timestamp,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}

	return buf.Bytes(), nil
}
