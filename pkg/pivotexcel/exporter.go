package pivotexcel

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/locvowork/pivotgrid/pkg/pivot"
)

// maxOutlineLevel is the deepest outline level a worksheet supports.
const maxOutlineLevel = 7

// FileName is the download name of an export made at now.
func FileName(appName string, now time.Time) string {
	if appName == "" {
		appName = DefaultAppName
	}
	return fmt.Sprintf("Export_%s_%s.xlsx", appName, now.Format("2006-01-02"))
}

// Exporter writes a grid view as a workbook mirroring the on-screen hierarchy.
type Exporter struct {
	template *ExportTemplate

	styleCache   map[string]int
	colNameCache map[int]string
}

// NewExporter uses tmpl, or the default template when nil.
func NewExporter(tmpl *ExportTemplate) *Exporter {
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}
	tmpl.fillDefaults()
	return &Exporter{
		template:     tmpl,
		styleCache:   make(map[string]int),
		colNameCache: make(map[int]string),
	}
}

// Build renders view into a new workbook. Groups are written down to the
// deepest hierarchy level; rows below the top level start hidden.
func (e *Exporter) Build(view *pivot.View) (*excelize.File, error) {
	e.styleCache = make(map[string]int)

	f := excelize.NewFile()
	sheet := e.template.SheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	columns := exportColumns(view)
	headerRows, err := e.writeHeader(f, sheet, view, columns)
	if err != nil {
		f.Close()
		return nil, err
	}

	numStyle := 0
	if e.template.NumberFormat != "" && len(columns) > 0 {
		numFmt := e.template.NumberFormat
		if numStyle, err = e.createStyle(f, nil, &numFmt); err != nil {
			f.Close()
			return nil, err
		}
	}

	for i, n := range view.ExportNodes() {
		row := headerRows + i + 1
		values := make([]interface{}, 0, len(columns)+1)
		values = append(values, strings.Repeat(e.template.IndentMarker, n.Depth)+n.Label())
		for _, c := range columns {
			values = append(values, n.GetValue(c.ID))
		}
		if err := f.SetSheetRow(sheet, e.getCellAddress(1, row), &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		if numStyle != 0 {
			if err := f.SetCellStyle(sheet, e.getCellAddress(2, row), e.getCellAddress(len(columns)+1, row), numStyle); err != nil {
				f.Close()
				return nil, err
			}
		}
		if n.Depth > 0 {
			level := n.Depth
			if level > maxOutlineLevel {
				level = maxOutlineLevel
			}
			if err := f.SetRowOutlineLevel(sheet, row, uint8(level)); err != nil {
				f.Close()
				return nil, fmt.Errorf("outline row %d: %w", row, err)
			}
			if err := f.SetRowVisible(sheet, row, false); err != nil {
				f.Close()
				return nil, fmt.Errorf("hide row %d: %w", row, err)
			}
		}
	}

	if err := e.setWidths(f, sheet, len(columns)); err != nil {
		f.Close()
		return nil, err
	}
	if e.template.SummaryAbove {
		below := false
		if err := f.SetSheetProps(sheet, &excelize.SheetPropsOptions{OutlineSummaryBelow: &below}); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// ToBytes exports view to an in-memory workbook.
func (e *Exporter) ToBytes(view *pivot.View) ([]byte, error) {
	f, err := e.Build(view)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := new(bytes.Buffer)
	if _, err := f.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToWriter exports view directly to w.
func (e *Exporter) ToWriter(w io.Writer, view *pivot.View) error {
	f, err := e.Build(view)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.Write(w)
}

// SaveAs exports view to a file on disk.
func (e *Exporter) SaveAs(path string, view *pivot.View) error {
	f, err := e.Build(view)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

// exportColumns are the visible columns written after the hierarchy label.
func exportColumns(view *pivot.View) []*pivot.Column {
	var out []*pivot.Column
	for _, c := range view.VisibleColumns() {
		if !c.IsTree {
			out = append(out, c)
		}
	}
	return out
}

func (e *Exporter) writeHeader(f *excelize.File, sheet string, view *pivot.View, columns []*pivot.Column) (int, error) {
	headerStyle, err := e.createStyle(f, e.template.HeaderStyle, nil)
	if err != nil {
		return 0, err
	}

	if !view.Columns.HasPeriodGroups() {
		row := []interface{}{e.template.HierarchyHeader}
		for _, c := range columns {
			row = append(row, c.Header)
		}
		if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
			return 0, err
		}
		if headerStyle != 0 {
			if err := f.SetCellStyle(sheet, "A1", e.getCellAddress(len(row), 1), headerStyle); err != nil {
				return 0, err
			}
		}
		return 1, nil
	}

	groupStyle, err := e.createStyle(f, e.template.GroupHeaderStyle, nil)
	if err != nil {
		return 0, err
	}

	visible := make(map[string]bool, len(columns))
	for _, c := range columns {
		visible[c.ID] = true
	}

	top := []interface{}{e.template.HierarchyHeader}
	bottom := []interface{}{""}
	var merges [][2]string
	col := 2
	for _, g := range view.Columns.Groups {
		span := 0
		for _, id := range g.ColumnIDs {
			if visible[id] {
				span++
			}
		}
		if span == 0 {
			continue
		}
		top = append(top, g.Label)
		for i := 1; i < span; i++ {
			top = append(top, "")
		}
		if span > 1 {
			merges = append(merges, [2]string{e.getCellAddress(col, 1), e.getCellAddress(col+span-1, 1)})
		}
		col += span
	}
	for _, c := range columns {
		bottom = append(bottom, c.Header)
	}

	if err := f.SetSheetRow(sheet, "A1", &top); err != nil {
		return 0, err
	}
	if err := f.SetSheetRow(sheet, "A2", &bottom); err != nil {
		return 0, err
	}
	// Merge only after both rows are written: writes inside a merged range
	// land on its top-left cell.
	merges = append(merges, [2]string{"A1", "A2"})
	for _, m := range merges {
		if err := f.MergeCell(sheet, m[0], m[1]); err != nil {
			return 0, err
		}
	}
	if groupStyle != 0 {
		if err := f.SetCellStyle(sheet, "A1", e.getCellAddress(len(top), 1), groupStyle); err != nil {
			return 0, err
		}
	}
	if headerStyle != 0 {
		if err := f.SetCellStyle(sheet, "A2", e.getCellAddress(len(bottom), 2), headerStyle); err != nil {
			return 0, err
		}
	}
	return 2, nil
}

func (e *Exporter) setWidths(f *excelize.File, sheet string, dataColumns int) error {
	if err := f.SetColWidth(sheet, "A", "A", e.template.FirstColumnWidth); err != nil {
		return err
	}
	if dataColumns == 0 {
		return nil
	}
	return f.SetColWidth(sheet, e.getColName(2), e.getColName(dataColumns+1), e.template.DataColumnWidth)
}

// getColName returns the column name for a given column number, with caching.
func (e *Exporter) getColName(col int) string {
	if name, ok := e.colNameCache[col]; ok {
		return name
	}
	name, _ := excelize.ColumnNumberToName(col)
	e.colNameCache[col] = name
	return name
}

func (e *Exporter) getCellAddress(col, row int) string {
	return fmt.Sprintf("%s%d", e.getColName(col), row)
}

func (e *Exporter) createStyle(f *excelize.File, tmpl *StyleTemplate, numFmt *string) (int, error) {
	if tmpl == nil && numFmt == nil {
		return 0, nil
	}

	// Generate a unique key for this style
	var sb strings.Builder
	if tmpl != nil {
		if tmpl.Font != nil {
			fmt.Fprintf(&sb, "f:%v:%s|", tmpl.Font.Bold, tmpl.Font.Color)
		}
		if tmpl.Fill != nil {
			fmt.Fprintf(&sb, "i:%s|", tmpl.Fill.Color)
		}
		if tmpl.Alignment != nil {
			fmt.Fprintf(&sb, "a:%s:%s|", tmpl.Alignment.Horizontal, tmpl.Alignment.Vertical)
		}
	}
	if numFmt != nil {
		fmt.Fprintf(&sb, "n:%s|", *numFmt)
	}
	key := sb.String()

	if id, ok := e.styleCache[key]; ok {
		return id, nil
	}

	style := &excelize.Style{CustomNumFmt: numFmt}
	if tmpl != nil {
		if tmpl.Font != nil {
			style.Font = &excelize.Font{
				Bold:  tmpl.Font.Bold,
				Color: strings.TrimPrefix(tmpl.Font.Color, "#"),
			}
		}
		if tmpl.Fill != nil {
			style.Fill = excelize.Fill{
				Type:    "pattern",
				Color:   []string{strings.TrimPrefix(tmpl.Fill.Color, "#")},
				Pattern: 1,
			}
		}
		if tmpl.Alignment != nil {
			style.Alignment = &excelize.Alignment{
				Horizontal: tmpl.Alignment.Horizontal,
				Vertical:   tmpl.Alignment.Vertical,
			}
		}
	}
	id, err := f.NewStyle(style)
	if err == nil {
		e.styleCache[key] = id
	}
	return id, err
}
