package pivotexcel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Layout defaults of the export workbook.
const (
	DefaultSheetName        = "Export Dati"
	DefaultHierarchyHeader  = "Gerarchia"
	DefaultIndentMarker     = "    "
	DefaultFirstColumnWidth = 40
	DefaultDataColumnWidth  = 15
	DefaultAppName          = "InfoBi"
)

// ExportTemplate controls the layout of the export workbook.
type ExportTemplate struct {
	SheetName        string  `yaml:"sheet_name"`
	HierarchyHeader  string  `yaml:"hierarchy_header"`
	IndentMarker     string  `yaml:"indent_marker"`
	FirstColumnWidth float64 `yaml:"first_column_width"`
	DataColumnWidth  float64 `yaml:"data_column_width"`
	// NumberFormat is an optional custom format applied to measure cells.
	NumberFormat string `yaml:"number_format"`
	// SummaryAbove places group rows above their details in the outline.
	SummaryAbove     bool           `yaml:"summary_above"`
	HeaderStyle      *StyleTemplate `yaml:"header_style"`
	GroupHeaderStyle *StyleTemplate `yaml:"group_header_style"`
}

// StyleTemplate defines basic styling.
type StyleTemplate struct {
	Font      *FontTemplate      `yaml:"font"`
	Fill      *FillTemplate      `yaml:"fill"`
	Alignment *AlignmentTemplate `yaml:"alignment"`
}

type FontTemplate struct {
	Bold  bool   `yaml:"bold"`
	Color string `yaml:"color"` // Hex color
}

type FillTemplate struct {
	Color string `yaml:"color"` // Hex color
}

type AlignmentTemplate struct {
	Horizontal string `yaml:"horizontal"` // center, left, right
	Vertical   string `yaml:"vertical"`   // top, center, bottom
}

// DefaultTemplate returns the standard layout.
func DefaultTemplate() *ExportTemplate {
	return &ExportTemplate{
		SheetName:        DefaultSheetName,
		HierarchyHeader:  DefaultHierarchyHeader,
		IndentMarker:     DefaultIndentMarker,
		FirstColumnWidth: DefaultFirstColumnWidth,
		DataColumnWidth:  DefaultDataColumnWidth,
		SummaryAbove:     true,
		HeaderStyle: &StyleTemplate{
			Font: &FontTemplate{Bold: true},
		},
		GroupHeaderStyle: &StyleTemplate{
			Font:      &FontTemplate{Bold: true},
			Alignment: &AlignmentTemplate{Horizontal: "center", Vertical: "center"},
		},
	}
}

// ParseTemplate decodes a YAML template. Unset fields keep their defaults.
func ParseTemplate(data []byte) (*ExportTemplate, error) {
	tmpl := DefaultTemplate()
	if len(data) == 0 {
		return tmpl, nil
	}
	if err := yaml.Unmarshal(data, tmpl); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	tmpl.fillDefaults()
	return tmpl, nil
}

// LoadTemplate reads a YAML template from path.
func LoadTemplate(path string) (*ExportTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export template: %w", err)
	}
	return ParseTemplate(data)
}

func (t *ExportTemplate) fillDefaults() {
	if t.SheetName == "" {
		t.SheetName = DefaultSheetName
	}
	if t.HierarchyHeader == "" {
		t.HierarchyHeader = DefaultHierarchyHeader
	}
	if t.IndentMarker == "" {
		t.IndentMarker = DefaultIndentMarker
	}
	if t.FirstColumnWidth <= 0 {
		t.FirstColumnWidth = DefaultFirstColumnWidth
	}
	if t.DataColumnWidth <= 0 {
		t.DataColumnWidth = DefaultDataColumnWidth
	}
}
