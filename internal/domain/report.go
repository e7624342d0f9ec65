package domain

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/locvowork/pivotgrid/pkg/pivot"
)

// DefaultCategory holds reports stored at the root of the report tree.
const DefaultCategory = "Generale"

// ReportExt is the suffix of report configuration files.
const ReportExt = ".rep"

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrPathOutsideRoot = errors.New("report path outside reports root")
	ErrInvalidPath     = errors.New("invalid report path")
)

// ReportDescriptor identifies a saved report.
type ReportDescriptor struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Category string `json:"-"`
}

// Catalog maps a category to its reports ordered by name.
type Catalog map[string][]ReportDescriptor

// Add appends d to its category.
func (c Catalog) Add(d ReportDescriptor) {
	cat := d.Category
	if cat == "" {
		cat = DefaultCategory
	}
	c[cat] = append(c[cat], d)
}

// Descriptors flattens the catalog, categories in name order.
func (c Catalog) Descriptors() []ReportDescriptor {
	cats := make([]string, 0, len(c))
	for cat := range c {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var out []ReportDescriptor
	for _, cat := range cats {
		for _, d := range c[cat] {
			d.Category = cat
			out = append(out, d)
		}
	}
	return out
}

// ReportRepository persists grid configurations keyed by report path.
type ReportRepository interface {
	Catalog(ctx context.Context) (Catalog, error)
	// LoadConfig returns an empty configuration when no report exists at path.
	LoadConfig(ctx context.Context, path string) (pivot.GridConfig, error)
	SaveConfig(ctx context.Context, path string, cfg pivot.GridConfig) error
}

// ReportIndex is a full-text index of report descriptors.
type ReportIndex interface {
	Index(ctx context.Context, reports []ReportDescriptor) error
	Search(ctx context.Context, query string, limit int) ([]ReportDescriptor, error)
}

// CleanReportPath normalizes a report path to its slash-separated form without suffix.
func CleanReportPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimSuffix(p, ReportExt)
	if p == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return "", ErrInvalidPath
	}
	// A leading ".." survives only when p climbs above the root.
	if rel := path.Clean(p); rel == ".." || strings.HasPrefix(rel, "../") {
		return "", ErrPathOutsideRoot
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

// DescriptorFor derives name and category from a cleaned report path.
func DescriptorFor(p string) ReportDescriptor {
	d := ReportDescriptor{Path: p, Name: path.Base(p), Category: DefaultCategory}
	if i := strings.Index(p, "/"); i > 0 {
		d.Category = p[:i]
	}
	return d
}

// SortByName orders every category by report name.
func (c Catalog) SortByName() {
	for _, items := range c {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Name < items[j].Name
		})
	}
}
