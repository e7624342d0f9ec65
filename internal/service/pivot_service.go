package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/locvowork/pivotgrid/internal/domain"
	"github.com/locvowork/pivotgrid/internal/logger"
	"github.com/locvowork/pivotgrid/pkg/pivot"
	"github.com/locvowork/pivotgrid/pkg/pivotexcel"
)

// ErrIncompleteMetric is returned when a metric lacks its label or one of its fields.
var ErrIncompleteMetric = errors.New("metric label and both fields are required")

type PivotService interface {
	View(ctx context.Context, req *domain.PivotRequest) (*domain.PivotView, error)
	Export(ctx context.Context, req *domain.PivotRequest) ([]byte, string, error)
	CommitMetric(ctx context.Context, req *domain.MetricRequest) (*domain.MetricResult, error)
}

type PivotOptions struct {
	PeriodField string
	AppName     string
	RowHeight   int
	Overscan    int
	Template    *pivotexcel.ExportTemplate
}

type pivotService struct {
	periodField string
	appName     string
	virtualizer pivot.Virtualizer
	template    *pivotexcel.ExportTemplate
	now         func() time.Time
}

func NewPivotService(opts PivotOptions) PivotService {
	periodField := opts.PeriodField
	if periodField == "" {
		periodField = pivot.DefaultPeriodField
	}
	tmpl := opts.Template
	if tmpl == nil {
		tmpl = pivotexcel.DefaultTemplate()
	}
	return &pivotService{
		periodField: periodField,
		appName:     opts.AppName,
		virtualizer: pivot.NewVirtualizer(opts.RowHeight, opts.Overscan),
		template:    tmpl,
		now:         time.Now,
	}
}

func (s *pivotService) compute(ctx context.Context, req *domain.PivotRequest) *pivot.View {
	start := time.Now()
	v := pivot.Compute(req.Input(s.periodField))
	logger.DebugLog(ctx, "pivot computed: rows=%d periods=%d columns=%d visible=%d elapsed=%s",
		len(v.Rows), len(v.Periods), len(v.Columns.Columns), len(v.Visible), time.Since(start))
	return v
}

func (s *pivotService) View(ctx context.Context, req *domain.PivotRequest) (*domain.PivotView, error) {
	v := s.compute(ctx, req)
	window := s.virtualizer.Window(v.Keys(), req.Viewport.ScrollOffset, req.Viewport.Height)

	columns := v.VisibleColumns()
	rows := make([]domain.RenderedRow, 0, len(window.Items))
	for _, item := range window.Items {
		n := v.Visible[item.Index]
		rows = append(rows, domain.RenderedRow{
			ID:     n.ID,
			Index:  item.Index,
			Depth:  n.Depth,
			Start:  item.Start,
			Size:   item.Size,
			IsLeaf: n.IsLeaf(),
			Tree:   v.Columns.TreeCellFor(n, v.Expanded.IsExpanded(n.ID)),
			Cells:  cells(n, columns),
		})
	}

	return &domain.PivotView{
		Periods:       v.Periods,
		Columns:       v.Columns,
		Visibility:    v.Visibility,
		Sorting:       v.Sorting,
		MetricOptions: v.Columns.MetricOptions(),
		RecordCount:   len(v.Visible),
		TotalSize:     window.TotalSize,
		Rows:          rows,
		Total:         cells(v.Tree.Total, columns),
	}, nil
}

func cells(n *pivot.Node, columns []*pivot.Column) map[string]domain.Cell {
	out := make(map[string]domain.Cell, len(columns))
	for _, c := range columns {
		if c.IsTree {
			continue
		}
		value := n.GetValue(c.ID)
		out[c.ID] = domain.Cell{Value: value, Display: c.Format(value)}
	}
	return out
}

func (s *pivotService) Export(ctx context.Context, req *domain.PivotRequest) ([]byte, string, error) {
	v := s.compute(ctx, req)

	tmpl := *s.template
	data, err := pivotexcel.NewExporter(&tmpl).ToBytes(v)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build workbook: %w", err)
	}
	name := pivotexcel.FileName(s.appName, s.now())
	logger.InfoLog(ctx, "exported %s: %d rows, %d bytes", name, len(v.ExportNodes()), len(data))
	return data, name, nil
}

func (s *pivotService) CommitMetric(ctx context.Context, req *domain.MetricRequest) (*domain.MetricResult, error) {
	builder := pivot.NewMetricBuilder()
	builder.SetDraft(req.Draft())

	cfg, metric, ok := builder.Commit(req.Config)
	if !ok {
		return &domain.MetricResult{Committed: false, Config: req.Config}, ErrIncompleteMetric
	}
	logger.InfoLog(ctx, "metric %s added: %s %s %s", metric.Name, metric.Field1, metric.Operation, metric.Field2)
	return &domain.MetricResult{Committed: true, Config: cfg, Metric: &metric}, nil
}
