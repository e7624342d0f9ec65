package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/locvowork/pivotgrid/internal/domain"
	"github.com/locvowork/pivotgrid/internal/logger"
	"github.com/locvowork/pivotgrid/pkg/pivot"
)

// DefaultSearchLimit caps report search results.
const DefaultSearchLimit = 20

type ReportService interface {
	Catalog(ctx context.Context) (domain.Catalog, error)
	LoadConfig(ctx context.Context, path string) (pivot.GridConfig, error)
	SaveConfig(ctx context.Context, path string, cfg pivot.GridConfig) error
	Search(ctx context.Context, query string, limit int) ([]domain.ReportDescriptor, error)
}

type reportService struct {
	repo  domain.ReportRepository
	index domain.ReportIndex
}

// NewReportService serves reports from repo. index may be nil, in which case
// search scans the catalog.
func NewReportService(repo domain.ReportRepository, index domain.ReportIndex) ReportService {
	return &reportService{repo: repo, index: index}
}

func (s *reportService) Catalog(ctx context.Context) (domain.Catalog, error) {
	catalog, err := s.repo.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	if s.index != nil {
		if err := s.index.Index(ctx, catalog.Descriptors()); err != nil {
			logger.WarnLog(ctx, "report index not updated: %v", err)
		}
	}
	return catalog, nil
}

func (s *reportService) LoadConfig(ctx context.Context, path string) (pivot.GridConfig, error) {
	return s.repo.LoadConfig(ctx, path)
}

func (s *reportService) SaveConfig(ctx context.Context, path string, cfg pivot.GridConfig) error {
	if err := s.repo.SaveConfig(ctx, path, cfg); err != nil {
		return err
	}
	if s.index != nil {
		clean, _ := domain.CleanReportPath(path)
		if err := s.index.Index(ctx, []domain.ReportDescriptor{domain.DescriptorFor(clean)}); err != nil {
			logger.WarnLog(ctx, "report index not updated: %v", err)
		}
	}
	return nil
}

func (s *reportService) Search(ctx context.Context, query string, limit int) ([]domain.ReportDescriptor, error) {
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if query == "" {
		return []domain.ReportDescriptor{}, nil
	}

	if s.index != nil {
		found, err := s.index.Search(ctx, query, limit)
		if err == nil {
			return found, nil
		}
		logger.WarnLog(ctx, "report index search failed, scanning catalog: %v", err)
	}

	catalog, err := s.repo.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	q := strings.ToLower(query)
	out := []domain.ReportDescriptor{}
	for _, d := range catalog.Descriptors() {
		if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Path), q) {
			out = append(out, d)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
