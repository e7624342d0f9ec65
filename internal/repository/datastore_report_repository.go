package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/locvowork/pivotgrid/internal/domain"
	"github.com/locvowork/pivotgrid/pkg/googlecloud"
	"github.com/locvowork/pivotgrid/pkg/pivot"
)

// ReportStore is the slice of the Datastore client the repository needs.
type ReportStore interface {
	GetReport(ctx context.Context, path string) (*googlecloud.ReportEntity, error)
	ListReports(ctx context.Context) ([]googlecloud.ReportEntity, error)
	UpsertReport(ctx context.Context, report *googlecloud.ReportEntity) error
}

type datastoreReportRepository struct {
	store ReportStore
	retry googlecloud.RetryConfig
}

// NewDatastoreReportRepository keeps report configurations in Cloud Datastore.
func NewDatastoreReportRepository(store ReportStore) domain.ReportRepository {
	return &datastoreReportRepository{store: store, retry: googlecloud.DefaultRetryConfig()}
}

func (r *datastoreReportRepository) Catalog(ctx context.Context) (domain.Catalog, error) {
	var reports []googlecloud.ReportEntity
	err := googlecloud.WithRetry(ctx, r.retry, func() error {
		var err error
		reports, err = r.store.ListReports(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	catalog := domain.Catalog{}
	for _, e := range reports {
		catalog.Add(domain.ReportDescriptor{Name: e.Name, Path: e.Path, Category: e.Category})
	}
	catalog.SortByName()
	return catalog, nil
}

func (r *datastoreReportRepository) LoadConfig(ctx context.Context, path string) (pivot.GridConfig, error) {
	clean, err := domain.CleanReportPath(path)
	if err != nil {
		return pivot.GridConfig{}, err
	}

	var entity *googlecloud.ReportEntity
	err = googlecloud.WithRetry(ctx, r.retry, func() error {
		var err error
		entity, err = r.store.GetReport(ctx, clean)
		return err
	})
	if googlecloud.IsNotFoundError(err) {
		return pivot.GridConfig{}, nil
	}
	if err != nil {
		return pivot.GridConfig{}, fmt.Errorf("failed to get report: %w", err)
	}

	var cfg pivot.GridConfig
	if entity.Config == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(entity.Config), &cfg); err != nil {
		return pivot.GridConfig{}, fmt.Errorf("failed to decode report config: %w", err)
	}
	return cfg, nil
}

func (r *datastoreReportRepository) SaveConfig(ctx context.Context, path string, cfg pivot.GridConfig) error {
	clean, err := domain.CleanReportPath(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode report config: %w", err)
	}

	d := domain.DescriptorFor(clean)
	entity := &googlecloud.ReportEntity{Path: d.Path, Name: d.Name, Category: d.Category, Config: string(raw)}
	err = googlecloud.WithRetry(ctx, r.retry, func() error {
		return r.store.UpsertReport(ctx, entity)
	})
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}
