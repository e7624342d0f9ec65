package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/pivotgrid/internal/domain"
	"github.com/locvowork/pivotgrid/internal/repository"
	"github.com/locvowork/pivotgrid/pkg/pivot"
)

type recordingIndex struct {
	indexed []domain.ReportDescriptor
	hits    []domain.ReportDescriptor
	err     error
}

func (x *recordingIndex) Index(ctx context.Context, reports []domain.ReportDescriptor) error {
	x.indexed = append(x.indexed, reports...)
	return x.err
}

func (x *recordingIndex) Search(ctx context.Context, query string, limit int) ([]domain.ReportDescriptor, error) {
	return x.hits, x.err
}

func reportsRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendite"), 0755))
	for _, name := range []string{"vendite/Mensile.rep", "vendite/annuale.rep", "costi.rep"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(name)), []byte(`{}`), 0644))
	}
	return root
}

func TestReportServiceCatalogIndexes(t *testing.T) {
	index := &recordingIndex{err: errors.New("index down")}
	svc := NewReportService(repository.NewFileReportRepository(reportsRoot(t)), index)

	catalog, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog["vendite"], 2)
	assert.Len(t, index.indexed, 3)
}

func TestReportServiceSearch(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewFileReportRepository(reportsRoot(t))

	t.Run("CatalogScan", func(t *testing.T) {
		got, err := NewReportService(repo, nil).Search(ctx, "mens", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "vendite/Mensile", got[0].Path)
	})

	t.Run("Index", func(t *testing.T) {
		hit := domain.ReportDescriptor{Name: "costi", Path: "costi"}
		got, err := NewReportService(repo, &recordingIndex{hits: []domain.ReportDescriptor{hit}}).Search(ctx, "cos", 5)
		require.NoError(t, err)
		assert.Equal(t, []domain.ReportDescriptor{hit}, got)
	})

	t.Run("IndexFailureFallsBack", func(t *testing.T) {
		got, err := NewReportService(repo, &recordingIndex{err: errors.New("down")}).Search(ctx, "VENDITE", 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("EmptyQuery", func(t *testing.T) {
		got, err := NewReportService(repo, nil).Search(ctx, "  ", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestReportServiceSaveIndexes(t *testing.T) {
	index := &recordingIndex{}
	svc := NewReportService(repository.NewFileReportRepository(t.TempDir()), index)

	require.NoError(t, svc.SaveConfig(context.Background(), "vendite/nuovo.rep", pivot.GridConfig{}))
	assert.Equal(t, []domain.ReportDescriptor{{Name: "nuovo", Path: "vendite/nuovo", Category: "vendite"}}, index.indexed)

	err := svc.SaveConfig(context.Background(), "../fuori", pivot.GridConfig{})
	assert.ErrorIs(t, err, domain.ErrPathOutsideRoot)
}
