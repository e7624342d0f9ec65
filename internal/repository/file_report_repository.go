package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/locvowork/pivotgrid/internal/domain"
	"github.com/locvowork/pivotgrid/internal/logger"
	"github.com/locvowork/pivotgrid/pkg/pivot"
)

type fileReportRepository struct {
	root string
}

// NewFileReportRepository stores reports as ".rep" JSON files under root.
func NewFileReportRepository(root string) domain.ReportRepository {
	return &fileReportRepository{root: filepath.Clean(root)}
}

func (r *fileReportRepository) Catalog(ctx context.Context) (domain.Catalog, error) {
	catalog := domain.Catalog{}
	err := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == r.root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), domain.ReportExt) {
			return nil
		}
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		catalog.Add(domain.DescriptorFor(rel[:len(rel)-len(domain.ReportExt)]))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk reports directory: %w", err)
	}
	catalog.SortByName()
	return catalog, nil
}

func (r *fileReportRepository) LoadConfig(ctx context.Context, path string) (pivot.GridConfig, error) {
	primary, err := r.resolve(path)
	if err != nil {
		return pivot.GridConfig{}, err
	}
	fallback := filepath.Join(r.root, filepath.Base(primary))

	var found string
	for _, candidate := range []string{primary, fallback} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			found = candidate
			break
		}
	}
	if found == "" {
		logger.DebugLog(ctx, "report %q not found, using empty configuration", path)
		return pivot.GridConfig{}, nil
	}

	data, err := os.ReadFile(found)
	if err != nil {
		return pivot.GridConfig{}, fmt.Errorf("failed to read report config: %w", err)
	}
	var cfg pivot.GridConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		logger.ErrorLog(ctx, "invalid report config %s: %v", found, err)
		return pivot.GridConfig{}, nil
	}
	if cfg.InitialConfig == nil {
		logger.WarnLog(ctx, "report config %s has no initialConfig, the grid will not be grouped", found)
	}
	return cfg, nil
}

func (r *fileReportRepository) SaveConfig(ctx context.Context, path string, cfg pivot.GridConfig) error {
	target, err := r.resolve(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".rep-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report config: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to replace report config: %w", err)
	}
	logger.InfoLog(ctx, "saved report config %s", target)
	return nil
}

// resolve maps a report path to its file, refusing anything outside root.
func (r *fileReportRepository) resolve(path string) (string, error) {
	clean, err := domain.CleanReportPath(path)
	if err != nil {
		return "", err
	}
	target := filepath.Join(r.root, filepath.FromSlash(clean)+domain.ReportExt)
	rel, err := filepath.Rel(r.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrPathOutsideRoot
	}
	return target, nil
}
