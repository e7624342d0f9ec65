package googlecloud

import (
	"context"

	"cloud.google.com/go/datastore"
)

func reportKey(path string) *datastore.Key {
	return datastore.NameKey(KindReport, path, nil)
}

// GetReport retrieves a report by path.
func (c *Client) GetReport(ctx context.Context, path string) (*ReportEntity, error) {
	if path == "" {
		return nil, ErrInvalidKey
	}
	var report ReportEntity
	if err := c.ds.Get(ctx, reportKey(path), &report); err != nil {
		return nil, WrapDatastoreError(err)
	}
	report.Path = path
	return &report, nil
}

// ListReports returns every report ordered by category.
func (c *Client) ListReports(ctx context.Context) ([]ReportEntity, error) {
	query := datastore.NewQuery(KindReport).Order("category")

	var reports []ReportEntity
	keys, err := c.ds.GetAll(ctx, query, &reports)
	if err != nil {
		return nil, err
	}

	for i, key := range keys {
		reports[i].Path = key.Name
	}
	return reports, nil
}

// DeleteReport removes a report. Deleting a missing report is not an error.
func (c *Client) DeleteReport(ctx context.Context, path string) error {
	if path == "" {
		return ErrInvalidKey
	}
	return c.ds.Delete(ctx, reportKey(path))
}
