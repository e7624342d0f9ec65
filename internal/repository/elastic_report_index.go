package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olivere/elastic/v7"

	"github.com/locvowork/pivotgrid/internal/domain"
)

const reportIndexMapping = `{
	"mappings": {
		"properties": {
			"name":     {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"path":     {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"category": {"type": "keyword"}
		}
	}
}`

type reportDocument struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Category string `json:"category"`
}

type elasticReportIndex struct {
	client *elastic.Client
	index  string
}

// NewElasticClient connects to a single node without sniffing.
func NewElasticClient(url string) (*elastic.Client, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create elastic client: %w", err)
	}
	return client, nil
}

// NewElasticReportIndex makes sure index exists and returns a search index over it.
func NewElasticReportIndex(ctx context.Context, client *elastic.Client, index string) (domain.ReportIndex, error) {
	exists, err := client.IndexExists(index).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check index %s: %w", index, err)
	}
	if !exists {
		if _, err := client.CreateIndex(index).BodyString(reportIndexMapping).Do(ctx); err != nil {
			return nil, fmt.Errorf("failed to create index %s: %w", index, err)
		}
	}
	return &elasticReportIndex{client: client, index: index}, nil
}

func (x *elasticReportIndex) Index(ctx context.Context, reports []domain.ReportDescriptor) error {
	if len(reports) == 0 {
		return nil
	}
	bulk := x.client.Bulk().Index(x.index)
	for _, d := range reports {
		bulk.Add(elastic.NewBulkIndexRequest().
			Id(d.Path).
			Doc(reportDocument{Name: d.Name, Path: d.Path, Category: d.Category}))
	}
	res, err := bulk.Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index reports: %w", err)
	}
	if res.Errors {
		if failed := res.Failed(); len(failed) > 0 && failed[0].Error != nil {
			return fmt.Errorf("failed to index %d reports: %s", len(failed), failed[0].Error.Reason)
		}
		return fmt.Errorf("failed to index reports")
	}
	return nil
}

func (x *elasticReportIndex) Search(ctx context.Context, query string, limit int) ([]domain.ReportDescriptor, error) {
	q := elastic.NewMultiMatchQuery(query, "name", "path", "category").Type("phrase_prefix")
	res, err := x.client.Search().
		Index(x.index).
		Query(q).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search reports: %w", err)
	}

	out := make([]domain.ReportDescriptor, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc reportDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode report hit: %w", err)
		}
		out = append(out, domain.ReportDescriptor{Name: doc.Name, Path: doc.Path, Category: doc.Category})
	}
	return out, nil
}
