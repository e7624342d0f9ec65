package pivot

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

// MetricIDPrefix starts every generated metric name.
const MetricIDPrefix = "calc_"

// MetricDraft is the metric being composed in the builder.
type MetricDraft struct {
	Label     string    `json:"label" validate:"required"`
	Field1    string    `json:"field1" validate:"required"`
	Field2    string    `json:"field2" validate:"required"`
	Operation Operation `json:"operation"`
}

var (
	draftValidatorOnce sync.Once
	draftValidator     *validator.Validate
)

func validate() *validator.Validate {
	draftValidatorOnce.Do(func() {
		draftValidator = validator.New()
	})
	return draftValidator
}

// trimmed drops surrounding blanks from label and fields.
func (d MetricDraft) trimmed() MetricDraft {
	d.Label = strings.TrimSpace(d.Label)
	d.Field1 = strings.TrimSpace(d.Field1)
	d.Field2 = strings.TrimSpace(d.Field2)
	return d
}

// CanCommit reports whether label and both fields are filled in with more
// than blanks.
func (d MetricDraft) CanCommit() bool {
	return validate().Struct(d.trimmed()) == nil
}

// Metric converts the draft into a metric with a new process-unique name.
func (d MetricDraft) Metric() CalculatedMetric {
	d = d.trimmed()
	op := d.Operation
	if !op.Valid() {
		op = OpSubtract
	}
	return CalculatedMetric{
		Name:      MetricIDPrefix + ulid.Make().String(),
		Label:     d.Label,
		Operation: op,
		Field1:    d.Field1,
		Field2:    d.Field2,
		Decimals:  2,
	}
}

// MetricBuilder holds a draft and commits it into a configuration.
// It is safe for concurrent use.
type MetricBuilder struct {
	mu    sync.Mutex
	draft MetricDraft
}

// NewMetricBuilder starts with an empty draft using subtract.
func NewMetricBuilder() *MetricBuilder {
	return &MetricBuilder{draft: MetricDraft{Operation: OpSubtract}}
}

// Draft returns the current draft.
func (b *MetricBuilder) Draft() MetricDraft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft
}

// SetDraft replaces the draft.
func (b *MetricBuilder) SetDraft(d MetricDraft) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft = d
}

// Commit appends the draft to cfg when it is complete and resets the draft.
// An incomplete draft leaves cfg untouched and reports false.
func (b *MetricBuilder) Commit(cfg GridConfig) (GridConfig, CalculatedMetric, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.draft.CanCommit() {
		return cfg, CalculatedMetric{}, false
	}
	m := b.draft.Metric()
	b.draft = MetricDraft{Operation: OpSubtract}
	return cfg.WithMetric(m), m, true
}
