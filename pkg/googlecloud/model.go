package googlecloud

import (
	"time"
)

// KindReport is the entity kind of saved reports.
const KindReport = "Report"

// ReportEntity is a saved report keyed by its slash-separated path.
type ReportEntity struct {
	Path     string `datastore:"-" json:"path"` // Key Name
	Name     string `datastore:"name" json:"name"`
	Category string `datastore:"category" json:"category"`
	// Config is the JSON grid configuration. It is not indexed so it may exceed 1500 bytes.
	Config    string    `datastore:"config,noindex" json:"config"`
	Version   int64     `datastore:"version" json:"version"`
	CreatedAt time.Time `datastore:"created_at" json:"created_at"`
	UpdatedAt time.Time `datastore:"updated_at" json:"updated_at"`
}

func (r *ReportEntity) GetVersion() int64    { return r.Version }
func (r *ReportEntity) SetVersion(ver int64) { r.Version = ver }
