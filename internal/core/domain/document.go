package domain

import "time"

// Status is the visibility state of a stored document.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Document carries the fields every persisted entity shares. Entities embed it
// inline so the fields sit at the top level of the stored record.
type Document struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	ModifiedAt time.Time `json:"modified_at" bson:"modified_at"`
	Status     Status    `json:"status" bson:"status"`
}

// Meta returns the embedded document fields for the generic repositories.
func (d *Document) Meta() *Document { return d }

// IsActive reports whether the document is visible to status-filtered reads.
func (d *Document) IsActive() bool { return d.Status == StatusActive }

// Entity is implemented by pointers to structs embedding Document.
type Entity interface {
	Meta() *Document
}
