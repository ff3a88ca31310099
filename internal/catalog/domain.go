// Package catalog maintains the shared bibliographic records keyed by
// barcode. Records are upserted on intake and never deleted by the
// lifecycle engine.
package catalog

import "time"

// Record describes one barcode's shared metadata. Every physical copy with
// the same barcode points at the same record.
type Record struct {
	Barcode   string    `json:"barcode"`
	Title     string    `json:"title,omitempty"`
	Author    string    `json:"author,omitempty"`
	Publisher string    `json:"publisher,omitempty"`
	PubYear   int       `json:"pubYear,omitempty"`
	Binding   string    `json:"binding,omitempty"`
	ImageRef  string    `json:"imageRef,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
