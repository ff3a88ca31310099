// Package items implements the item lifecycle engine: the status state
// machine, audit history, listings and the lot-wide cascade semantics.
package items

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the lifecycle states of a physical item.
type Status string

const (
	// StatusIntake is the initial state of every item.
	StatusIntake Status = "INTAKE"
	// StatusStored means the item has a shelf location.
	StatusStored Status = "STORED"
	// StatusListed means the item carries an active sales listing.
	StatusListed Status = "LISTED"
	// StatusReserved means the item is held for a pending sale.
	StatusReserved Status = "RESERVED"
	// StatusSold means the sale completed.
	StatusSold Status = "SOLD"
	// StatusReturned means a sold item came back.
	StatusReturned Status = "RETURNED"
	// StatusDiscarded means the item left inventory without a sale.
	StatusDiscarded Status = "DISCARDED"
)

// Statuses lists every valid status value.
var Statuses = []Status{
	StatusIntake, StatusStored, StatusListed, StatusReserved,
	StatusSold, StatusReturned, StatusDiscarded,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// transitions is the allowed-pair table. Administrative overrides (Force)
// may step outside it; everything else must follow these edges.
var transitions = map[Status][]Status{
	StatusIntake:    {StatusStored, StatusDiscarded},
	StatusStored:    {StatusListed, StatusReserved, StatusDiscarded},
	StatusListed:    {StatusReserved, StatusSold, StatusStored},
	StatusReserved:  {StatusSold, StatusStored, StatusListed},
	StatusSold:      {StatusReturned},
	StatusReturned:  {StatusStored, StatusDiscarded},
	StatusDiscarded: {},
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Channel tags recorded on history rows. Free-text provenance; these are
// the ones the engine itself writes.
const (
	ChannelIntake      = "INTAKE"
	ChannelPutaway     = "PUTAWAY"
	ChannelManual      = "MANUAL"
	ChannelAdmin       = "ADMIN"
	ChannelBulkPutaway = "BULK_PUTAWAY"
	ChannelBulkDates   = "BULK_DATES"
)

// MaxLocationLen caps shelf location strings.
const MaxLocationLen = 20

var barcodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)

// ValidBarcode reports whether s is an 8-14 digit numeric barcode.
func ValidBarcode(s string) bool {
	return barcodePattern.MatchString(s)
}

// Item is the unit the lifecycle engine operates on. Zero LotNumber means
// the item belongs to no lot.
type Item struct {
	ID        int64
	Barcode   string
	Grade     string
	Notes     string
	CostCents int64
	Status    Status
	Location  string
	LotNumber int64
	IntakeAt  time.Time
	ListedAt  *time.Time
	SoldAt    *time.Time
	SoldYear  int
	SoldMonth int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusHistory is an immutable audit log entry. FromStatus is nil for the
// first transition and for lot-membership annotations where the status did
// not change.
type StatusHistory struct {
	ID         int64
	ItemID     int64
	EventID    uuid.UUID
	FromStatus *Status
	ToStatus   Status
	Channel    string
	Note       string
	OccurredAt time.Time
}

// ListingStatus enumerates listing lifecycle states.
type ListingStatus string

const (
	ListingActive  ListingStatus = "ACTIVE"
	ListingSold    ListingStatus = "SOLD"
	ListingExpired ListingStatus = "EXPIRED"
	ListingRemoved ListingStatus = "REMOVED"
)

// Listing is a sales listing for one item. An item may accumulate several
// over time; the engine keeps at most one ACTIVE.
type Listing struct {
	ID         int64
	ItemID     int64
	Channel    string
	ExternalID string
	PriceCents int64
	Status     ListingStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DateType selects which date a bulk date update sets.
type DateType string

const (
	// DateListed stamps listed_at and moves items to LISTED.
	DateListed DateType = "listed"
	// DateSold stamps sold_at, derives the sale bucket and moves items to SOLD.
	DateSold DateType = "sold"
)

// Valid reports whether d is a known date type.
func (d DateType) Valid() bool {
	return d == DateListed || d == DateSold
}

// IntakeInput creates a new item and upserts its catalog record.
type IntakeInput struct {
	Barcode   string
	CostCents int64
	Grade     string
	Notes     string

	// Catalog fields shared by every copy of the barcode.
	Title     string
	Author    string
	Publisher string
	PubYear   int
	Binding   string
	ImageRef  string
	Tags      []string
}

// ListInput creates an ACTIVE listing and moves the item to LISTED.
type ListInput struct {
	Channel    string
	ExternalID string
	PriceCents int64
}

// ChangeStatusInput drives the generic status change. Force permits edges
// outside the transition table and defaults the channel to ADMIN.
type ChangeStatusInput struct {
	To      Status
	Channel string
	Note    string
	Force   bool
}

// PatchInput updates location/status/grade/notes. Nil fields are untouched.
type PatchInput struct {
	Location *string
	Status   *Status
	Grade    *string
	Notes    *string
	Channel  string
}

// ListFilter narrows item listings.
type ListFilter struct {
	Status         Status
	LotNumber      int64
	Barcode        string
	LocationPrefix string
	Page           int
	PerPage        int
}
