// Package lots manages ad-hoc item groupings. A lot has no row of its own;
// it exists as a shared lot number across items, but membership invariants
// are enforced here in one place.
package lots

// History channels written by the lot manager.
const (
	ChannelCreation = "LOT_CREATION"
	ChannelDeletion = "LOT_DELETION"
)

// Member is the slice of an item the lot manager cares about.
type Member struct {
	ItemID    int64
	Status    string
	Location  string
	LotNumber int64
}

// RemovalResult reports the outcome of removing a single member.
type RemovalResult struct {
	ItemID    int64 `json:"itemId"`
	LotNumber int64 `json:"lotNumber"`
	Remaining int   `json:"remaining"`
	Empty     bool  `json:"empty"`
}
