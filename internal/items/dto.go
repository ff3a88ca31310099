package items

import "time"

type itemResponse struct {
	ID        int64      `json:"id"`
	Barcode   string     `json:"barcode,omitempty"`
	Grade     string     `json:"grade,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Cost      int64      `json:"cost"`
	Status    Status     `json:"status"`
	Location  string     `json:"location,omitempty"`
	LotNumber int64      `json:"lotNumber,omitempty"`
	IntakeAt  time.Time  `json:"intakeAt"`
	ListedAt  *time.Time `json:"listedAt,omitempty"`
	SoldAt    *time.Time `json:"soldAt,omitempty"`
	SoldYear  int        `json:"soldYear,omitempty"`
	SoldMonth int        `json:"soldMonth,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toItemResponse(it Item) itemResponse {
	return itemResponse{
		ID:        it.ID,
		Barcode:   it.Barcode,
		Grade:     it.Grade,
		Notes:     it.Notes,
		Cost:      it.CostCents,
		Status:    it.Status,
		Location:  it.Location,
		LotNumber: it.LotNumber,
		IntakeAt:  it.IntakeAt,
		ListedAt:  it.ListedAt,
		SoldAt:    it.SoldAt,
		SoldYear:  it.SoldYear,
		SoldMonth: it.SoldMonth,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}

func toItemResponses(list []Item) []itemResponse {
	out := make([]itemResponse, 0, len(list))
	for _, it := range list {
		out = append(out, toItemResponse(it))
	}
	return out
}

type historyResponse struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"eventId"`
	FromStatus *Status   `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	Channel    string    `json:"channel"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func toHistoryResponses(list []StatusHistory) []historyResponse {
	out := make([]historyResponse, 0, len(list))
	for _, h := range list {
		out = append(out, historyResponse{
			ID:         h.ID,
			EventID:    h.EventID.String(),
			FromStatus: h.FromStatus,
			ToStatus:   h.ToStatus,
			Channel:    h.Channel,
			Note:       h.Note,
			OccurredAt: h.OccurredAt,
		})
	}
	return out
}

type listingResponse struct {
	ID         int64         `json:"id"`
	ItemID     int64         `json:"itemId"`
	Channel    string        `json:"channel"`
	ExternalID string        `json:"externalId,omitempty"`
	Price      int64         `json:"price"`
	Status     ListingStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func toListingResponse(l Listing) listingResponse {
	return listingResponse{
		ID:         l.ID,
		ItemID:     l.ItemID,
		Channel:    l.Channel,
		ExternalID: l.ExternalID,
		Price:      l.PriceCents,
		Status:     l.Status,
		CreatedAt:  l.CreatedAt,
	}
}

func toListingResponses(list []Listing) []listingResponse {
	out := make([]listingResponse, 0, len(list))
	for _, l := range list {
		out = append(out, toListingResponse(l))
	}
	return out
}

type intakeRequest struct {
	Barcode   string   `json:"barcode" validate:"required,numeric,min=8,max=14"`
	Cost      int64    `json:"cost" validate:"min=0"`
	Grade     string   `json:"grade" validate:"max=10"`
	Notes     string   `json:"notes" validate:"max=2000"`
	Title     string   `json:"title" validate:"max=500"`
	Author    string   `json:"author" validate:"max=200"`
	Publisher string   `json:"publisher" validate:"max=200"`
	PubYear   int      `json:"pubYear" validate:"omitempty,min=0,max=3000"`
	Binding   string   `json:"binding" validate:"max=50"`
	ImageRef  string   `json:"imageRef" validate:"max=500"`
	Tags      []string `json:"tags" validate:"max=20,dive,max=50"`
}

type putawayRequest struct {
	Location string `json:"location" validate:"required,min=1,max=20"`
}

type listRequest struct {
	Channel    string `json:"channel" validate:"required,max=50"`
	ExternalID string `json:"externalId" validate:"max=100"`
	Price      int64  `json:"price" validate:"required,min=1"`
}

type changeStatusRequest struct {
	ToStatus string `json:"toStatus" validate:"required"`
	Channel  string `json:"channel" validate:"max=50"`
	Note     string `json:"note" validate:"max=2000"`
	Force    bool   `json:"force"`
}

type patchRequest struct {
	Location *string `json:"location"`
	Status   *string `json:"status"`
	Grade    *string `json:"grade"`
	Notes    *string `json:"notes"`
	Channel  string  `json:"channel" validate:"max=50"`
}

type bulkLocationRequest struct {
	ItemIDs  []int64 `json:"itemIds" validate:"required,min=1,dive,min=1"`
	Location string  `json:"location" validate:"required,min=1,max=20"`
}

type bulkDatesRequest struct {
	ItemIDs  []int64 `json:"itemIds" validate:"required,min=1,dive,min=1"`
	DateType string  `json:"dateType" validate:"required,oneof=listed sold"`
	Date     string  `json:"date" validate:"required,datetime=2006-01-02"`
}
