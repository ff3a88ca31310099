package catalog

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shelfline/shelfline/internal/items"
	"github.com/shelfline/shelfline/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Upsert(ctx context.Context, rec Record) error
	Get(ctx context.Context, barcode string) (Record, error)
}

// Service maintains catalog records. It implements items.CatalogPort.
type Service struct {
	repo  RepositoryPort
	title cases.Caser
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, title: cases.Title(language.English, cases.NoLower)}
}

// Upsert normalises and stores the catalog fields captured at intake.
func (s *Service) Upsert(ctx context.Context, info items.CatalogInfo) error {
	if info.Barcode == "" {
		return fmt.Errorf("catalog: barcode required: %w", shared.ErrValidation)
	}
	rec := Record{
		Barcode:   info.Barcode,
		Title:     s.normalise(info.Title),
		Author:    s.normalise(info.Author),
		Publisher: strings.TrimSpace(info.Publisher),
		PubYear:   info.PubYear,
		Binding:   strings.TrimSpace(info.Binding),
		ImageRef:  strings.TrimSpace(info.ImageRef),
		Tags:      normaliseTags(info.Tags),
	}
	return s.repo.Upsert(ctx, rec)
}

// Get loads one record.
func (s *Service) Get(ctx context.Context, barcode string) (Record, error) {
	if !items.ValidBarcode(barcode) {
		return Record{}, fmt.Errorf("catalog: barcode must be 8-14 digits: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, barcode)
}

// normalise trims and title-cases fully lower-cased input; mixed-case input
// is assumed intentional and kept as typed.
func (s *Service) normalise(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if value == strings.ToLower(value) {
		return s.title.String(value)
	}
	return value
}

func normaliseTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
