package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/rentals-marketplace/internal/logger"
	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/queue"
	"github.com/iliyamo/rentals-marketplace/internal/repository"
	"github.com/iliyamo/rentals-marketplace/internal/storage"
)

// InventoryService owns the listing and rental request lifecycle.  Stock
// accounting is delegated to the stores' conditional updates; this layer
// validates input, enforces ownership, manages uploaded files and emits
// best-effort notifications once a write has succeeded.
type InventoryService struct {
	listings ListingStore
	requests RequestStore
	files    FileStore
	notifier Notifier
	maxBytes int64
	log      *slog.Logger
}

// NewInventoryService builds the service.  notifier may be nil.
func NewInventoryService(listings ListingStore, requests RequestStore, files FileStore, notifier Notifier, maxUploadBytes int64) *InventoryService {
	return &InventoryService{
		listings: listings,
		requests: requests,
		files:    files,
		notifier: notifier,
		maxBytes: maxUploadBytes,
		log:      logger.WithComponent("inventory"),
	}
}

// ListingInput is the create/update form.  Stock and PricePerHour are the
// raw submitted strings.
type ListingInput struct {
	Category     string
	Subcategory  string
	Brand        string
	Model        string
	Stock        string
	PricePerHour string
	Images       []Upload
}

type listingFields struct {
	category    string
	subcategory string
	brand       string
	model       string
	stock       int
	priceCents  int64
}

func (s *InventoryService) validateListing(in ListingInput) (listingFields, error) {
	var (
		f   listingFields
		err error
	)
	raw, err := required("category", in.Category)
	if err != nil {
		return f, err
	}
	var ok bool
	if f.category, ok = model.NormalizeCategory(raw); !ok {
		return f, invalid("category", "must be one of "+strings.Join(model.Categories, ", "))
	}
	f.subcategory = strings.TrimSpace(in.Subcategory)
	if len(f.subcategory) > maxTextLen {
		return f, invalid("subcategory", fmt.Sprintf("must be at most %d characters", maxTextLen))
	}
	if f.brand, err = required("brand", in.Brand); err != nil {
		return f, err
	}
	if f.model, err = required("model", in.Model); err != nil {
		return f, err
	}
	if f.stock, err = positiveInt("stock", in.Stock); err != nil {
		return f, err
	}
	if f.priceCents, err = parsePriceCents("price_per_hour", in.PricePerHour); err != nil {
		return f, err
	}
	if len(in.Images) > maxImages {
		return f, invalid("images", fmt.Sprintf("at most %d images are allowed", maxImages))
	}
	for i := range in.Images {
		if err := checkUpload("images", &in.Images[i], s.maxBytes); err != nil {
			return f, err
		}
	}
	return f, nil
}

// CreateListing validates the form, stores the images and persists a new
// Pending listing owned by p.  Stored images are removed again if the
// listing cannot be written.
func (s *InventoryService) CreateListing(ctx context.Context, p *model.Principal, in ListingInput) (model.Listing, error) {
	if p == nil {
		return model.Listing{}, ErrUnauthorized
	}
	f, err := s.validateListing(in)
	if err != nil {
		return model.Listing{}, err
	}
	images, err := s.saveImages(ctx, in.Images)
	if err != nil {
		return model.Listing{}, err
	}

	l := model.Listing{
		OwnerID:           p.RenterID,
		OwnerName:         p.EntityName,
		Category:          f.category,
		Subcategory:       f.subcategory,
		Brand:             f.brand,
		Model:             f.model,
		PricePerHourCents: f.priceCents,
		Stock:             f.stock,
		DeliveryStatus:    model.ListingPending,
		Images:            images,
	}
	if err := s.listings.Create(ctx, &l); err != nil {
		s.deleteFiles(ctx, images)
		return model.Listing{}, fmt.Errorf("create listing: %w", err)
	}
	s.notify(queue.StatusChangedEvent{ListingID: l.ID, Model: l.Model, Status: l.DeliveryStatus})
	return l, nil
}

// UpdateListing replaces the mutable fields of an owned listing.  New
// images replace the existing set; without new images the current ones
// are kept.  Lowering stock below the units currently rented fails with
// ErrConflict.
func (s *InventoryService) UpdateListing(ctx context.Context, p *model.Principal, id uint64, in ListingInput) (model.Listing, error) {
	cur, err := s.ownedListing(ctx, p, id)
	if err != nil {
		return model.Listing{}, err
	}
	f, err := s.validateListing(in)
	if err != nil {
		return model.Listing{}, err
	}
	if f.stock < cur.Rented {
		return model.Listing{}, conflict(fmt.Sprintf("stock cannot be lower than the %d units currently rented", cur.Rented))
	}

	images := cur.Images
	var added []string
	if len(in.Images) > 0 {
		if added, err = s.saveImages(ctx, in.Images); err != nil {
			return model.Listing{}, err
		}
		images = added
	}

	l := model.Listing{
		ID:                cur.ID,
		OwnerID:           p.RenterID,
		Category:          f.category,
		Subcategory:       f.subcategory,
		Brand:             f.brand,
		Model:             f.model,
		PricePerHourCents: f.priceCents,
		Stock:             f.stock,
		Images:            images,
	}
	if err := s.listings.Update(ctx, &l); err != nil {
		s.deleteFiles(ctx, added)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return model.Listing{}, ErrNotFound
		case errors.Is(err, repository.ErrForbidden):
			return model.Listing{}, ErrForbidden
		case errors.Is(err, repository.ErrStaleState):
			return model.Listing{}, conflict("stock cannot be lower than the units currently rented")
		}
		return model.Listing{}, fmt.Errorf("update listing: %w", err)
	}
	if added != nil {
		s.deleteFiles(ctx, cur.Images)
	}
	if l.DeliveryStatus != cur.DeliveryStatus {
		s.notify(queue.StatusChangedEvent{ListingID: l.ID, Model: l.Model, Status: l.DeliveryStatus})
	}
	return l, nil
}

// GetListing returns one listing to its owner.
func (s *InventoryService) GetListing(ctx context.Context, p *model.Principal, id uint64) (model.Listing, error) {
	return s.ownedListing(ctx, p, id)
}

// ListByOwner returns all of p's listings in every status, oldest first.
func (s *InventoryService) ListByOwner(ctx context.Context, p *model.Principal) ([]model.Listing, error) {
	if p == nil {
		return nil, ErrUnauthorized
	}
	items, err := s.listings.ListByOwner(ctx, p.RenterID)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return items, nil
}

// ListByCategory is the public browse.  category is matched
// case-insensitively against the known set (singular forms accepted);
// "all" or empty lists every category.  Only Pending listings with at
// least one available unit are returned.
func (s *InventoryService) ListByCategory(ctx context.Context, category string) ([]model.Listing, error) {
	category = strings.TrimSpace(category)
	filter := ""
	if category != "" && !strings.EqualFold(category, "all") {
		c, ok := model.NormalizeCategory(category)
		if !ok {
			return nil, invalid("category", "must be all or one of "+strings.Join(model.Categories, ", "))
		}
		filter = c
	}
	items, err := s.listings.ListAvailable(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return items, nil
}

// InventorySummary aggregates p's stock and rented units per category.
// Every known category is present, with zeros when p lists nothing in it.
func (s *InventoryService) InventorySummary(ctx context.Context, p *model.Principal) (model.InventorySummary, error) {
	if p == nil {
		return model.InventorySummary{}, ErrUnauthorized
	}
	totals, err := s.listings.CategoryTotals(ctx, p.RenterID)
	if err != nil {
		return model.InventorySummary{}, fmt.Errorf("summarize listings: %w", err)
	}
	byCategory := make(map[string]model.CategorySummary, len(totals))
	for _, t := range totals {
		byCategory[t.Category] = t
	}

	var sum model.InventorySummary
	for _, c := range model.Categories {
		cs := byCategory[c]
		cs.Category = c
		cs.AvailableItems = max(cs.TotalItems-cs.RentedItems, 0)
		cs.UtilizationPercent = percent(cs.RentedItems, cs.TotalItems)
		sum.TotalItems += cs.TotalItems
		sum.RentedItems += cs.RentedItems
		sum.Categories = append(sum.Categories, cs)
	}
	sum.UtilizationPercent = percent(sum.RentedItems, sum.TotalItems)
	return sum, nil
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (part*100 + total/2) / total
}

// ownedListing loads a listing and checks p owns it.
func (s *InventoryService) ownedListing(ctx context.Context, p *model.Principal, id uint64) (model.Listing, error) {
	if p == nil {
		return model.Listing{}, ErrUnauthorized
	}
	l, err := s.listings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Listing{}, ErrNotFound
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("load listing: %w", err)
	}
	if l.OwnerID != p.RenterID {
		return model.Listing{}, ErrForbidden
	}
	return l, nil
}

func (s *InventoryService) saveImages(ctx context.Context, uploads []Upload) ([]string, error) {
	paths := make([]string, 0, len(uploads))
	for _, u := range uploads {
		rel, err := s.files.Save(ctx, storage.KindImage, u.Content)
		if err != nil {
			s.deleteFiles(ctx, paths)
			return nil, storageError("images", err)
		}
		paths = append(paths, rel)
	}
	return paths, nil
}

func (s *InventoryService) deleteFiles(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.files.Delete(context.WithoutCancel(ctx), p); err != nil {
			s.log.Warn("failed to delete stored file", "path", p, "error", err)
		}
	}
}

func (s *InventoryService) notify(ev queue.StatusChangedEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ev)
}
