package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/openlots/openlots-backend/pkg/clock"
	"github.com/openlots/openlots-backend/pkg/db/models"
	"github.com/openlots/openlots-backend/pkg/enums"
	pkgerrors "github.com/openlots/openlots-backend/pkg/errors"
	"github.com/openlots/openlots-backend/pkg/logger"
)

const maxTitleLen = 120

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the listing service.
type ServiceParams struct {
	Repo   *Repository
	Tx     TxRunner
	Clock  clock.Clock
	Logger *logger.Logger
}

// Service exposes business rules for the listing lifecycle.
type Service interface {
	Create(ctx context.Context, ownerID int64, input CreateListingInput) (ListingDTO, error)
	GetByID(ctx context.Context, id int64) (ListingDTO, error)
	ListActive(ctx context.Context, category string, cursor string, limit int) (ListingsPageDTO, error)
	ListOwned(ctx context.Context, ownerID int64, cursor string, limit int) (ListingsPageDTO, error)
	ListWatchedBy(ctx context.Context, userID int64, cursor string, limit int) (ListingsPageDTO, error)
	Update(ctx context.Context, actorID, listingID int64, input UpdateListingInput) (ListingDTO, error)
	Close(ctx context.Context, actorID, listingID int64) (ListingDTO, error)
	Delete(ctx context.Context, actorID, listingID int64) error
}

type service struct {
	repo  *Repository
	tx    TxRunner
	clock clock.Clock
	logg  *logger.Logger
}

// NewService builds a listing service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.Clock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clock is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:  params.Repo,
		tx:    params.Tx,
		clock: params.Clock,
		logg:  params.Logger,
	}, nil
}

// Create validates and persists a new listing for the owner.
func (s *service) Create(ctx context.Context, ownerID int64, input CreateListingInput) (ListingDTO, error) {
	if ownerID <= 0 {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner is required")
	}

	now := s.clock.Now()
	normalized, err := normalizeInput(input, now)
	if err != nil {
		return ListingDTO{}, err
	}

	listing := &models.Listing{
		OwnerID:       ownerID,
		Title:         normalized.Title,
		Description:   normalized.Description,
		Category:      normalized.Category,
		Condition:     normalized.Condition,
		ImageURL:      normalized.ImageURL,
		StartingPrice: normalized.StartingPrice,
		StartDatetime: normalized.StartDatetime,
		EndDatetime:   normalized.EndDatetime,
	}

	if _, err := s.repo.Create(ctx, listing); err != nil {
		return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}

	ctx = s.logg.WithListingID(ctx, listing.ID)
	s.logg.Info(ctx, "listing created")

	return s.GetByID(ctx, listing.ID)
}

// GetByID returns the listing read model with derived state.
func (s *service) GetByID(ctx context.Context, id int64) (ListingDTO, error) {
	if id <= 0 {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	record, err := s.repo.GetSummaryByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}

	return record.ToDTO(s.clock.Now()), nil
}

// ListActive returns the page of listings currently open for bidding.
func (s *service) ListActive(ctx context.Context, category string, cursor string, limit int) (ListingsPageDTO, error) {
	if category != "" {
		if _, err := enums.ParseListingCategory(category); err != nil {
			return ListingsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
	}

	now := s.clock.Now()
	filters := Filters{ActiveOnly: true, Now: now, Category: category}
	return s.page(ctx, filters, cursor, limit, now)
}

// ListOwned returns every listing the owner has posted regardless of state.
func (s *service) ListOwned(ctx context.Context, ownerID int64, cursor string, limit int) (ListingsPageDTO, error) {
	if ownerID <= 0 {
		return ListingsPageDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner is required")
	}

	filters := Filters{OwnerID: ownerID}
	return s.page(ctx, filters, cursor, limit, s.clock.Now())
}

// ListWatchedBy returns the page of listings on the user's watchlist.
func (s *service) ListWatchedBy(ctx context.Context, userID int64, cursor string, limit int) (ListingsPageDTO, error) {
	if userID <= 0 {
		return ListingsPageDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}

	filters := Filters{WatchedBy: userID}
	return s.page(ctx, filters, cursor, limit, s.clock.Now())
}

// Update applies seller edits. Price and window changes are rejected once
// the listing has bids; text fields stay editable until the listing closes.
func (s *service) Update(ctx context.Context, actorID, listingID int64, input UpdateListingInput) (ListingDTO, error) {
	if actorID <= 0 {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	if listingID <= 0 {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	record, err := s.repo.GetSummaryByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}

	if record.OwnerID != actorID {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can edit a listing")
	}
	if record.Closed {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is closed")
	}
	if record.BidCount > 0 && input.TouchesBidding() {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "price and window cannot change once bids exist").
			WithDetails(map[string]any{"bid_count": record.BidCount})
	}

	merged := CreateListingInput{
		Title:         record.Title,
		Description:   record.Description,
		Category:      enums.ListingCategory(record.Category),
		Condition:     enums.ListingCondition(record.Condition),
		ImageURL:      nullStringPtr(record.ImageURL),
		StartingPrice: record.StartingPrice,
		StartDatetime: record.StartDatetime,
		EndDatetime:   record.EndDatetime,
	}
	if input.Title != nil {
		merged.Title = *input.Title
	}
	if input.Description != nil {
		merged.Description = *input.Description
	}
	if input.Category != nil {
		merged.Category = *input.Category
	}
	if input.Condition != nil {
		merged.Condition = *input.Condition
	}
	if input.ImageURL != nil {
		merged.ImageURL = input.ImageURL
	}
	if input.StartingPrice != nil {
		merged.StartingPrice = *input.StartingPrice
	}
	if input.StartDatetime != nil {
		merged.StartDatetime = *input.StartDatetime
	}
	if input.EndDatetime != nil {
		merged.EndDatetime = *input.EndDatetime
	}

	normalized, err := normalizeInput(merged, s.clock.Now())
	if err != nil {
		return ListingDTO{}, err
	}

	fields := map[string]any{
		"title":          normalized.Title,
		"description":    normalized.Description,
		"category":       normalized.Category,
		"condition":      normalized.Condition,
		"image_url":      normalized.ImageURL,
		"starting_price": normalized.StartingPrice,
		"start_datetime": normalized.StartDatetime,
		"end_datetime":   normalized.EndDatetime,
	}
	if err := s.repo.UpdateFields(ctx, listingID, fields); err != nil {
		return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
	}

	ctx = s.logg.WithListingID(ctx, listingID)
	s.logg.Info(ctx, "listing updated")

	return s.GetByID(ctx, listingID)
}

// Close transitions an open listing to closed. Only the owner may close,
// and only while the listing is open.
func (s *service) Close(ctx context.Context, actorID, listingID int64) (ListingDTO, error) {
	if actorID <= 0 {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	if listingID <= 0 {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}

	if listing.OwnerID != actorID {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can close a listing")
	}

	state := DeriveState(listing, s.clock.Now())
	if state.Status != enums.ListingStatusOpen {
		return ListingDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not open").
			WithDetails(map[string]any{"status": state.Status.String()})
	}

	if err := s.repo.SetClosed(ctx, listingID, true); err != nil {
		return ListingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close listing")
	}

	ctx = s.logg.WithListingID(ctx, listingID)
	s.logg.Info(ctx, "listing closed")

	return s.GetByID(ctx, listingID)
}

// Delete removes the listing and everything hanging off it. The listing row
// is locked first so the delete serializes against concurrent bids.
func (s *service) Delete(ctx context.Context, actorID, listingID int64) error {
	if actorID <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	if listingID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.FindByIDForUpdate(ctx, listingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock listing")
		}
		if locked.OwnerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can delete a listing")
		}

		if err := repo.DeleteCascade(ctx, listingID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete listing")
		}
		return nil
	})
	if err != nil {
		return err
	}

	ctx = s.logg.WithListingID(ctx, listingID)
	s.logg.Info(ctx, "listing deleted")
	return nil
}

func (s *service) page(ctx context.Context, filters Filters, cursor string, limit int, now time.Time) (ListingsPageDTO, error) {
	records, nextCursor, err := s.repo.ListSummaries(ctx, filters, cursor, limit)
	if err != nil {
		return ListingsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}

	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return ListingsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count listings")
	}
	firstCursor, err := s.repo.BoundaryCursor(ctx, filters, true)
	if err != nil {
		return ListingsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing boundary")
	}
	lastCursor, err := s.repo.BoundaryCursor(ctx, filters, false)
	if err != nil {
		return ListingsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing boundary")
	}

	items := make([]ListingDTO, 0, len(records))
	for _, record := range records {
		items = append(items, record.ToDTO(now))
	}

	return ListingsPageDTO{
		Items: items,
		Pagination: ListingPagination{
			Page:    1,
			Total:   int(total),
			Current: strings.TrimSpace(cursor),
			First:   firstCursor,
			Last:    lastCursor,
			Prev:    strings.TrimSpace(cursor),
			Next:    nextCursor,
		},
	}, nil
}

func normalizeInput(input CreateListingInput, now time.Time) (CreateListingInput, error) {
	details := map[string]string{}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)

	if input.Title == "" {
		details["title"] = "title is required"
	} else if len(input.Title) > maxTitleLen {
		details["title"] = "title is too long"
	}
	if input.Description == "" {
		details["description"] = "description is required"
	}
	// Category is optional; an empty value means the listing is uncategorized.
	if input.Category != "" && !input.Category.IsValid() {
		details["category"] = "unknown category"
	}
	if !input.Condition.IsValid() {
		details["condition"] = "unknown condition"
	}
	if input.StartingPrice.IsNegative() {
		details["starting_price"] = "starting price cannot be negative"
	}

	// Listings default to going live at the top of the next hour.
	if input.StartDatetime.IsZero() {
		input.StartDatetime = now.Add(time.Hour).Truncate(time.Hour)
	}
	// A zero-length window (start == end) is valid; it just never goes active.
	if input.EndDatetime.IsZero() {
		details["end_datetime"] = "end datetime is required"
	} else if input.EndDatetime.Before(input.StartDatetime) {
		details["end_datetime"] = "end datetime cannot be before start datetime"
	}

	if len(details) > 0 {
		return CreateListingInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing").WithDetails(details)
	}

	input.StartingPrice = input.StartingPrice.Round(2)
	if input.ImageURL != nil && strings.TrimSpace(*input.ImageURL) == "" {
		input.ImageURL = nil
	}

	return input, nil
}
