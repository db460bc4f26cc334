package watchlist

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/openlots/openlots-backend/internal/listings"
	pkgerrors "github.com/openlots/openlots-backend/pkg/errors"
	"github.com/openlots/openlots-backend/pkg/logger"
)

// ToggleResultDTO reports the watch state after a toggle.
type ToggleResultDTO struct {
	ListingID int64 `json:"listing_id"`
	Watching  bool  `json:"watching"`
}

// ServiceParams groups dependencies for the watchlist service.
type ServiceParams struct {
	WatchRepo      *Repository
	ListingRepo    *listings.Repository
	ListingService listings.Service
	Logger         *logger.Logger
}

// Service exposes watchlist management.
type Service interface {
	Toggle(ctx context.Context, userID, listingID int64) (ToggleResultDTO, error)
	IsWatching(ctx context.Context, userID, listingID int64) (bool, error)
	ListWatched(ctx context.Context, userID int64, cursor string, limit int) (listings.ListingsPageDTO, error)
}

type service struct {
	watchRepo      *Repository
	listingRepo    *listings.Repository
	listingService listings.Service
	logg           *logger.Logger
}

// NewService builds a watchlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WatchRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "watch repo is required")
	}
	if params.ListingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing repo is required")
	}
	if params.ListingService == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing service is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		watchRepo:      params.WatchRepo,
		listingRepo:    params.ListingRepo,
		listingService: params.ListingService,
		logg:           params.Logger,
	}, nil
}

// Toggle flips the watch state for the user and listing. Any listing can be
// watched regardless of lifecycle state.
func (s *service) Toggle(ctx context.Context, userID, listingID int64) (ToggleResultDTO, error) {
	if userID <= 0 {
		return ToggleResultDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	if listingID <= 0 {
		return ToggleResultDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	if err := s.ensureListing(ctx, listingID); err != nil {
		return ToggleResultDTO{}, err
	}

	watching, err := s.watchRepo.Exists(ctx, userID, listingID)
	if err != nil {
		return ToggleResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load watch state")
	}

	if watching {
		if err := s.watchRepo.Remove(ctx, userID, listingID); err != nil {
			return ToggleResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove watch")
		}
	} else {
		if err := s.watchRepo.Add(ctx, userID, listingID); err != nil {
			return ToggleResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add watch")
		}
	}

	ctx = s.logg.WithListingID(ctx, listingID)
	s.logg.Info(ctx, "watchlist toggled")

	return ToggleResultDTO{ListingID: listingID, Watching: !watching}, nil
}

// IsWatching reports whether the listing is on the user's watchlist.
func (s *service) IsWatching(ctx context.Context, userID, listingID int64) (bool, error) {
	if userID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	if listingID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	watching, err := s.watchRepo.Exists(ctx, userID, listingID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load watch state")
	}
	return watching, nil
}

// ListWatched returns the page of listings on the user's watchlist.
func (s *service) ListWatched(ctx context.Context, userID int64, cursor string, limit int) (listings.ListingsPageDTO, error) {
	if userID <= 0 {
		return listings.ListingsPageDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	return s.listingService.ListWatchedBy(ctx, userID, cursor, limit)
}

func (s *service) ensureListing(ctx context.Context, listingID int64) error {
	if _, err := s.listingRepo.FindByID(ctx, listingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return nil
}
