package bids

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openlots/openlots-backend/internal/listings"
	"github.com/openlots/openlots-backend/pkg/clock"
	"github.com/openlots/openlots-backend/pkg/db/models"
	pkgerrors "github.com/openlots/openlots-backend/pkg/errors"
	"github.com/openlots/openlots-backend/pkg/logger"
	"github.com/openlots/openlots-backend/pkg/metrics"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the bid service.
type ServiceParams struct {
	BidRepo     *Repository
	ListingRepo *listings.Repository
	Tx          TxRunner
	Clock       clock.Clock
	Logger      *logger.Logger
	Metrics     *metrics.BidMetrics
}

// Service exposes bid acceptance and history reads.
type Service interface {
	Place(ctx context.Context, bidderID, listingID int64, amount decimal.Decimal) (BidDTO, error)
	ListForListing(ctx context.Context, listingID int64, cursor string, limit int) (BidsPageDTO, error)
	Winner(ctx context.Context, listingID int64) (*BidDTO, error)
}

type service struct {
	bidRepo     *Repository
	listingRepo *listings.Repository
	tx          TxRunner
	clock       clock.Clock
	logg        *logger.Logger
	metrics     *metrics.BidMetrics
}

// NewService builds a bid service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.BidRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid repo is required")
	}
	if params.ListingRepo == nil {
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
		bidRepo:     params.BidRepo,
		listingRepo: params.ListingRepo,
		tx:          params.Tx,
		clock:       params.Clock,
		logg:        params.Logger,
		metrics:     params.Metrics,
	}, nil
}

// Place validates and persists a bid. The whole acceptance decision runs in
// one transaction under a listing row lock so concurrent bids on the same
// listing serialize; rejected bids are never persisted.
func (s *service) Place(ctx context.Context, bidderID, listingID int64, amount decimal.Decimal) (BidDTO, error) {
	if bidderID <= 0 {
		return BidDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "bidder is required")
	}
	if listingID <= 0 {
		return BidDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	if !amount.IsPositive() {
		s.reject(ReasonAmountTooLow)
		return BidDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive").
			WithDetails(map[string]any{"reason": ReasonAmountTooLow})
	}
	amount = amount.Round(2)

	// Cheap pre-checks outside the transaction. Both are re-validated under
	// the row lock; this keeps obviously doomed requests off the write path.
	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BidDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return BidDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.OwnerID == bidderID {
		s.reject(ReasonSelfBid)
		return BidDTO{}, selfBidError()
	}

	started := time.Now()
	var created *models.Bid

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listingRepo := s.listingRepo.WithTx(tx)
		bidRepo := s.bidRepo.WithTx(tx)

		locked, err := listingRepo.FindByIDForUpdate(ctx, listingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock listing")
		}

		state := listings.DeriveState(locked, s.clock.Now())
		if !state.Active {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not open for bidding").
				WithDetails(map[string]any{
					"reason": ReasonListingNotOpen,
					"status": state.Status.String(),
				})
		}
		if locked.OwnerID == bidderID {
			return selfBidError()
		}

		maxBid, err := bidRepo.MaxAmount(ctx, listingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current bid")
		}

		minNext := listings.MinNextBid(locked.StartingPrice, maxBid)
		if amount.LessThan(minNext) {
			return pkgerrors.New(pkgerrors.CodeValidation, "bid amount is too low").
				WithDetails(map[string]any{
					"reason":       ReasonAmountTooLow,
					"current_bid":  listings.CurrentBid(locked.StartingPrice, maxBid),
					"min_next_bid": minNext,
				})
		}

		bid := &models.Bid{
			ListingID: listingID,
			BidderID:  bidderID,
			Amount:    amount,
		}
		if _, err := bidRepo.Create(ctx, bid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid")
		}
		created = bid
		return nil
	})

	elapsed := time.Since(started)
	if txErr != nil {
		s.metrics.ObserveDuration("rejected", elapsed)
		if typed := pkgerrors.As(txErr); typed != nil {
			s.rejectFromDetails(typed)
		}
		return BidDTO{}, txErr
	}

	s.metrics.ObserveDuration("accepted", elapsed)
	s.metrics.IncAccepted()

	ctx = s.logg.WithFields(ctx, map[string]any{
		"listing_id": listingID,
		"bid_id":     created.ID,
	})
	s.logg.Info(ctx, "bid accepted")

	return BidDTO{
		ID:        created.ID,
		ListingID: created.ListingID,
		BidderID:  created.BidderID,
		Amount:    created.Amount,
		CreatedAt: created.CreatedAt,
	}, nil
}

// ListForListing returns one page of bids for the listing, newest first.
func (s *service) ListForListing(ctx context.Context, listingID int64, cursor string, limit int) (BidsPageDTO, error) {
	if listingID <= 0 {
		return BidsPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	if _, err := s.listingRepo.FindByID(ctx, listingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BidsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
		}
		return BidsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}

	records, nextCursor, err := s.bidRepo.ListByListing(ctx, listingID, cursor, limit)
	if err != nil {
		return BidsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}

	total, err := s.bidRepo.Count(ctx, listingID)
	if err != nil {
		return BidsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count bids")
	}

	items := make([]BidDTO, 0, len(records))
	for _, record := range records {
		items = append(items, record.ToDTO())
	}

	return BidsPageDTO{
		Items: items,
		Pagination: BidPagination{
			Total:   int(total),
			Current: cursor,
			Next:    nextCursor,
		},
	}, nil
}

// Winner returns the standing winning bid, or nil when the listing has no
// bids. When several bids share the maximum amount the latest one wins.
func (s *service) Winner(ctx context.Context, listingID int64) (*BidDTO, error) {
	if listingID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	record, err := s.bidRepo.Top(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load winning bid")
	}

	ties, err := s.bidRepo.CountAtAmount(ctx, listingID, record.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count bids at amount")
	}
	if ties > 1 {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"listing_id": listingID,
			"amount":     record.Amount,
			"ties":       ties,
		})
		s.logg.Warn(ctx, "duplicate maximum bid amount, latest bid wins")
	}

	dto := record.ToDTO()
	return &dto, nil
}

func (s *service) reject(reason string) {
	s.metrics.IncRejected(reason)
}

func (s *service) rejectFromDetails(err *pkgerrors.Error) {
	if details, ok := err.Details().(map[string]any); ok {
		if reason, ok := details["reason"].(string); ok {
			s.reject(reason)
			return
		}
	}
	s.reject("other")
}

func selfBidError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "owners cannot bid on their own listings").
		WithDetails(map[string]any{"reason": ReasonSelfBid})
}
