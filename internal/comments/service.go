package comments

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/openlots/openlots-backend/internal/listings"
	"github.com/openlots/openlots-backend/pkg/clock"
	"github.com/openlots/openlots-backend/pkg/db/models"
	pkgerrors "github.com/openlots/openlots-backend/pkg/errors"
	"github.com/openlots/openlots-backend/pkg/logger"
)

const maxBodyLen = 2000

// CommentDTO is the read model for a listing comment.
type CommentDTO struct {
	ID             int64     `json:"id"`
	ListingID      int64     `json:"listing_id"`
	AuthorID       int64     `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
	EditedAt       time.Time `json:"edited_at"`
}

// CommentPagination carries cursor pagination metadata for comment pages.
type CommentPagination struct {
	Total   int    `json:"total"`
	Current string `json:"current"`
	Next    string `json:"next"`
}

// CommentsPageDTO is one page of comments, newest first.
type CommentsPageDTO struct {
	Items      []CommentDTO      `json:"items"`
	Pagination CommentPagination `json:"pagination"`
}

// ServiceParams groups dependencies for the comment service.
type ServiceParams struct {
	CommentRepo *Repository
	ListingRepo *listings.Repository
	Clock       clock.Clock
	Logger      *logger.Logger
}

// Service exposes comment posting, edits and reads.
type Service interface {
	Add(ctx context.Context, authorID, listingID int64, body string) (CommentDTO, error)
	Edit(ctx context.Context, actorID, commentID int64, body string) (CommentDTO, error)
	ListForListing(ctx context.Context, listingID int64, cursor string, limit int) (CommentsPageDTO, error)
}

type service struct {
	commentRepo *Repository
	listingRepo *listings.Repository
	clock       clock.Clock
	logg        *logger.Logger
}

// NewService builds a comment service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CommentRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment repo is required")
	}
	if params.ListingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing repo is required")
	}
	if params.Clock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clock is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		commentRepo: params.CommentRepo,
		listingRepo: params.ListingRepo,
		clock:       params.Clock,
		logg:        params.Logger,
	}, nil
}

// Add posts a comment to an existing listing. Comments stay open on closed
// and ended listings.
func (s *service) Add(ctx context.Context, authorID, listingID int64, body string) (CommentDTO, error) {
	if authorID <= 0 {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "author is required")
	}
	if listingID <= 0 {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "comment body is required")
	}
	if len(body) > maxBodyLen {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "comment body is too long")
	}

	if err := s.ensureListing(ctx, listingID); err != nil {
		return CommentDTO{}, err
	}

	// Both timestamps come from the service clock so posts and edits agree
	// on the time source; a fresh comment reads as never edited.
	now := s.clock.Now()
	comment := &models.Comment{
		ListingID: listingID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now,
		EditedAt:  now,
	}
	if _, err := s.commentRepo.Create(ctx, comment); err != nil {
		return CommentDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create comment")
	}

	ctx = s.logg.WithListingID(ctx, listingID)
	s.logg.Info(ctx, "comment added")

	return CommentDTO{
		ID:        comment.ID,
		ListingID: comment.ListingID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
		EditedAt:  comment.EditedAt,
	}, nil
}

// Edit replaces the body of an existing comment. Only the author may edit;
// the posted timestamp never moves.
func (s *service) Edit(ctx context.Context, actorID, commentID int64, body string) (CommentDTO, error) {
	if actorID <= 0 {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	if commentID <= 0 {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "comment id is required")
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "comment body is required")
	}
	if len(body) > maxBodyLen {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "comment body is too long")
	}

	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CommentDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "comment not found")
		}
		return CommentDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load comment")
	}
	if comment.AuthorID != actorID {
		return CommentDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the author can edit a comment")
	}

	if err := s.commentRepo.UpdateBody(ctx, commentID, body, s.clock.Now()); err != nil {
		return CommentDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update comment")
	}

	ctx = s.logg.WithListingID(ctx, comment.ListingID)
	s.logg.Info(ctx, "comment edited")

	record, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return CommentDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load comment")
	}
	return record.ToDTO(), nil
}

// ListForListing returns one page of comments for the listing.
func (s *service) ListForListing(ctx context.Context, listingID int64, cursor string, limit int) (CommentsPageDTO, error) {
	if listingID <= 0 {
		return CommentsPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	if err := s.ensureListing(ctx, listingID); err != nil {
		return CommentsPageDTO{}, err
	}

	records, nextCursor, err := s.commentRepo.ListByListing(ctx, listingID, cursor, limit)
	if err != nil {
		return CommentsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}

	total, err := s.commentRepo.Count(ctx, listingID)
	if err != nil {
		return CommentsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count comments")
	}

	items := make([]CommentDTO, 0, len(records))
	for _, record := range records {
		items = append(items, record.ToDTO())
	}

	return CommentsPageDTO{
		Items: items,
		Pagination: CommentPagination{
			Total:   int(total),
			Current: cursor,
			Next:    nextCursor,
		},
	}, nil
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
