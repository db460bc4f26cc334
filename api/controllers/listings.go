package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openlots/openlots-backend/api/middleware"
	"github.com/openlots/openlots-backend/api/responses"
	"github.com/openlots/openlots-backend/api/validators"
	"github.com/openlots/openlots-backend/internal/listings"
	"github.com/openlots/openlots-backend/pkg/enums"
	pkgerrors "github.com/openlots/openlots-backend/pkg/errors"
	"github.com/openlots/openlots-backend/pkg/logger"
)

type createListingPayload struct {
	Title         string  `json:"title" validate:"required,max=120"`
	Description   string  `json:"description" validate:"required"`
	Category      string  `json:"category"`
	Condition     string  `json:"condition" validate:"required"`
	ImageURL      *string `json:"image_url" validate:"omitempty,url"`
	StartingPrice string  `json:"starting_price" validate:"required"`
	StartDatetime string  `json:"start_datetime"`
	EndDatetime   string  `json:"end_datetime" validate:"required"`
}

// ListingsIndex returns the page of listings currently open for bidding.
func ListingsIndex(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		limit, err := limitParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		category := strings.TrimSpace(r.URL.Query().Get("category"))
		resp, err := svc.ListActive(ctx, category, cursorParam(r), limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// ListingsMine returns every listing the authenticated user has posted.
func ListingsMine(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		limit, err := limitParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.ListOwned(ctx, middleware.UserIDFromContext(ctx), cursorParam(r), limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// ListingsGet returns one listing with derived state and bid stats.
func ListingsGet(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		id, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.GetByID(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// ListingsCreate posts a new listing for the authenticated user.
func ListingsCreate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		var payload createListingPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Create(ctx, middleware.UserIDFromContext(ctx), input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

type updateListingPayload struct {
	Title         *string `json:"title" validate:"omitempty,max=120"`
	Description   *string `json:"description"`
	Category      *string `json:"category"`
	Condition     *string `json:"condition"`
	ImageURL      *string `json:"image_url" validate:"omitempty,url"`
	StartingPrice *string `json:"starting_price"`
	StartDatetime *string `json:"start_datetime"`
	EndDatetime   *string `json:"end_datetime"`
}

// ListingsUpdate applies seller edits to a listing.
func ListingsUpdate(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		id, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateListingPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Update(ctx, middleware.UserIDFromContext(ctx), id, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// ListingsDelete removes a listing and its bids, comments and watch entries.
func ListingsDelete(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		id, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, middleware.UserIDFromContext(ctx), id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true, "id": id})
	}
}

// ListingsClose transitions an open listing to closed.
func ListingsClose(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		id, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Close(ctx, middleware.UserIDFromContext(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func (p createListingPayload) toInput() (listings.CreateListingInput, error) {
	details := map[string]string{}

	var category enums.ListingCategory
	if raw := strings.TrimSpace(p.Category); raw != "" {
		parsed, err := enums.ParseListingCategory(raw)
		if err != nil {
			details["category"] = "unknown category"
		}
		category = parsed
	}
	condition, err := enums.ParseListingCondition(strings.TrimSpace(p.Condition))
	if err != nil {
		details["condition"] = "unknown condition"
	}
	price, err := decimal.NewFromString(strings.TrimSpace(p.StartingPrice))
	if err != nil {
		details["starting_price"] = "must be a decimal number"
	}

	var start, end time.Time
	if raw := strings.TrimSpace(p.StartDatetime); raw != "" {
		start, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			details["start_datetime"] = "must be an RFC3339 timestamp"
		}
	}
	if raw := strings.TrimSpace(p.EndDatetime); raw != "" {
		end, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			details["end_datetime"] = "must be an RFC3339 timestamp"
		}
	}

	if len(details) > 0 {
		return listings.CreateListingInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing").WithDetails(details)
	}

	return listings.CreateListingInput{
		Title:         p.Title,
		Description:   p.Description,
		Category:      category,
		Condition:     condition,
		ImageURL:      p.ImageURL,
		StartingPrice: price,
		StartDatetime: start,
		EndDatetime:   end,
	}, nil
}

func (p updateListingPayload) toInput() (listings.UpdateListingInput, error) {
	details := map[string]string{}
	input := listings.UpdateListingInput{
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
	}

	if p.Category != nil {
		// An explicit empty string clears the category.
		var category enums.ListingCategory
		if raw := strings.TrimSpace(*p.Category); raw != "" {
			parsed, err := enums.ParseListingCategory(raw)
			if err != nil {
				details["category"] = "unknown category"
			}
			category = parsed
		}
		input.Category = &category
	}
	if p.Condition != nil {
		condition, err := enums.ParseListingCondition(strings.TrimSpace(*p.Condition))
		if err != nil {
			details["condition"] = "unknown condition"
		}
		input.Condition = &condition
	}
	if p.StartingPrice != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*p.StartingPrice))
		if err != nil {
			details["starting_price"] = "must be a decimal number"
		}
		input.StartingPrice = &price
	}
	if p.StartDatetime != nil {
		start, err := time.Parse(time.RFC3339, strings.TrimSpace(*p.StartDatetime))
		if err != nil {
			details["start_datetime"] = "must be an RFC3339 timestamp"
		}
		input.StartDatetime = &start
	}
	if p.EndDatetime != nil {
		end, err := time.Parse(time.RFC3339, strings.TrimSpace(*p.EndDatetime))
		if err != nil {
			details["end_datetime"] = "must be an RFC3339 timestamp"
		}
		input.EndDatetime = &end
	}

	if len(details) > 0 {
		return listings.UpdateListingInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing").WithDetails(details)
	}
	return input, nil
}
