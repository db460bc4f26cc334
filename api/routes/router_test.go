package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openlots/openlots-backend/internal/auth"
	"github.com/openlots/openlots-backend/internal/bids"
	"github.com/openlots/openlots-backend/internal/comments"
	"github.com/openlots/openlots-backend/internal/listings"
	"github.com/openlots/openlots-backend/internal/watchlist"
	pkgAuth "github.com/openlots/openlots-backend/pkg/auth"
	"github.com/openlots/openlots-backend/pkg/config"
	"github.com/openlots/openlots-backend/pkg/logger"
	"github.com/openlots/openlots-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	return &auth.AuthResponse{}, nil
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) GetUser(ctx context.Context, id int64) (auth.UserDTO, error) {
	return auth.UserDTO{ID: id, Username: "stub"}, nil
}

type stubListingService struct{}

func (stubListingService) Create(ctx context.Context, ownerID int64, input listings.CreateListingInput) (listings.ListingDTO, error) {
	return listings.ListingDTO{ID: 1, OwnerID: ownerID}, nil
}

func (stubListingService) GetByID(ctx context.Context, id int64) (listings.ListingDTO, error) {
	return listings.ListingDTO{ID: id}, nil
}

func (stubListingService) ListActive(ctx context.Context, category, cursor string, limit int) (listings.ListingsPageDTO, error) {
	return listings.ListingsPageDTO{}, nil
}

func (stubListingService) ListOwned(ctx context.Context, ownerID int64, cursor string, limit int) (listings.ListingsPageDTO, error) {
	return listings.ListingsPageDTO{}, nil
}

func (stubListingService) ListWatchedBy(ctx context.Context, userID int64, cursor string, limit int) (listings.ListingsPageDTO, error) {
	return listings.ListingsPageDTO{}, nil
}

func (stubListingService) Update(ctx context.Context, actorID, listingID int64, input listings.UpdateListingInput) (listings.ListingDTO, error) {
	return listings.ListingDTO{ID: listingID, OwnerID: actorID}, nil
}

func (stubListingService) Delete(ctx context.Context, actorID, listingID int64) error {
	return nil
}

func (stubListingService) Close(ctx context.Context, actorID, listingID int64) (listings.ListingDTO, error) {
	return listings.ListingDTO{ID: listingID}, nil
}

type stubBidService struct{}

func (stubBidService) Place(ctx context.Context, bidderID, listingID int64, amount decimal.Decimal) (bids.BidDTO, error) {
	return bids.BidDTO{ListingID: listingID, BidderID: bidderID, Amount: amount}, nil
}

func (stubBidService) ListForListing(ctx context.Context, listingID int64, cursor string, limit int) (bids.BidsPageDTO, error) {
	return bids.BidsPageDTO{}, nil
}

func (stubBidService) Winner(ctx context.Context, listingID int64) (*bids.BidDTO, error) {
	return nil, nil
}

type stubCommentService struct{}

func (stubCommentService) Add(ctx context.Context, authorID, listingID int64, body string) (comments.CommentDTO, error) {
	return comments.CommentDTO{ListingID: listingID, AuthorID: authorID, Body: body}, nil
}

func (stubCommentService) Edit(ctx context.Context, actorID, commentID int64, body string) (comments.CommentDTO, error) {
	return comments.CommentDTO{ID: commentID, AuthorID: actorID, Body: body}, nil
}

func (stubCommentService) ListForListing(ctx context.Context, listingID int64, cursor string, limit int) (comments.CommentsPageDTO, error) {
	return comments.CommentsPageDTO{}, nil
}

type stubWatchlistService struct{}

func (stubWatchlistService) Toggle(ctx context.Context, userID, listingID int64) (watchlist.ToggleResultDTO, error) {
	return watchlist.ToggleResultDTO{ListingID: listingID, Watching: true}, nil
}

func (stubWatchlistService) IsWatching(ctx context.Context, userID, listingID int64) (bool, error) {
	return false, nil
}

func (stubWatchlistService) ListWatched(ctx context.Context, userID int64, cursor string, limit int) (listings.ListingsPageDTO, error) {
	return listings.ListingsPageDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:           cfg,
		Logger:           logg,
		DBPinger:         stubPinger{},
		RedisClient:      (*redis.Client)(nil),
		AuthService:      stubAuthService{},
		ListingService:   stubListingService{},
		BidService:       stubBidService{},
		CommentService:   stubCommentService{},
		WatchlistService: stubWatchlistService{},
	})
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-OpenLots-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestPublicListingsDoNotRequireJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{
		"/api/v1/listings",
		"/api/v1/listings/1",
		"/api/v1/listings/1/bids",
		"/api/v1/listings/1/bids/winner",
		"/api/v1/listings/1/comments",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, probe := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/listings"},
		{http.MethodGet, "/api/v1/listings/mine"},
		{http.MethodPatch, "/api/v1/listings/1"},
		{http.MethodDelete, "/api/v1/listings/1"},
		{http.MethodPatch, "/api/v1/comments/1"},
		{http.MethodPost, "/api/v1/listings/1/close"},
		{http.MethodPost, "/api/v1/listings/1/bids"},
		{http.MethodPost, "/api/v1/listings/1/comments"},
		{http.MethodPost, "/api/v1/listings/1/watch"},
		{http.MethodGet, "/api/v1/watchlist"},
	} {
		req := httptest.NewRequest(probe.method, probe.path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s %s got %d", probe.method, probe.path, resp.Code)
		}
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, 42, "alice"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for auth/me got %d", resp.Code)
	}

	var payload struct {
		Data auth.UserDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.ID != 42 {
		t.Fatalf("expected user 42 got %d", payload.Data.ID)
	}
}

func TestListingCreateRequiresValidPayload(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, 7, "seller")

	bad := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader("{"))
	bad.Header.Set("Authorization", "Bearer "+token)
	bad.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}

	body := `{
		"title": "Vintage radio",
		"description": "Works, some scratches.",
		"category": "electronics",
		"condition": "used",
		"starting_price": "25.00",
		"end_datetime": "2027-01-02T15:00:00Z"
	}`
	good := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(body))
	good.Header.Set("Authorization", "Bearer "+token)
	good.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, good)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for valid payload got %d", resp.Code)
	}
}

func TestRegisterRouteUsesStubService(t *testing.T) {
	router := newTestRouter(testConfig())
	body := `{"username":"fresh","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for register got %d", resp.Code)
	}
}

func buildToken(t *testing.T, cfg *config.Config, userID int64, username string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   userID,
		Username: username,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
