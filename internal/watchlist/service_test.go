package watchlist

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openlots/openlots-backend/internal/listings"
	"github.com/openlots/openlots-backend/pkg/clock"
	"github.com/openlots/openlots-backend/pkg/db/models"
	"github.com/openlots/openlots-backend/pkg/enums"
	pkgerrors "github.com/openlots/openlots-backend/pkg/errors"
	"github.com/openlots/openlots-backend/pkg/logger"
)

var userSeq atomic.Int64

func setupWatchlistTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  email TEXT UNIQUE,
  phone TEXT UNIQUE,
  password_hash TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	listingsTable := `
CREATE TABLE IF NOT EXISTS listings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  owner_id INTEGER NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  condition TEXT NOT NULL,
  image_url TEXT,
  starting_price NUMERIC NOT NULL,
  start_datetime DATETIME NOT NULL,
  end_datetime DATETIME NOT NULL,
  closed INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	bids := `
CREATE TABLE IF NOT EXISTS bids (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  listing_id INTEGER NOT NULL,
  bidder_id INTEGER NOT NULL,
  amount NUMERIC NOT NULL,
  created_at DATETIME
);`
	watchItems := `
CREATE TABLE IF NOT EXISTS watch_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  listing_id INTEGER NOT NULL,
  created_at DATETIME,
  UNIQUE (user_id, listing_id)
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(listingsTable).Error)
	require.NoError(t, db.Exec(bids).Error)
	require.NoError(t, db.Exec(watchItems).Error)
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func buildWatchlistService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db := setupWatchlistTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	listingRepo := listings.NewRepository(db)

	listingService, err := listings.NewService(listings.ServiceParams{
		Repo:   listingRepo,
		Tx:     testTxRunner{db: db},
		Clock:  clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)),
		Logger: logg,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		WatchRepo:      NewRepository(db),
		ListingRepo:    listingRepo,
		ListingService: listingService,
		Logger:         logg,
	})
	require.NoError(t, err)
	return svc, db
}

func newTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Username:     fmt.Sprintf("watcher_%d_%d", time.Now().UnixNano(), userSeq.Add(1)),
		PasswordHash: "hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestListing(t *testing.T, db *gorm.DB, ownerID int64) *models.Listing {
	t.Helper()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	listing := &models.Listing{
		OwnerID:       ownerID,
		Title:         "Test Lot",
		Description:   "A test lot",
		Category:      enums.ListingCategoryCollectible,
		Condition:     enums.ListingConditionUsedGood,
		StartingPrice: decimal.NewFromInt(100),
		StartDatetime: base.Add(-time.Hour),
		EndDatetime:   base.Add(48 * time.Hour),
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func TestServiceToggle(t *testing.T) {
	svc, db := buildWatchlistService(t)
	ctx := context.Background()

	owner := newTestUser(t, db)
	watcher := newTestUser(t, db)
	listing := newTestListing(t, db, owner.ID)

	result, err := svc.Toggle(ctx, watcher.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, result.Watching)

	watching, err := svc.IsWatching(ctx, watcher.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, watching)

	result, err = svc.Toggle(ctx, watcher.ID, listing.ID)
	require.NoError(t, err)
	assert.False(t, result.Watching)

	watching, err = svc.IsWatching(ctx, watcher.ID, listing.ID)
	require.NoError(t, err)
	assert.False(t, watching)
}

func TestServiceToggleUnknownListing(t *testing.T) {
	svc, db := buildWatchlistService(t)

	watcher := newTestUser(t, db)

	_, err := svc.Toggle(context.Background(), watcher.ID, 987654321)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestServiceListWatched(t *testing.T) {
	svc, db := buildWatchlistService(t)
	ctx := context.Background()

	owner := newTestUser(t, db)
	watcher := newTestUser(t, db)
	watched := newTestListing(t, db, owner.ID)
	_ = newTestListing(t, db, owner.ID)

	_, err := svc.Toggle(ctx, watcher.ID, watched.ID)
	require.NoError(t, err)

	page, err := svc.ListWatched(ctx, watcher.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, watched.ID, page.Items[0].ID)
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestRepositoryAddIgnoresDuplicates(t *testing.T) {
	db := setupWatchlistTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newTestUser(t, db)
	owner := newTestUser(t, db)
	listing := newTestListing(t, db, owner.ID)

	require.NoError(t, repo.Add(ctx, user.ID, listing.ID))
	require.NoError(t, repo.Add(ctx, user.ID, listing.ID))

	count, err := repo.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
