package listings

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openlots/openlots-backend/pkg/db/models"
	"github.com/openlots/openlots-backend/pkg/enums"
	"github.com/openlots/openlots-backend/pkg/logger"
)

var userSeq atomic.Int64

func setupListingsTestDB(t *testing.T) *gorm.DB {
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
	listings := `
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
	comments := `
CREATE TABLE IF NOT EXISTS comments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  listing_id INTEGER NOT NULL,
  author_id INTEGER NOT NULL,
  body TEXT NOT NULL,
  created_at DATETIME,
  edited_at DATETIME
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
	require.NoError(t, db.Exec(listings).Error)
	require.NoError(t, db.Exec(bids).Error)
	require.NoError(t, db.Exec(comments).Error)
	require.NoError(t, db.Exec(watchItems).Error)
	return db
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Username:     fmt.Sprintf("seller_%d_%d", time.Now().UnixNano(), userSeq.Add(1)),
		PasswordHash: "hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newListing(t *testing.T, db *gorm.DB, ownerID int64, start, end time.Time, price int64, created time.Time) *models.Listing {
	t.Helper()

	listing := &models.Listing{
		OwnerID:       ownerID,
		Title:         "Test Lot",
		Description:   "A test lot",
		Category:      enums.ListingCategoryCollectible,
		Condition:     enums.ListingConditionUsedGood,
		StartingPrice: decimal.NewFromInt(price),
		StartDatetime: start,
		EndDatetime:   end,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func newBid(t *testing.T, db *gorm.DB, listingID, bidderID int64, amount int64, created time.Time) *models.Bid {
	t.Helper()

	bid := &models.Bid{
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    decimal.NewFromInt(amount),
		CreatedAt: created,
	}
	require.NoError(t, db.Create(bid).Error)
	return bid
}
