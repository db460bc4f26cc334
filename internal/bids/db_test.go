package bids

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

func setupBidsTestDB(t *testing.T) *gorm.DB {
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
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(listings).Error)
	require.NoError(t, db.Exec(bids).Error)
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Username:     fmt.Sprintf("bidder_%d_%d", time.Now().UnixNano(), userSeq.Add(1)),
		PasswordHash: "hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestListing(t *testing.T, db *gorm.DB, ownerID int64, start, end time.Time, price int64) *models.Listing {
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
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func insertBid(t *testing.T, db *gorm.DB, listingID, bidderID int64, amount int64, created time.Time) *models.Bid {
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
