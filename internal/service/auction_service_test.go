package service

import (
	"context"
	"testing"
	"time"

	"auction-service/internal/aucerrors"
	"auction-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestAuctionService(store *memStore) (*AuctionService, *fakePublisher) {
	pub := &fakePublisher{}
	svc := NewAuctionService(store, nil, pub)
	svc.now = func() time.Time { return testNow }
	return svc, pub
}

func validCreateRequest() *CreateAuctionRequest {
	return &CreateAuctionRequest{
		Title:       "Antique clock",
		Description: "A fine antique clock",
		Category:    "Antiques",
		Condition:   "Used",
		StartingBid: 10000,
		StartTime:   testNow.Add(time.Hour).Format(time.RFC3339),
		EndTime:     testNow.Add(2 * time.Hour).Format(time.RFC3339),
	}
}

func TestCreateAuction(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Email: "alice@example.com", Role: models.RoleAuctioneer})
	svc, _ := newTestAuctionService(store)

	auction, err := svc.CreateAuction(context.Background(), seller.ID, validCreateRequest())
	require.NoError(t, err)

	assert.NotZero(t, auction.ID)
	assert.Equal(t, int64(0), auction.CurrentBid)
	assert.Nil(t, auction.HighestBidderID)
	assert.False(t, auction.CommissionCalculated)
	assert.Equal(t, models.AuctionStatusScheduled, auction.StatusAt(testNow))
}

func TestCreateAuctionValidation(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer})
	svc, _ := newTestAuctionService(store)

	tests := []struct {
		name     string
		mutate   func(*CreateAuctionRequest)
		expected error
	}{
		{"missing_title", func(r *CreateAuctionRequest) { r.Title = " " }, aucerrors.ErrValidation},
		{"missing_condition", func(r *CreateAuctionRequest) { r.Condition = "" }, aucerrors.ErrValidation},
		{"bad_start_time", func(r *CreateAuctionRequest) { r.StartTime = "yesterday" }, aucerrors.ErrValidation},
		{"start_in_past", func(r *CreateAuctionRequest) {
			r.StartTime = testNow.Add(-time.Hour).Format(time.RFC3339)
		}, aucerrors.ErrScheduling},
		{"start_is_now", func(r *CreateAuctionRequest) {
			r.StartTime = testNow.Format(time.RFC3339)
		}, aucerrors.ErrScheduling},
		{"end_before_start", func(r *CreateAuctionRequest) {
			r.StartTime = testNow.Add(2 * time.Hour).Format(time.RFC3339)
			r.EndTime = testNow.Add(time.Hour).Format(time.RFC3339)
		}, aucerrors.ErrScheduling},
		{"end_equals_start", func(r *CreateAuctionRequest) {
			r.StartTime = testNow.Add(time.Hour).Format(time.RFC3339)
			r.EndTime = testNow.Add(time.Hour).Format(time.RFC3339)
		}, aucerrors.ErrScheduling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)

			_, err := svc.CreateAuction(context.Background(), seller.ID, req)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestCreateAuctionConflict(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer})
	svc, _ := newTestAuctionService(store)

	_, err := svc.CreateAuction(context.Background(), seller.ID, validCreateRequest())
	require.NoError(t, err)

	// Second listing while the first window is still open
	_, err = svc.CreateAuction(context.Background(), seller.ID, validCreateRequest())
	assert.ErrorIs(t, err, aucerrors.ErrConflict)

	// A different seller is unaffected
	other := store.addUser(&models.User{UserName: "bob", Role: models.RoleAuctioneer})
	_, err = svc.CreateAuction(context.Background(), other.ID, validCreateRequest())
	assert.NoError(t, err)
}

func TestCreateAuctionAfterPreviousEnded(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer})
	store.addAuction(&models.Auction{
		SellerID:  seller.ID,
		StartTime: testNow.Add(-2 * time.Hour),
		EndTime:   testNow.Add(-time.Hour),
	})
	svc, _ := newTestAuctionService(store)

	_, err := svc.CreateAuction(context.Background(), seller.ID, validCreateRequest())
	assert.NoError(t, err)
}

func TestRegisterUser(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestAuctionService(store)

	user, err := svc.RegisterUser(context.Background(), &RegisterUserRequest{
		UserName: "alice",
		Email:    "alice@example.com",
		Role:     models.RoleAuctioneer,
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, int64(0), user.UnpaidCommission)

	_, err = svc.RegisterUser(context.Background(), &RegisterUserRequest{
		UserName: "bob",
		Email:    "bob@example.com",
		Role:     "MODERATOR",
	})
	assert.ErrorIs(t, err, aucerrors.ErrValidation)
}

func activeAuction(store *memStore, sellerID int64, startingBid int64) *models.Auction {
	return store.addAuction(&models.Auction{
		Title:       "Active item",
		SellerID:    sellerID,
		StartingBid: startingBid,
		StartTime:   testNow.Add(-time.Hour),
		EndTime:     testNow.Add(time.Hour),
	})
}

func TestPlaceBid(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer})
	bidder := store.addUser(&models.User{UserName: "bob", Email: "bob@example.com", Role: models.RoleBidder})
	auction := activeAuction(store, seller.ID, 10000)
	svc, pub := newTestAuctionService(store)

	bid, err := svc.PlaceBid(context.Background(), auction.ID, bidder.ID, 15000)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), bid.Amount)
	assert.Equal(t, "bob", bid.BidderName)

	updated, _ := store.GetAuctionByID(context.Background(), auction.ID)
	assert.Equal(t, int64(15000), updated.CurrentBid)
	require.NotNil(t, updated.HighestBidderID)
	assert.Equal(t, bidder.ID, *updated.HighestBidderID)

	require.Len(t, pub.bidPlaced, 1)
	assert.Equal(t, auction.ID, pub.bidPlaced[0].AuctionID)
}

func TestPlaceBidCurrentBidIsMonotone(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer})
	a := store.addUser(&models.User{UserName: "a", Role: models.RoleBidder})
	b := store.addUser(&models.User{UserName: "b", Role: models.RoleBidder})
	auction := activeAuction(store, seller.ID, 100)
	svc, _ := newTestAuctionService(store)

	amounts := []int64{150, 200, 350, 500}
	bidders := []int64{a.ID, b.ID, a.ID, b.ID}
	var last int64
	for i, amount := range amounts {
		_, err := svc.PlaceBid(context.Background(), auction.ID, bidders[i], amount)
		require.NoError(t, err)

		updated, _ := store.GetAuctionByID(context.Background(), auction.ID)
		assert.GreaterOrEqual(t, updated.CurrentBid, last)
		assert.Equal(t, amount, updated.CurrentBid)
		last = updated.CurrentBid
	}
}

func TestPlaceBidTooLow(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer})
	bidder := store.addUser(&models.User{UserName: "bob", Role: models.RoleBidder})
	auction := activeAuction(store, seller.ID, 100)
	svc, _ := newTestAuctionService(store)

	_, err := svc.PlaceBid(context.Background(), auction.ID, bidder.ID, 200)
	require.NoError(t, err)

	tests := []struct {
		name   string
		amount int64
	}{
		{"equal_to_current", 200},
		{"below_current", 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceBid(context.Background(), auction.ID, bidder.ID, tt.amount)
			assert.ErrorIs(t, err, aucerrors.ErrBidTooLow)

			// no state change
			updated, _ := store.GetAuctionByID(context.Background(), auction.ID)
			assert.Equal(t, int64(200), updated.CurrentBid)
			bids, _ := store.GetBidsByAuction(context.Background(), auction.ID)
			assert.Len(t, bids, 1)
		})
	}
}

func TestPlaceBidOnInactiveAuction(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer})
	bidder := store.addUser(&models.User{UserName: "bob", Role: models.RoleBidder})
	svc, _ := newTestAuctionService(store)

	scheduled := store.addAuction(&models.Auction{
		SellerID:  seller.ID,
		StartTime: testNow.Add(time.Hour),
		EndTime:   testNow.Add(2 * time.Hour),
	})
	ended := store.addAuction(&models.Auction{
		SellerID:  seller.ID,
		StartTime: testNow.Add(-2 * time.Hour),
		EndTime:   testNow.Add(-time.Hour),
	})

	_, err := svc.PlaceBid(context.Background(), scheduled.ID, bidder.ID, 500)
	assert.ErrorIs(t, err, aucerrors.ErrNotActive)

	_, err = svc.PlaceBid(context.Background(), ended.ID, bidder.ID, 500)
	assert.ErrorIs(t, err, aucerrors.ErrNotActive)
}

func TestRepublishNotEnded(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer})
	auction := activeAuction(store, seller.ID, 100)
	svc, _ := newTestAuctionService(store)

	_, err := svc.Republish(context.Background(), auction.ID,
		testNow.Add(time.Hour).Format(time.RFC3339),
		testNow.Add(2*time.Hour).Format(time.RFC3339))
	assert.ErrorIs(t, err, aucerrors.ErrNotEnded)
}

func TestRepublishReversesWin(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer, UnpaidCommission: 500})
	winner := store.addUser(&models.User{UserName: "bob", Role: models.RoleBidder, MoneySpent: 20000, AuctionsWon: 2})

	winnerID := winner.ID
	auction := store.addAuction(&models.Auction{
		SellerID:             seller.ID,
		CurrentBid:           10000,
		HighestBidderID:      &winnerID,
		CommissionCalculated: true,
		StartTime:            testNow.Add(-2 * time.Hour),
		EndTime:              testNow.Add(-time.Hour),
	})
	store.bids[auction.ID] = []models.Bid{{ID: 99, AuctionID: auction.ID, BidderID: winner.ID, Amount: 10000, CreatedAt: testNow.Add(-90 * time.Minute)}}

	svc, _ := newTestAuctionService(store)

	republished, err := svc.Republish(context.Background(), auction.ID,
		testNow.Add(time.Hour).Format(time.RFC3339),
		testNow.Add(2*time.Hour).Format(time.RFC3339))
	require.NoError(t, err)

	assert.Equal(t, int64(0), republished.CurrentBid)
	assert.Nil(t, republished.HighestBidderID)
	assert.False(t, republished.CommissionCalculated)
	assert.Equal(t, models.AuctionStatusScheduled, republished.StatusAt(testNow))

	bids, _ := store.GetBidsByAuction(context.Background(), auction.ID)
	assert.Empty(t, bids)

	updatedWinner, _ := store.GetUserByID(context.Background(), winner.ID)
	assert.Equal(t, int64(10000), updatedWinner.MoneySpent)
	assert.Equal(t, 1, updatedWinner.AuctionsWon)

	updatedSeller, _ := store.GetUserByID(context.Background(), seller.ID)
	assert.Equal(t, int64(0), updatedSeller.UnpaidCommission)
}

func TestRepublishSchedulingValidation(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer})
	auction := store.addAuction(&models.Auction{
		SellerID:  seller.ID,
		StartTime: testNow.Add(-2 * time.Hour),
		EndTime:   testNow.Add(-time.Hour),
	})
	svc, _ := newTestAuctionService(store)

	_, err := svc.Republish(context.Background(), auction.ID,
		testNow.Add(-time.Minute).Format(time.RFC3339),
		testNow.Add(time.Hour).Format(time.RFC3339))
	assert.ErrorIs(t, err, aucerrors.ErrScheduling)
}

func TestRemoveAuction(t *testing.T) {
	store := newMemStore()
	seller := store.addUser(&models.User{UserName: "alice", Role: models.RoleAuctioneer})
	auction := activeAuction(store, seller.ID, 100)
	svc, _ := newTestAuctionService(store)

	require.NoError(t, svc.Remove(context.Background(), auction.ID))

	_, _, err := svc.GetAuction(context.Background(), auction.ID)
	assert.ErrorIs(t, err, aucerrors.ErrNotFound)

	err = svc.Remove(context.Background(), auction.ID)
	assert.ErrorIs(t, err, aucerrors.ErrNotFound)
}
