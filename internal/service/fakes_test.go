package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-service/internal/aucerrors"
	"auction-service/internal/models"
)

// memStore is a concurrency-safe in-memory stand-in for the SQL store. It
// mirrors the conditional-update semantics of the real queries so the
// exactly-once behavior of the passes can be exercised without a database.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	auctions map[int64]*models.Auction
	bids     map[int64][]models.Bid
	users    map[int64]*models.User
	proofs   map[int64]*models.PaymentProof
	ledger   []models.CommissionEntry

	// injected per-item failures
	winningBidErr map[int64]error
	settleErr     map[int64]error
}

func newMemStore() *memStore {
	return &memStore{
		auctions:      make(map[int64]*models.Auction),
		bids:          make(map[int64][]models.Bid),
		users:         make(map[int64]*models.User),
		proofs:        make(map[int64]*models.PaymentProof),
		winningBidErr: make(map[int64]error),
		settleErr:     make(map[int64]error),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(user *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.id()
	m.users[user.ID] = user
	return user
}

func (m *memStore) addAuction(auction *models.Auction) *models.Auction {
	m.mu.Lock()
	defer m.mu.Unlock()
	auction.ID = m.id()
	m.auctions[auction.ID] = auction
	return auction
}

func (m *memStore) addProof(proof *models.PaymentProof) *models.PaymentProof {
	m.mu.Lock()
	defer m.mu.Unlock()
	proof.ID = m.id()
	m.proofs[proof.ID] = proof
	return proof
}

func (m *memStore) CreateAuction(_ context.Context, auction *models.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	auction.ID = m.id()
	auction.CurrentBid = 0
	auction.HighestBidderID = nil
	auction.CommissionCalculated = false
	auction.CreatedAt = time.Now()
	m.auctions[auction.ID] = auction
	return nil
}

func (m *memStore) GetAuctionByID(_ context.Context, id int64) (*models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	auction, ok := m.auctions[id]
	if !ok {
		return nil, fmt.Errorf("auction %d: %w", id, aucerrors.ErrNotFound)
	}
	copied := *auction
	return &copied, nil
}

func (m *memStore) GetAuctions(_ context.Context) ([]models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Auction, 0, len(m.auctions))
	for _, a := range m.auctions {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memStore) GetAuctionsBySeller(_ context.Context, sellerID int64) ([]models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Auction
	for _, a := range m.auctions {
		if a.SellerID == sellerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) HasOpenAuction(_ context.Context, sellerID int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.auctions {
		if a.SellerID == sellerID && a.EndTime.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) DeleteAuction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.auctions[id]; !ok {
		return fmt.Errorf("auction %d: %w", id, aucerrors.ErrNotFound)
	}
	delete(m.auctions, id)
	delete(m.bids, id)
	return nil
}

func (m *memStore) GetBidsByAuction(_ context.Context, auctionID int64) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Bid(nil), m.bids[auctionID]...), nil
}

func (m *memStore) PlaceBidTx(_ context.Context, auctionID, bidderID int64, bidderName string, amount int64, now time.Time) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	auction, ok := m.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %d: %w", auctionID, aucerrors.ErrNotFound)
	}
	if status := auction.StatusAt(now); status != models.AuctionStatusActive {
		return nil, fmt.Errorf("auction %d is %s: %w", auctionID, status, aucerrors.ErrNotActive)
	}
	if amount <= auction.CurrentBid || amount < auction.StartingBid {
		return nil, fmt.Errorf("bid %d on auction %d: %w", amount, auctionID, aucerrors.ErrBidTooLow)
	}

	bid := models.Bid{
		ID:         m.id(),
		AuctionID:  auctionID,
		BidderID:   bidderID,
		BidderName: bidderName,
		Amount:     amount,
		CreatedAt:  now,
	}
	m.bids[auctionID] = append(m.bids[auctionID], bid)
	auction.CurrentBid = amount
	bidder := bidderID
	auction.HighestBidderID = &bidder
	return &bid, nil
}

func (m *memStore) RepublishTx(_ context.Context, auctionID int64, startTime, endTime, now time.Time) (*models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	auction, ok := m.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %d: %w", auctionID, aucerrors.ErrNotFound)
	}
	if auction.StatusAt(now) != models.AuctionStatusEnded {
		return nil, fmt.Errorf("auction %d: %w", auctionID, aucerrors.ErrNotEnded)
	}

	if auction.HighestBidderID != nil {
		if winner, ok := m.users[*auction.HighestBidderID]; ok {
			winner.MoneySpent -= auction.CurrentBid
			if winner.MoneySpent < 0 {
				winner.MoneySpent = 0
			}
			if winner.AuctionsWon > 0 {
				winner.AuctionsWon--
			}
		}
	}
	if seller, ok := m.users[auction.SellerID]; ok {
		seller.UnpaidCommission = 0
	}

	delete(m.bids, auctionID)
	auction.StartTime = startTime
	auction.EndTime = endTime
	auction.CurrentBid = 0
	auction.HighestBidderID = nil
	auction.CommissionCalculated = false

	copied := *auction
	return &copied, nil
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.id()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, aucerrors.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) TopBySpending(_ context.Context, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.MoneySpent > 0 {
			out = append(out, *u)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListEndedUnprocessed(_ context.Context, now time.Time) ([]models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Auction
	for _, a := range m.auctions {
		if a.EndTime.Before(now) && !a.CommissionCalculated {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) FindWinningBid(_ context.Context, auctionID, amount int64) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.winningBidErr[auctionID]; err != nil {
		return nil, err
	}

	var winning *models.Bid
	for i := range m.bids[auctionID] {
		b := &m.bids[auctionID][i]
		if b.Amount != amount {
			continue
		}
		if winning == nil || b.CreatedAt.Before(winning.CreatedAt) {
			winning = b
		}
	}
	if winning == nil {
		return nil, fmt.Errorf("winning bid for auction %d: %w", auctionID, aucerrors.ErrNotFound)
	}
	copied := *winning
	return &copied, nil
}

func (m *memStore) SettleClosedAuctionTx(_ context.Context, auctionID, sellerID int64, winnerID *int64, winAmount, fee int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	auction, ok := m.auctions[auctionID]
	if !ok {
		return false, fmt.Errorf("auction %d: %w", auctionID, aucerrors.ErrNotFound)
	}
	if auction.CommissionCalculated {
		return false, nil
	}

	auction.CommissionCalculated = true
	auction.HighestBidderID = winnerID

	if winnerID != nil {
		if winner, ok := m.users[*winnerID]; ok {
			winner.MoneySpent += winAmount
			winner.AuctionsWon++
		}
		if seller, ok := m.users[sellerID]; ok {
			seller.UnpaidCommission += fee
		}
	}
	return true, nil
}

func (m *memStore) CreatePaymentProof(_ context.Context, proof *models.PaymentProof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	proof.ID = m.id()
	proof.Status = models.ProofStatusSubmitted
	proof.CreatedAt = time.Now()
	m.proofs[proof.ID] = proof
	return nil
}

func (m *memStore) GetPaymentProofByID(_ context.Context, id int64) (*models.PaymentProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	proof, ok := m.proofs[id]
	if !ok {
		return nil, fmt.Errorf("payment proof %d: %w", id, aucerrors.ErrNotFound)
	}
	copied := *proof
	return &copied, nil
}

func (m *memStore) ListProofsByUser(_ context.Context, userID int64) ([]models.PaymentProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentProof
	for _, p := range m.proofs {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ListApprovedProofs(_ context.Context) ([]models.PaymentProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentProof
	for _, p := range m.proofs {
		if p.Status == models.ProofStatusApproved {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ReviewProof(_ context.Context, id int64, status, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	proof, ok := m.proofs[id]
	if !ok || proof.Status != models.ProofStatusSubmitted {
		return fmt.Errorf("payment proof %d not awaiting review: %w", id, aucerrors.ErrNotFound)
	}
	proof.Status = status
	proof.Comment = comment
	return nil
}

func (m *memStore) SettleProofTx(_ context.Context, proofID, userID, amount int64) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.settleErr[proofID]; err != nil {
		return false, 0, err
	}

	proof, ok := m.proofs[proofID]
	if !ok {
		return false, 0, fmt.Errorf("payment proof %d: %w", proofID, aucerrors.ErrNotFound)
	}
	if proof.Status != models.ProofStatusApproved {
		return false, 0, nil
	}
	proof.Status = models.ProofStatusSettled

	user, ok := m.users[userID]
	if !ok {
		return false, 0, fmt.Errorf("user %d: %w", userID, aucerrors.ErrNotFound)
	}
	user.UnpaidCommission -= amount
	if user.UnpaidCommission < 0 {
		user.UnpaidCommission = 0
	}

	m.ledger = append(m.ledger, models.CommissionEntry{
		ID:        m.id(),
		UserID:    userID,
		Amount:    amount,
		CreatedAt: time.Now(),
	})
	return true, user.UnpaidCommission, nil
}

func (m *memStore) ListCommissionEntries(_ context.Context, userID int64) ([]models.CommissionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CommissionEntry
	for _, e := range m.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakePublisher records published events and can be made to fail
type fakePublisher struct {
	mu                sync.Mutex
	err               error
	bidPlaced         []*models.BidPlacedEvent
	auctionClosed     []*models.AuctionClosedEvent
	commissionSettled []*models.CommissionSettledEvent
}

func (f *fakePublisher) PublishBidPlaced(_ context.Context, event *models.BidPlacedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.bidPlaced = append(f.bidPlaced, event)
	return nil
}

func (f *fakePublisher) PublishAuctionClosed(_ context.Context, event *models.AuctionClosedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.auctionClosed = append(f.auctionClosed, event)
	return nil
}

func (f *fakePublisher) PublishCommissionSettled(_ context.Context, event *models.CommissionSettledEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.commissionSettled = append(f.commissionSettled, event)
	return nil
}

// fakeDispatcher records notifications
type fakeDispatcher struct {
	mu       sync.Mutex
	messages []fakeNotification
}

type fakeNotification struct {
	Recipient string
	Subject   string
	Body      string
}

func (f *fakeDispatcher) Notify(_ context.Context, recipient, subject, body, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, fakeNotification{Recipient: recipient, Subject: subject, Body: body})
}
