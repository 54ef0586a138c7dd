package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-service/internal/aucerrors"
	"auction-service/internal/models"
	"auction-service/internal/redisclient"
	"auction-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuctionStore is the persistence surface the auction service needs
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction *models.Auction) error
	GetAuctionByID(ctx context.Context, id int64) (*models.Auction, error)
	GetAuctions(ctx context.Context) ([]models.Auction, error)
	GetAuctionsBySeller(ctx context.Context, sellerID int64) ([]models.Auction, error)
	HasOpenAuction(ctx context.Context, sellerID int64, now time.Time) (bool, error)
	DeleteAuction(ctx context.Context, id int64) error
	GetBidsByAuction(ctx context.Context, auctionID int64) ([]models.Bid, error)
	PlaceBidTx(ctx context.Context, auctionID, bidderID int64, bidderName string, amount int64, now time.Time) (*models.Bid, error)
	RepublishTx(ctx context.Context, auctionID int64, startTime, endTime, now time.Time) (*models.Auction, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	TopBySpending(ctx context.Context, limit int) ([]models.User, error)
}

// BidEventPublisher publishes bid events, best-effort
type BidEventPublisher interface {
	PublishBidPlaced(ctx context.Context, event *models.BidPlacedEvent) error
}

// AuctionService owns the auction lifecycle: creation, bidding, republish and
// removal. Status is never stored; it is derived from the clock on read.
type AuctionService struct {
	store     AuctionStore
	cache     *redisclient.Client
	publisher BidEventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuctionService creates a new auction service
func NewAuctionService(store AuctionStore, cache *redisclient.Client, publisher BidEventPublisher) *AuctionService {
	return &AuctionService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// CreateAuctionRequest represents a request to list an item
type CreateAuctionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Condition   string `json:"condition" binding:"required"`
	StartingBid int64  `json:"starting_bid" binding:"required,min=1"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	ImageID     string `json:"image_id,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// CreateAuction validates the listing and creates it in Scheduled state.
// A seller may hold at most one auction whose window has not closed.
func (s *AuctionService) CreateAuction(ctx context.Context, sellerID int64, req *CreateAuctionRequest) (*models.Auction, error) {
	ctx, span := util.StartSpan(ctx, "AuctionService.CreateAuction")
	defer span.End()

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" ||
		strings.TrimSpace(req.Category) == "" || strings.TrimSpace(req.Condition) == "" {
		util.AuctionsCreateFailedTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("all auction details are required: %w", aucerrors.ErrValidation)
	}
	if req.StartingBid < 0 {
		util.AuctionsCreateFailedTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("starting bid must not be negative: %w", aucerrors.ErrValidation)
	}

	startTime, endTime, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		util.AuctionsCreateFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	now := s.now()
	if err := validateWindow(startTime, endTime, now); err != nil {
		util.AuctionsCreateFailedTotal.WithLabelValues("scheduling").Inc()
		return nil, err
	}

	open, err := s.store.HasOpenAuction(ctx, sellerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check open auctions: %w", err)
	}
	if open {
		util.AuctionsCreateFailedTotal.WithLabelValues("conflict").Inc()
		return nil, fmt.Errorf("seller %d: %w", sellerID, aucerrors.ErrConflict)
	}

	auction := &models.Auction{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		StartingBid: req.StartingBid,
		StartTime:   startTime,
		EndTime:     endTime,
		SellerID:    sellerID,
		ImageID:     req.ImageID,
		ImageURL:    req.ImageURL,
	}

	if err := s.store.CreateAuction(ctx, auction); err != nil {
		util.AuctionsCreateFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	util.AuctionsCreatedTotal.Inc()
	s.logger.Info("Auction created",
		zap.Int64("auction_id", auction.ID),
		zap.Int64("seller_id", sellerID),
		zap.Time("start_time", startTime),
		zap.Time("end_time", endTime))

	return auction, nil
}

// PlaceBid records a bid against an active auction. The amount must strictly
// exceed the current high bid; the compare-and-update is atomic per auction.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, bidderID int64, amount int64) (*models.Bid, error) {
	ctx, span := util.StartSpan(ctx, "AuctionService.PlaceBid")
	defer span.End()

	if amount <= 0 {
		util.BidsRejectedTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("bid amount must be positive: %w", aucerrors.ErrValidation)
	}

	bidder, err := s.store.GetUserByID(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bidder: %w", err)
	}

	bid, err := s.store.PlaceBidTx(ctx, auctionID, bidderID, bidder.UserName, amount, s.now())
	if err != nil {
		switch {
		case errors.Is(err, aucerrors.ErrNotActive):
			util.BidsRejectedTotal.WithLabelValues("not_active").Inc()
		case errors.Is(err, aucerrors.ErrBidTooLow):
			util.BidsRejectedTotal.WithLabelValues("too_low").Inc()
		}
		return nil, err
	}

	util.BidsPlacedTotal.Inc()

	if s.cache != nil {
		if _, err := s.cache.RaiseHighBid(ctx, auctionID, amount); err != nil {
			s.logger.Warn("Failed to update high bid cache",
				zap.Int64("auction_id", auctionID),
				zap.Error(err))
		}
	}

	if s.publisher != nil {
		event := &models.BidPlacedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeBidPlaced,
				Timestamp: s.now(),
			},
			AuctionID: auctionID,
			BidID:     bid.ID,
			BidderID:  bidderID,
			Amount:    amount,
		}
		if err := s.publisher.PublishBidPlaced(ctx, event); err != nil {
			s.logger.Error("Failed to publish BidPlaced event", zap.Error(err))
		}
	}

	return bid, nil
}

// Republish resets an ended auction to a fresh bidding window. The prior
// winner's accrual is reversed and the seller's outstanding commission from
// the voided auction is forgiven; the bid ledger is wiped.
func (s *AuctionService) Republish(ctx context.Context, auctionID int64, startTimeRaw, endTimeRaw string) (*models.Auction, error) {
	ctx, span := util.StartSpan(ctx, "AuctionService.Republish")
	defer span.End()

	startTime, endTime, err := parseWindow(startTimeRaw, endTimeRaw)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := validateWindow(startTime, endTime, now); err != nil {
		return nil, err
	}

	auction, err := s.store.RepublishTx(ctx, auctionID, startTime, endTime, now)
	if err != nil {
		return nil, err
	}

	util.AuctionsRepublishedTotal.Inc()
	s.logger.Info("Auction republished",
		zap.Int64("auction_id", auctionID),
		zap.Time("start_time", startTime),
		zap.Time("end_time", endTime))

	if s.cache != nil {
		if err := s.cache.ResetHighBid(ctx, auctionID, 0); err != nil {
			s.logger.Warn("Failed to reset high bid cache",
				zap.Int64("auction_id", auctionID),
				zap.Error(err))
		}
	}

	return auction, nil
}

// Remove deletes an auction and its bids unconditionally. Restricting who
// may call this is the caller's concern.
func (s *AuctionService) Remove(ctx context.Context, auctionID int64) error {
	ctx, span := util.StartSpan(ctx, "AuctionService.Remove")
	defer span.End()

	if err := s.store.DeleteAuction(ctx, auctionID); err != nil {
		return err
	}

	util.AuctionsDeletedTotal.Inc()
	s.logger.Info("Auction removed", zap.Int64("auction_id", auctionID))

	if s.cache != nil {
		if err := s.cache.DeleteHighBid(ctx, auctionID); err != nil {
			s.logger.Warn("Failed to drop high bid cache",
				zap.Int64("auction_id", auctionID),
				zap.Error(err))
		}
	}

	return nil
}

// GetAuction retrieves an auction with its bid ledger
func (s *AuctionService) GetAuction(ctx context.Context, auctionID int64) (*models.Auction, []models.Bid, error) {
	auction, err := s.store.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, nil, err
	}

	bids, err := s.store.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, nil, err
	}

	return auction, bids, nil
}

// ListAuctions retrieves all auctions
func (s *AuctionService) ListAuctions(ctx context.Context) ([]models.Auction, error) {
	return s.store.GetAuctions(ctx)
}

// ListSellerAuctions retrieves a seller's auctions
func (s *AuctionService) ListSellerAuctions(ctx context.Context, sellerID int64) ([]models.Auction, error) {
	return s.store.GetAuctionsBySeller(ctx, sellerID)
}

// HighBid returns the current high bid for an auction, serving from the cache
// when it holds a value and falling back to the store.
func (s *AuctionService) HighBid(ctx context.Context, auctionID int64) (int64, error) {
	if s.cache != nil {
		amount, ok, err := s.cache.GetHighBid(ctx, auctionID)
		if err != nil {
			s.logger.Warn("High bid cache read failed, falling back to store",
				zap.Int64("auction_id", auctionID),
				zap.Error(err))
		} else if ok {
			return amount, nil
		}
	}

	auction, err := s.store.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return 0, err
	}
	return auction.CurrentBid, nil
}

// RegisterUserRequest represents a profile registration from the gateway
type RegisterUserRequest struct {
	UserName string `json:"user_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Address  string `json:"address,omitempty"`
	Role     string `json:"role" binding:"required"`
}

// RegisterUser records a participant profile. Credentials live upstream; this
// service only carries the fields settlement and notifications need.
func (s *AuctionService) RegisterUser(ctx context.Context, req *RegisterUserRequest) (*models.User, error) {
	switch req.Role {
	case models.RoleAuctioneer, models.RoleBidder, models.RoleSuperAdmin:
	default:
		return nil, fmt.Errorf("unknown role %q: %w", req.Role, aucerrors.ErrValidation)
	}
	if strings.TrimSpace(req.UserName) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("user name and email are required: %w", aucerrors.ErrValidation)
	}

	user := &models.User{
		UserName: req.UserName,
		Email:    req.Email,
		Address:  req.Address,
		Role:     req.Role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role))
	return user, nil
}

// GetUser retrieves a user with their balances
func (s *AuctionService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// Leaderboard retrieves the highest-spending bidders
func (s *AuctionService) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.store.TopBySpending(ctx, limit)
}

func parseWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
	startTime, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_time must be RFC3339: %w", aucerrors.ErrValidation)
	}
	endTime, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_time must be RFC3339: %w", aucerrors.ErrValidation)
	}
	return startTime, endTime, nil
}

func validateWindow(startTime, endTime, now time.Time) error {
	if !startTime.After(now) {
		return fmt.Errorf("start time must be in the future: %w", aucerrors.ErrScheduling)
	}
	if !endTime.After(startTime) {
		return fmt.Errorf("end time must be after start time: %w", aucerrors.ErrScheduling)
	}
	return nil
}
