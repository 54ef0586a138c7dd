package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-service/internal/aucerrors"
	"auction-service/internal/models"
	"auction-service/internal/notify"
	"auction-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettlementStore is the persistence surface the reconciler needs
type SettlementStore interface {
	ListEndedUnprocessed(ctx context.Context, now time.Time) ([]models.Auction, error)
	FindWinningBid(ctx context.Context, auctionID, amount int64) (*models.Bid, error)
	SettleClosedAuctionTx(ctx context.Context, auctionID, sellerID int64, winnerID *int64, winAmount, fee int64) (bool, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreatePaymentProof(ctx context.Context, proof *models.PaymentProof) error
	GetPaymentProofByID(ctx context.Context, id int64) (*models.PaymentProof, error)
	ListProofsByUser(ctx context.Context, userID int64) ([]models.PaymentProof, error)
	ListApprovedProofs(ctx context.Context) ([]models.PaymentProof, error)
	ReviewProof(ctx context.Context, id int64, status, comment string) error
	SettleProofTx(ctx context.Context, proofID, userID, amount int64) (bool, int64, error)
	ListCommissionEntries(ctx context.Context, userID int64) ([]models.CommissionEntry, error)
}

// SettlementPublisher publishes settlement events, best-effort
type SettlementPublisher interface {
	PublishAuctionClosed(ctx context.Context, event *models.AuctionClosedEvent) error
	PublishCommissionSettled(ctx context.Context, event *models.CommissionSettledEvent) error
}

// SettlementService runs the two reconciler passes and owns the payment-proof
// workflow. All mutable state lives in the store; the passes take no input
// beyond the clock, which makes them restartable and directly testable.
type SettlementService struct {
	store      SettlementStore
	calc       *CommissionCalculator
	publisher  SettlementPublisher
	dispatcher notify.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	store SettlementStore,
	calc *CommissionCalculator,
	publisher SettlementPublisher,
	dispatcher notify.Dispatcher,
) *SettlementService {
	return &SettlementService{
		store:      store,
		calc:       calc,
		publisher:  publisher,
		dispatcher: dispatcher,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// RunClosurePass applies winner and commission effects to every auction past
// its end time that has not been processed. Per-auction failures are logged
// and skipped; a failed auction stays eligible for the next tick because its
// guard flag was not advanced.
func (s *SettlementService) RunClosurePass(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "SettlementService.RunClosurePass")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PassDuration.WithLabelValues("closure").Observe(time.Since(start).Seconds())
	}()

	now := s.now()
	auctions, err := s.store.ListEndedUnprocessed(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list ended auctions: %w", err)
	}

	s.logger.Info("Closure pass started", zap.Int("eligible", len(auctions)))

	for i := range auctions {
		if err := s.closeAuction(ctx, &auctions[i]); err != nil {
			util.ClosureItemFailuresTotal.Inc()
			s.logger.Error("Failed to close auction",
				zap.Int64("auction_id", auctions[i].ID),
				zap.Int64("seller_id", auctions[i].SellerID),
				zap.Int64("current_bid", auctions[i].CurrentBid),
				zap.Error(err))
		}
	}

	return nil
}

// closeAuction settles one ended auction: conditional claim of the guard
// flag, winner lookup, balance increments, then best-effort messaging.
func (s *SettlementService) closeAuction(ctx context.Context, auction *models.Auction) error {
	fee := s.calc.Commission(auction.CurrentBid)

	var winner *models.Bid
	if auction.CurrentBid > 0 {
		var err error
		winner, err = s.store.FindWinningBid(ctx, auction.ID, auction.CurrentBid)
		if err != nil && !errors.Is(err, aucerrors.ErrNotFound) {
			return fmt.Errorf("winner lookup failed: %w", err)
		}
	}

	var winnerID *int64
	var winAmount int64
	if winner != nil {
		winnerID = &winner.BidderID
		winAmount = winner.Amount
	}

	claimed, err := s.store.SettleClosedAuctionTx(ctx, auction.ID, auction.SellerID, winnerID, winAmount, fee)
	if err != nil {
		return err
	}
	if !claimed {
		// Another pass run got here first.
		s.logger.Debug("Auction already processed", zap.Int64("auction_id", auction.ID))
		return nil
	}

	util.AuctionsClosedTotal.Inc()
	if winner == nil {
		util.AuctionsClosedNoBidsTotal.Inc()
		s.logger.Info("Auction closed without bids", zap.Int64("auction_id", auction.ID))
		return nil
	}

	util.CommissionAccruedCents.Add(float64(fee))
	s.logger.Info("Auction closed",
		zap.Int64("auction_id", auction.ID),
		zap.Int64("winner_id", winner.BidderID),
		zap.Int64("win_amount", winAmount),
		zap.Int64("fee", fee))

	if s.publisher != nil {
		event := &models.AuctionClosedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeAuctionClosed,
				Timestamp: s.now(),
			},
			AuctionID: auction.ID,
			SellerID:  auction.SellerID,
			WinnerID:  winnerID,
			WinAmount: winAmount,
			Fee:       fee,
		}
		if err := s.publisher.PublishAuctionClosed(ctx, event); err != nil {
			s.logger.Error("Failed to publish AuctionClosed event", zap.Error(err))
		}
	}

	s.notifyWinner(ctx, auction, winner)
	return nil
}

// notifyWinner emails the winning bidder. Failures here are terminal for the
// delivery attempt and never affect the already-committed settlement.
func (s *SettlementService) notifyWinner(ctx context.Context, auction *models.Auction, winner *models.Bid) {
	bidder, err := s.store.GetUserByID(ctx, winner.BidderID)
	if err != nil {
		s.logger.Warn("Winner lookup for notification failed",
			zap.Int64("auction_id", auction.ID),
			zap.Int64("bidder_id", winner.BidderID),
			zap.Error(err))
		return
	}

	seller, err := s.store.GetUserByID(ctx, auction.SellerID)
	if err != nil {
		s.logger.Warn("Seller lookup for notification failed",
			zap.Int64("auction_id", auction.ID),
			zap.Int64("seller_id", auction.SellerID),
			zap.Error(err))
		return
	}

	subject := fmt.Sprintf("Congratulations! You won the auction for %s", auction.Title)
	body := fmt.Sprintf(
		"Dear %s,\n\nCongratulations! You have won the auction for %s with a bid of %s.\n\n"+
			"Before proceeding with payment, contact your auctioneer at %s to arrange it.\n"+
			"Once the payment is confirmed, the item will be shipped to you.\n\n"+
			"Thank you for participating!",
		bidder.UserName, auction.Title, formatCents(winner.Amount), seller.Email)

	s.dispatcher.Notify(ctx, bidder.Email, subject, body, "")
}

// RunSettlementPass reconciles approved payment proofs against seller
// balances. Per-proof failures are logged and skipped.
func (s *SettlementService) RunSettlementPass(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "SettlementService.RunSettlementPass")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PassDuration.WithLabelValues("settlement").Observe(time.Since(start).Seconds())
	}()

	proofs, err := s.store.ListApprovedProofs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list approved proofs: %w", err)
	}

	s.logger.Info("Settlement pass started", zap.Int("eligible", len(proofs)))

	for i := range proofs {
		if err := s.settleProof(ctx, &proofs[i]); err != nil {
			util.SettlementItemFailuresTotal.Inc()
			s.logger.Error("Failed to settle proof",
				zap.Int64("proof_id", proofs[i].ID),
				zap.Int64("user_id", proofs[i].UserID),
				zap.Int64("amount", proofs[i].Amount),
				zap.Error(err))
		}
	}

	return nil
}

// settleProof settles one approved proof: conditional status transition,
// clamped balance decrement and ledger append in one transaction, then
// best-effort messaging.
func (s *SettlementService) settleProof(ctx context.Context, proof *models.PaymentProof) error {
	user, err := s.store.GetUserByID(ctx, proof.UserID)
	if err != nil {
		return fmt.Errorf("proof owner lookup failed: %w", err)
	}

	settled, remaining, err := s.store.SettleProofTx(ctx, proof.ID, proof.UserID, proof.Amount)
	if err != nil {
		return err
	}
	if !settled {
		s.logger.Debug("Proof already settled", zap.Int64("proof_id", proof.ID))
		return nil
	}

	util.ProofsSettledTotal.Inc()
	util.CommissionSettledCents.Add(float64(proof.Amount))
	s.logger.Info("Commission settled",
		zap.Int64("proof_id", proof.ID),
		zap.Int64("user_id", proof.UserID),
		zap.Int64("amount", proof.Amount),
		zap.Int64("remaining_unpaid", remaining))

	if s.publisher != nil {
		event := &models.CommissionSettledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCommissionSettled,
				Timestamp: s.now(),
			},
			ProofID:         proof.ID,
			UserID:          proof.UserID,
			Amount:          proof.Amount,
			RemainingUnpaid: remaining,
		}
		if err := s.publisher.PublishCommissionSettled(ctx, event); err != nil {
			s.logger.Error("Failed to publish CommissionSettled event", zap.Error(err))
		}
	}

	subject := "Commission Payment Confirmation"
	body := fmt.Sprintf(
		"Dear %s,\n\nYour commission payment of %s has been processed successfully.\n\n"+
			"Settlement Details:\n- Amount Settled: %s\n- Remaining Unpaid Commission: %s\n- Settlement Date: %s\n\n"+
			"Thank you for your payment!",
		user.UserName, formatCents(proof.Amount), formatCents(proof.Amount),
		formatCents(remaining), s.now().Format("Jan 2, 2006"))
	s.dispatcher.Notify(ctx, user.Email, subject, body, "")

	return nil
}

// SubmitProof records a seller's payment claim for admin review
func (s *SettlementService) SubmitProof(ctx context.Context, userID, amount int64, proofRef, comment string) (*models.PaymentProof, error) {
	ctx, span := util.StartSpan(ctx, "SettlementService.SubmitProof")
	defer span.End()

	if amount <= 0 {
		return nil, fmt.Errorf("proof amount must be positive: %w", aucerrors.ErrValidation)
	}
	if proofRef == "" {
		return nil, fmt.Errorf("payment evidence is required: %w", aucerrors.ErrValidation)
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	proof := &models.PaymentProof{
		UserID:   userID,
		Amount:   amount,
		ProofRef: proofRef,
		Comment:  comment,
	}
	if err := s.store.CreatePaymentProof(ctx, proof); err != nil {
		return nil, fmt.Errorf("failed to create payment proof: %w", err)
	}

	s.logger.Info("Payment proof submitted",
		zap.Int64("proof_id", proof.ID),
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount))
	return proof, nil
}

// ReviewProof advances a submitted proof to approved or rejected
func (s *SettlementService) ReviewProof(ctx context.Context, proofID int64, approve bool, comment string) error {
	ctx, span := util.StartSpan(ctx, "SettlementService.ReviewProof")
	defer span.End()

	status := models.ProofStatusRejected
	if approve {
		status = models.ProofStatusApproved
	}

	if err := s.store.ReviewProof(ctx, proofID, status, comment); err != nil {
		return err
	}

	s.logger.Info("Payment proof reviewed",
		zap.Int64("proof_id", proofID),
		zap.String("status", status))
	return nil
}

// ListProofs retrieves a user's payment proofs
func (s *SettlementService) ListProofs(ctx context.Context, userID int64) ([]models.PaymentProof, error) {
	return s.store.ListProofsByUser(ctx, userID)
}

// ListCommissions retrieves a user's settled-commission audit trail
func (s *SettlementService) ListCommissions(ctx context.Context, userID int64) ([]models.CommissionEntry, error) {
	return s.store.ListCommissionEntries(ctx, userID)
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
