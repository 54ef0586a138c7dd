package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"auction-service/internal/aucerrors"
	"auction-service/internal/models"
)

// CreateAuction inserts a new auction in its initial state
func (s *Store) CreateAuction(ctx context.Context, auction *models.Auction) error {
	query := `
		INSERT INTO auctions
			(title, description, category, condition, starting_bid, current_bid,
			 start_time, end_time, seller_id, commission_calculated, image_id, image_url)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, FALSE, $9, $10)
		RETURNING id, current_bid, commission_calculated, created_at, updated_at`

	return s.db.GetContext(ctx, auction, query,
		auction.Title, auction.Description, auction.Category, auction.Condition,
		auction.StartingBid, auction.StartTime, auction.EndTime, auction.SellerID,
		auction.ImageID, auction.ImageURL)
}

// GetAuctionByID retrieves an auction by ID
func (s *Store) GetAuctionByID(ctx context.Context, id int64) (*models.Auction, error) {
	var auction models.Auction
	err := s.db.GetContext(ctx, &auction, "SELECT * FROM auctions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("auction %d: %w", id, aucerrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// GetAuctions retrieves all auctions, newest first
func (s *Store) GetAuctions(ctx context.Context) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.SelectContext(ctx, &auctions, "SELECT * FROM auctions ORDER BY created_at DESC")
	return auctions, err
}

// GetAuctionsBySeller retrieves a seller's auctions, newest first
func (s *Store) GetAuctionsBySeller(ctx context.Context, sellerID int64) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.SelectContext(ctx, &auctions,
		"SELECT * FROM auctions WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return auctions, err
}

// HasOpenAuction reports whether a seller already owns an auction whose
// bidding window has not yet closed (Scheduled or Active).
func (s *Store) HasOpenAuction(ctx context.Context, sellerID int64, now time.Time) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM auctions WHERE seller_id = $1 AND end_time > $2)",
		sellerID, now)
	return exists, err
}

// DeleteAuction removes an auction and its bid ledger entries
func (s *Store) DeleteAuction(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM bids WHERE auction_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete bids: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM auctions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete auction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("auction %d: %w", id, aucerrors.ErrNotFound)
	}

	return tx.Commit()
}

// GetBidsByAuction retrieves the bid ledger for an auction, highest first
func (s *Store) GetBidsByAuction(ctx context.Context, auctionID int64) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.db.SelectContext(ctx, &bids,
		"SELECT * FROM bids WHERE auction_id = $1 ORDER BY amount DESC, created_at ASC", auctionID)
	return bids, err
}

// PlaceBidTx records a bid inside a transaction. The auction row is locked
// for the duration so the compare-and-update of current_bid is atomic per
// auction; concurrent bids on the same auction serialize on the row lock.
func (s *Store) PlaceBidTx(ctx context.Context, auctionID, bidderID int64, bidderName string, amount int64, now time.Time) (*models.Bid, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var auction models.Auction
	err = tx.GetContext(ctx, &auction, "SELECT * FROM auctions WHERE id = $1 FOR UPDATE", auctionID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("auction %d: %w", auctionID, aucerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock auction: %w", err)
	}

	if status := auction.StatusAt(now); status != models.AuctionStatusActive {
		return nil, fmt.Errorf("auction %d is %s: %w", auctionID, status, aucerrors.ErrNotActive)
	}
	if amount <= auction.CurrentBid || amount < auction.StartingBid {
		return nil, fmt.Errorf("bid %d on auction %d (current %d, starting %d): %w",
			amount, auctionID, auction.CurrentBid, auction.StartingBid, aucerrors.ErrBidTooLow)
	}

	bid := models.Bid{
		AuctionID:  auctionID,
		BidderID:   bidderID,
		BidderName: bidderName,
		Amount:     amount,
	}
	err = tx.GetContext(ctx, &bid, `
		INSERT INTO bids (auction_id, bidder_id, bidder_name, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		auctionID, bidderID, bidderName, amount, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bid: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE auctions
		SET current_bid = $1, highest_bidder_id = $2, updated_at = NOW()
		WHERE id = $3`,
		amount, bidderID, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to update current bid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &bid, nil
}

// ListEndedUnprocessed retrieves auctions past their end time whose closure
// effects have not been applied yet
func (s *Store) ListEndedUnprocessed(ctx context.Context, now time.Time) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.SelectContext(ctx, &auctions, `
		SELECT * FROM auctions
		WHERE end_time < $1 AND commission_calculated = FALSE
		ORDER BY end_time ASC`, now)
	return auctions, err
}

// FindWinningBid retrieves the bid ledger entry matching the final amount.
// If several bids share the amount the earliest one wins.
func (s *Store) FindWinningBid(ctx context.Context, auctionID, amount int64) (*models.Bid, error) {
	var bid models.Bid
	err := s.db.GetContext(ctx, &bid, `
		SELECT * FROM bids
		WHERE auction_id = $1 AND amount = $2
		ORDER BY created_at ASC, id ASC
		LIMIT 1`, auctionID, amount)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("winning bid for auction %d at %d: %w", auctionID, amount, aucerrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// SettleClosedAuctionTx applies the closure effects for one ended auction.
// The commission_calculated flag is advanced with a conditional update inside
// the transaction, so two overlapping pass runs cannot both claim the same
// auction: the second sees zero rows affected and reports claimed=false.
func (s *Store) SettleClosedAuctionTx(ctx context.Context, auctionID, sellerID int64, winnerID *int64, winAmount, fee int64) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE auctions
		SET commission_calculated = TRUE, highest_bidder_id = $2, updated_at = NOW()
		WHERE id = $1 AND commission_calculated = FALSE`,
		auctionID, winnerID)
	if err != nil {
		return false, fmt.Errorf("failed to claim auction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if winnerID != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET money_spent = money_spent + $1, auctions_won = auctions_won + 1
			WHERE id = $2`,
			winAmount, *winnerID)
		if err != nil {
			return false, fmt.Errorf("failed to credit winner: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET unpaid_commission = unpaid_commission + $1
			WHERE id = $2`,
			fee, sellerID)
		if err != nil {
			return false, fmt.Errorf("failed to accrue commission: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// RepublishTx resets an ended auction to a new bidding window. The prior
// winner's accrual is reversed and the seller's outstanding commission from
// the voided auction is forgiven before the bid ledger is wiped.
func (s *Store) RepublishTx(ctx context.Context, auctionID int64, startTime, endTime, now time.Time) (*models.Auction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var auction models.Auction
	err = tx.GetContext(ctx, &auction, "SELECT * FROM auctions WHERE id = $1 FOR UPDATE", auctionID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("auction %d: %w", auctionID, aucerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock auction: %w", err)
	}

	if auction.StatusAt(now) != models.AuctionStatusEnded {
		return nil, fmt.Errorf("auction %d: %w", auctionID, aucerrors.ErrNotEnded)
	}

	if auction.HighestBidderID != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET money_spent = GREATEST(money_spent - $1, 0),
			    auctions_won = GREATEST(auctions_won - 1, 0)
			WHERE id = $2`,
			auction.CurrentBid, *auction.HighestBidderID)
		if err != nil {
			return nil, fmt.Errorf("failed to reverse winner accrual: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE users SET unpaid_commission = 0 WHERE id = $1", auction.SellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to forgive commission: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM bids WHERE auction_id = $1", auctionID); err != nil {
		return nil, fmt.Errorf("failed to clear bids: %w", err)
	}

	err = tx.GetContext(ctx, &auction, `
		UPDATE auctions
		SET start_time = $1, end_time = $2, current_bid = 0,
		    highest_bidder_id = NULL, commission_calculated = FALSE, updated_at = NOW()
		WHERE id = $3
		RETURNING *`,
		startTime, endTime, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to reset auction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &auction, nil
}
