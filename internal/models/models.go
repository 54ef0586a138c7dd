package models

import "time"

// Auction represents a timed listing accepting bids between StartTime and
// EndTime. CurrentBid and HighestBidderID are denormalized from the bid
// ledger; every change to them corresponds to a row in the bids table.
type Auction struct {
	ID                   int64     `db:"id" json:"id"`
	Title                string    `db:"title" json:"title"`
	Description          string    `db:"description" json:"description"`
	Category             string    `db:"category" json:"category"`
	Condition            string    `db:"condition" json:"condition"`
	StartingBid          int64     `db:"starting_bid" json:"starting_bid"`
	CurrentBid           int64     `db:"current_bid" json:"current_bid"`
	StartTime            time.Time `db:"start_time" json:"start_time"`
	EndTime              time.Time `db:"end_time" json:"end_time"`
	SellerID             int64     `db:"seller_id" json:"seller_id"`
	HighestBidderID      *int64    `db:"highest_bidder_id" json:"highest_bidder_id,omitempty"`
	CommissionCalculated bool      `db:"commission_calculated" json:"commission_calculated"`
	ImageID              string    `db:"image_id" json:"image_id,omitempty"`
	ImageURL             string    `db:"image_url" json:"image_url,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Auction statuses, derived from timestamps rather than stored
const (
	AuctionStatusScheduled = "SCHEDULED"
	AuctionStatusActive    = "ACTIVE"
	AuctionStatusEnded     = "ENDED"
)

// StatusAt derives the auction status from its time window. There is no
// stored status column; any reader computes it against the clock it trusts.
func (a *Auction) StatusAt(now time.Time) string {
	switch {
	case now.Before(a.StartTime):
		return AuctionStatusScheduled
	case now.Before(a.EndTime):
		return AuctionStatusActive
	default:
		return AuctionStatusEnded
	}
}

// Bid is an immutable ledger entry recording one accepted bid
type Bid struct {
	ID         int64     `db:"id" json:"id"`
	AuctionID  int64     `db:"auction_id" json:"auction_id"`
	BidderID   int64     `db:"bidder_id" json:"bidder_id"`
	BidderName string    `db:"bidder_name" json:"bidder_name"`
	Amount     int64     `db:"amount" json:"amount"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// User represents a marketplace participant. UnpaidCommission accrues when
// the user's auctions close with a winner and is decremented by settled
// payment proofs; it never goes negative.
type User struct {
	ID               int64     `db:"id" json:"id"`
	UserName         string    `db:"user_name" json:"user_name"`
	Email            string    `db:"email" json:"email"`
	Address          string    `db:"address" json:"address,omitempty"`
	Role             string    `db:"role" json:"role"`
	UnpaidCommission int64     `db:"unpaid_commission" json:"unpaid_commission"`
	AuctionsWon      int       `db:"auctions_won" json:"auctions_won"`
	MoneySpent       int64     `db:"money_spent" json:"money_spent"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// User roles
const (
	RoleAuctioneer = "AUCTIONEER"
	RoleBidder     = "BIDDER"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// PaymentProof is a seller's claim of having paid owed commission. An admin
// advances it to APPROVED or REJECTED; the settlement pass transitions
// APPROVED proofs to SETTLED exactly once.
type PaymentProof struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Amount    int64     `db:"amount" json:"amount"`
	ProofRef  string    `db:"proof_ref" json:"proof_ref"`
	Comment   string    `db:"comment" json:"comment,omitempty"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Payment proof statuses
const (
	ProofStatusSubmitted = "SUBMITTED"
	ProofStatusApproved  = "APPROVED"
	ProofStatusRejected  = "REJECTED"
	ProofStatusSettled   = "SETTLED"
)

// CommissionEntry is an append-only audit record of a settled payment. It
// records the proof's claimed amount, never mutated or deleted.
type CommissionEntry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Amount    int64     `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
