package models

import "time"

// Event types
const (
	EventTypeBidPlaced         = "BID_PLACED"
	EventTypeAuctionClosed     = "AUCTION_CLOSED"
	EventTypeCommissionSettled = "COMMISSION_SETTLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BidPlacedEvent published when a bid is accepted as the new high
type BidPlacedEvent struct {
	BaseEvent
	AuctionID int64 `json:"auction_id"`
	BidID     int64 `json:"bid_id"`
	BidderID  int64 `json:"bidder_id"`
	Amount    int64 `json:"amount"`
}

// AuctionClosedEvent published after the closure pass has applied winner and
// commission effects to an ended auction
type AuctionClosedEvent struct {
	BaseEvent
	AuctionID int64  `json:"auction_id"`
	SellerID  int64  `json:"seller_id"`
	WinnerID  *int64 `json:"winner_id,omitempty"`
	WinAmount int64  `json:"win_amount"`
	Fee       int64  `json:"fee"`
}

// CommissionSettledEvent published after an approved payment proof has been
// reconciled against the seller's balance
type CommissionSettledEvent struct {
	BaseEvent
	ProofID         int64 `json:"proof_id"`
	UserID          int64 `json:"user_id"`
	Amount          int64 `json:"amount"`
	RemainingUnpaid int64 `json:"remaining_unpaid"`
}

// NotificationMessage is the payload carried on the notifications topic.
// Delivery is best-effort; the producer never waits on the outcome.
type NotificationMessage struct {
	MessageID string    `json:"message_id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	HTMLBody  string    `json:"html_body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
