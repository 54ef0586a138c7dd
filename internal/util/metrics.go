package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuctionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_created_total",
		Help: "Total number of auctions created",
	})

	AuctionsCreateFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auctions_create_failed_total",
		Help: "Total number of rejected auction creations",
	}, []string{"reason"})

	AuctionsRepublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_republished_total",
		Help: "Total number of auctions reset to a new bidding window",
	})

	AuctionsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_deleted_total",
		Help: "Total number of auctions deleted",
	})

	BidsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bids_placed_total",
		Help: "Total number of accepted bids",
	})

	BidsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bids_rejected_total",
		Help: "Total number of rejected bids",
	}, []string{"reason"})

	AuctionsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_closed_total",
		Help: "Total number of ended auctions processed by the closure pass",
	})

	AuctionsClosedNoBidsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_closed_no_bids_total",
		Help: "Total number of auctions closed without any bids",
	})

	ClosureItemFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closure_item_failures_total",
		Help: "Total number of per-auction failures in the closure pass",
	})

	CommissionAccruedCents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commission_accrued_cents_total",
		Help: "Total commission accrued to sellers, in cents",
	})

	ProofsSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_proofs_settled_total",
		Help: "Total number of payment proofs settled",
	})

	SettlementItemFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_item_failures_total",
		Help: "Total number of per-proof failures in the settlement pass",
	})

	CommissionSettledCents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commission_settled_cents_total",
		Help: "Total commission settled against seller balances, in cents",
	})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconciler_pass_duration_seconds",
		Help:    "Duration of reconciler passes",
		Buckets: prometheus.DefBuckets,
	}, []string{"pass"})

	NotificationsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_published_total",
		Help: "Total number of notification messages published",
	})

	NotificationsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Total number of notification messages dropped after a delivery or publish failure",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
