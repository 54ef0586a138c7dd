package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"auction-service/internal/aucerrors"
	"auction-service/internal/models"
	"auction-service/internal/service"
	"auction-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Principal is the authenticated caller, supplied by the upstream gateway.
// The service trusts these headers; authentication happens elsewhere.
type Principal struct {
	UserID int64
	Role   string
}

// Handler contains HTTP handlers
type Handler struct {
	auctions   *service.AuctionService
	settlement *service.SettlementService
}

// NewHandler creates a new HTTP handler
func NewHandler(auctions *service.AuctionService, settlement *service.SettlementService) *Handler {
	return &Handler{
		auctions:   auctions,
		settlement: settlement,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/auctions", h.listAuctions)
		v1.GET("/auctions/:id", h.getAuction)
		v1.GET("/auctions/:id/highbid", h.getHighBid)
		v1.POST("/auctions", h.createAuction)
		v1.POST("/auctions/:id/bids", h.placeBid)
		v1.PUT("/auctions/:id/republish", h.republishAuction)
		v1.DELETE("/auctions/:id", h.removeAuction)

		v1.GET("/auctions/mine", h.listMyAuctions)

		v1.POST("/proofs", h.submitProof)
		v1.GET("/proofs/mine", h.listMyProofs)
		v1.PUT("/proofs/:id/review", h.reviewProof)

		v1.POST("/users", h.registerUser)
		v1.GET("/users/:id", h.getUser)
		v1.GET("/users/:id/commissions", h.listCommissions)
		v1.GET("/leaderboard", h.leaderboard)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createAuction handles auction creation by a seller
func (h *Handler) createAuction(c *gin.Context) {
	principal, ok := h.requireRole(c, models.RoleAuctioneer)
	if !ok {
		return
	}

	var req service.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	auction, err := h.auctions.CreateAuction(c.Request.Context(), principal.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"auction": auction,
		"status":  auction.StatusAt(time.Now()),
	})
}

// listAuctions handles listing all auctions
func (h *Handler) listAuctions(c *gin.Context) {
	auctions, err := h.auctions.ListAuctions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctions})
}

// listMyAuctions handles listing the caller's auctions
func (h *Handler) listMyAuctions(c *gin.Context) {
	principal, ok := h.requireRole(c, models.RoleAuctioneer)
	if !ok {
		return
	}

	auctions, err := h.auctions.ListSellerAuctions(c.Request.Context(), principal.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctions})
}

// getAuction handles auction detail with its bid history
func (h *Handler) getAuction(c *gin.Context) {
	auctionID, ok := pathID(c)
	if !ok {
		return
	}

	auction, bids, err := h.auctions.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"auction": auction,
		"status":  auction.StatusAt(time.Now()),
		"bids":    bids,
	})
}

// getHighBid handles the current-high-bid fast path
func (h *Handler) getHighBid(c *gin.Context) {
	auctionID, ok := pathID(c)
	if !ok {
		return
	}

	amount, err := h.auctions.HighBid(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auction_id": auctionID, "current_bid": amount})
}

// placeBid handles bid placement
func (h *Handler) placeBid(c *gin.Context) {
	principal, ok := h.requireRole(c, models.RoleBidder)
	if !ok {
		return
	}

	auctionID, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Amount int64 `json:"amount" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	bid, err := h.auctions.PlaceBid(c.Request.Context(), auctionID, principal.UserID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"bid": bid})
}

// republishAuction handles resetting an ended auction to a new window
func (h *Handler) republishAuction(c *gin.Context) {
	principal, ok := h.requireRole(c, models.RoleAuctioneer)
	if !ok {
		return
	}

	auctionID, ok := pathID(c)
	if !ok {
		return
	}

	if !h.requireOwnership(c, auctionID, principal) {
		return
	}

	var req struct {
		StartTime string `json:"start_time" binding:"required"`
		EndTime   string `json:"end_time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	auction, err := h.auctions.Republish(c.Request.Context(), auctionID, req.StartTime, req.EndTime)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"auction": auction})
}

// removeAuction handles auction deletion by the owner or an admin
func (h *Handler) removeAuction(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	auctionID, ok := pathID(c)
	if !ok {
		return
	}

	if principal.Role != models.RoleSuperAdmin && !h.requireOwnership(c, auctionID, principal) {
		return
	}

	if err := h.auctions.Remove(c.Request.Context(), auctionID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Auction deleted"})
}

// submitProof handles a seller's payment-proof submission
func (h *Handler) submitProof(c *gin.Context) {
	principal, ok := h.requireRole(c, models.RoleAuctioneer)
	if !ok {
		return
	}

	var req struct {
		Amount   int64  `json:"amount" binding:"required,min=1"`
		ProofRef string `json:"proof_ref" binding:"required"`
		Comment  string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	proof, err := h.settlement.SubmitProof(c.Request.Context(), principal.UserID, req.Amount, req.ProofRef, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"proof": proof})
}

// listMyProofs handles listing the caller's payment proofs
func (h *Handler) listMyProofs(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	proofs, err := h.settlement.ListProofs(c.Request.Context(), principal.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proofs": proofs})
}

// reviewProof handles admin approval or rejection of a proof
func (h *Handler) reviewProof(c *gin.Context) {
	if _, ok := h.requireRole(c, models.RoleSuperAdmin); !ok {
		return
	}

	proofID, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Approve bool   `json:"approve"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.settlement.ReviewProof(c.Request.Context(), proofID, req.Approve, req.Comment); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proof reviewed"})
}

// registerUser handles profile registration forwarded by the gateway
func (h *Handler) registerUser(c *gin.Context) {
	var req service.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	user, err := h.auctions.RegisterUser(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// getUser handles user detail with balances
func (h *Handler) getUser(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.auctions.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// listCommissions handles a user's settled-commission audit trail
func (h *Handler) listCommissions(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}

	entries, err := h.settlement.ListCommissions(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commissions": entries})
}

// leaderboard handles the top-spenders listing
func (h *Handler) leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	users, err := h.auctions.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": users})
}

// principal extracts the authenticated caller from the gateway headers
func (h *Handler) principal(c *gin.Context) (Principal, bool) {
	userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid principal"})
		return Principal{}, false
	}

	role := c.GetHeader("X-User-Role")
	if role == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing principal role"})
		return Principal{}, false
	}

	return Principal{UserID: userID, Role: role}, true
}

// requireRole extracts the principal and enforces a role
func (h *Handler) requireRole(c *gin.Context, role string) (Principal, bool) {
	principal, ok := h.principal(c)
	if !ok {
		return Principal{}, false
	}

	if principal.Role != role && principal.Role != models.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
		return Principal{}, false
	}
	return principal, true
}

// requireOwnership checks the auction belongs to the caller
func (h *Handler) requireOwnership(c *gin.Context, auctionID int64, principal Principal) bool {
	auction, _, err := h.auctions.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return false
	}

	if auction.SellerID != principal.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not the auction owner"})
		return false
	}
	return true
}

// pathID parses the :id path parameter
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// respondError maps business errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, aucerrors.ErrValidation),
		errors.Is(err, aucerrors.ErrScheduling),
		errors.Is(err, aucerrors.ErrBidTooLow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, aucerrors.ErrConflict),
		errors.Is(err, aucerrors.ErrNotActive),
		errors.Is(err, aucerrors.ErrNotEnded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, aucerrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "details": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
