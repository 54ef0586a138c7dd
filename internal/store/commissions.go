package store

import (
	"context"
	"database/sql"
	"fmt"

	"auction-service/internal/aucerrors"
	"auction-service/internal/models"
)

// CreatePaymentProof inserts a new proof in SUBMITTED state
func (s *Store) CreatePaymentProof(ctx context.Context, proof *models.PaymentProof) error {
	query := `
		INSERT INTO payment_proofs (user_id, amount, proof_ref, comment, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	proof.Status = models.ProofStatusSubmitted
	return s.db.GetContext(ctx, proof, query,
		proof.UserID, proof.Amount, proof.ProofRef, proof.Comment, proof.Status)
}

// GetPaymentProofByID retrieves a proof by ID
func (s *Store) GetPaymentProofByID(ctx context.Context, id int64) (*models.PaymentProof, error) {
	var proof models.PaymentProof
	err := s.db.GetContext(ctx, &proof, "SELECT * FROM payment_proofs WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment proof %d: %w", id, aucerrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

// ListProofsByUser retrieves a user's proofs, newest first
func (s *Store) ListProofsByUser(ctx context.Context, userID int64) ([]models.PaymentProof, error) {
	var proofs []models.PaymentProof
	err := s.db.SelectContext(ctx, &proofs,
		"SELECT * FROM payment_proofs WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return proofs, err
}

// ListApprovedProofs retrieves proofs awaiting settlement
func (s *Store) ListApprovedProofs(ctx context.Context) ([]models.PaymentProof, error) {
	var proofs []models.PaymentProof
	err := s.db.SelectContext(ctx, &proofs,
		"SELECT * FROM payment_proofs WHERE status = $1 ORDER BY created_at ASC",
		models.ProofStatusApproved)
	return proofs, err
}

// ReviewProof advances a SUBMITTED proof to APPROVED or REJECTED. The update
// is conditional on the current status so a proof cannot be re-reviewed.
func (s *Store) ReviewProof(ctx context.Context, id int64, status, comment string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_proofs
		SET status = $2, comment = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, status, comment, models.ProofStatusSubmitted)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("payment proof %d not awaiting review: %w", id, aucerrors.ErrNotFound)
	}
	return nil
}

// SettleProofTx settles one approved proof. The status transition is a
// conditional update inside the transaction, so overlapping settlement passes
// cannot both decrement the balance for the same proof. The balance decrement
// clamps at zero; a proof larger than the outstanding commission forgives the
// shortfall. Returns the remaining unpaid commission when settled.
func (s *Store) SettleProofTx(ctx context.Context, proofID, userID, amount int64) (bool, int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE payment_proofs
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		proofID, models.ProofStatusSettled, models.ProofStatusApproved)
	if err != nil {
		return false, 0, fmt.Errorf("failed to claim proof: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, 0, nil
	}

	var remaining int64
	err = tx.GetContext(ctx, &remaining, `
		UPDATE users
		SET unpaid_commission = GREATEST(unpaid_commission - $1, 0)
		WHERE id = $2
		RETURNING unpaid_commission`,
		amount, userID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to decrement commission: %w", err)
	}

	// The ledger records the claimed amount, not the clamped delta.
	_, err = tx.ExecContext(ctx,
		"INSERT INTO commissions (user_id, amount) VALUES ($1, $2)", userID, amount)
	if err != nil {
		return false, 0, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	return true, remaining, nil
}

// ListCommissionEntries retrieves a user's settled-commission audit trail
func (s *Store) ListCommissionEntries(ctx context.Context, userID int64) ([]models.CommissionEntry, error) {
	var entries []models.CommissionEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM commissions WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return entries, err
}
