package store

import (
	"context"
	"database/sql"
	"fmt"

	"auction-service/internal/aucerrors"
	"auction-service/internal/models"
)

// CreateUser inserts a new user with zeroed balances
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (user_name, email, address, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, unpaid_commission, auctions_won, money_spent, created_at`

	return s.db.GetContext(ctx, user, query,
		user.UserName, user.Email, user.Address, user.Role)
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, aucerrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// TopBySpending retrieves the highest-spending bidders
func (s *Store) TopBySpending(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := s.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE money_spent > 0
		ORDER BY money_spent DESC, id ASC
		LIMIT $1`, limit)
	return users, err
}
