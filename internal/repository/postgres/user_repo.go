package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(connString string) *UserRepo {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		log.Fatal(err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &UserRepo{db: db}
}

func NewUserRepoWithDB(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUserByUsername — источник правды для выдачи токенов
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT id, email, username, password_hash, role, scopes, created_at, updated_at
	          FROM users WHERE username = $1`

	var u domain.User
	var scopesJSON []byte
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &scopesJSON, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to fetch user: %w", err)
	}

	_ = json.Unmarshal(scopesJSON, &u.Scopes)
	return &u, nil
}
