package postgres

/*
Файл approval_repo.go — персистентность заявок Human-in-the-loop (HITL).
Заявка никогда не удаляется: терминальный статус — это и есть audit retention.
*/

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

type ApprovalRepo struct {
	db *sql.DB
}

func NewApprovalRepo(connString string) *ApprovalRepo {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		// В main соединение проверяется через Ping
		log.Fatal(err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &ApprovalRepo{db: db}
}

// NewApprovalRepoWithDB — для тестов и разделения пула с другими репо
func NewApprovalRepoWithDB(db *sql.DB) *ApprovalRepo {
	return &ApprovalRepo{db: db}
}

// Ping проверяет доступность базы при старте
func (r *ApprovalRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const approvalColumns = `id, action_id, user_id, action, reasoning, affected_users, expires_at, status, responses, created_at, updated_at`

// CreateApproval создает запись для механизма HITL. Action замораживается
// в jsonb целиком — ревьюер видит ровно то, что будет исполнено.
func (r *ApprovalRepo) CreateApproval(ctx context.Context, req *domain.ApprovalRequest) error {
	actionJSON, err := json.Marshal(req.Action)
	if err != nil {
		return fmt.Errorf("postgres: marshal action: %w", err)
	}
	usersJSON, _ := json.Marshal(req.AffectedUsers)

	query := `INSERT INTO approvals (id, action_id, user_id, action, reasoning, affected_users, expires_at, status, responses, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '[]'::jsonb, NOW(), NOW())`
	_, err = r.db.ExecContext(ctx, query,
		req.ID, req.Action.ID, req.UserID, actionJSON, req.Reasoning, usersJSON, req.ExpiresAt, req.Status,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create approval request: %w", err)
	}
	return nil
}

// GetApprovalByID — детали заявки для ревью
func (r *ApprovalRepo) GetApprovalByID(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE id = $1`
	req, err := scanApproval(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("approval not found: %w", err)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return req, nil
}

// GetApprovalByActionID нужен гейту: повторная подача того же действия —
// запрос на резюме. (nil, nil), если заявки по действию не было.
func (r *ApprovalRepo) GetApprovalByActionID(ctx context.Context, actionID string) (*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE action_id = $1 ORDER BY created_at DESC LIMIT 1`
	req, err := scanApproval(r.db.QueryRowContext(ctx, query, actionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return req, nil
}

// FindApprovals — очередь решений (Decision Queue) с фильтром по статусу
func (r *ApprovalRepo) FindApprovals(ctx context.Context, status domain.ApprovalStatus) ([]*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals`

	var args []interface{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query approvals: %w", err)
	}
	defer rows.Close()

	// Пустой слайс, чтобы в JSON был [] вместо null
	results := make([]*domain.ApprovalRequest, 0)
	for rows.Next() {
		req, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan approval: %w", err)
		}
		results = append(results, req)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

// AppendResponse атомарно дописывает ответ ревьюера в jsonb-массив.
// Guard WHERE status = 'pending' защищает от ответов в терминальную заявку.
func (r *ApprovalRepo) AppendResponse(ctx context.Context, id string, resp domain.ApprovalResponse) error {
	respJSON, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("postgres: marshal response: %w", err)
	}

	query := `
		UPDATE approvals
		SET responses = responses || $1::jsonb,
		    updated_at = NOW()
		WHERE id = $2 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, respJSON, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to append approval response: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Либо ID неверный, либо заявка уже в терминальном статусе
		return domain.ErrAlreadyProcessed
	}
	return nil
}

// UpdateApprovalStatus фиксирует переход state machine. Guard по 'pending'
// исключает Double Decision: из терминального статуса выхода нет.
func (r *ApprovalRepo) UpdateApprovalStatus(ctx context.Context, id string, status domain.ApprovalStatus) error {
	query := `
		UPDATE approvals
		SET status = $1,
		    updated_at = NOW()
		WHERE id = $2 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to update approval status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}

// rowScanner покрывает и *sql.Row, и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApproval(row rowScanner) (*domain.ApprovalRequest, error) {
	var req domain.ApprovalRequest
	var actionID string
	var actionJSON, usersJSON, responsesJSON []byte

	err := row.Scan(
		&req.ID,
		&actionID,
		&req.UserID,
		&actionJSON,
		&req.Reasoning,
		&usersJSON,
		&req.ExpiresAt,
		&req.Status,
		&responsesJSON,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(actionJSON, &req.Action); err != nil {
		return nil, fmt.Errorf("unmarshal frozen action: %w", err)
	}
	_ = json.Unmarshal(usersJSON, &req.AffectedUsers)
	_ = json.Unmarshal(responsesJSON, &req.Responses)
	return &req, nil
}
