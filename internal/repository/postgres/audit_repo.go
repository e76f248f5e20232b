package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	"github.com/xela07ax/teamspace-action-engine/internal/audit"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(connString string) *AuditRepo {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		// В main соединение проверяется через Ping
		log.Fatal(err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &AuditRepo{db: db}
}

func NewAuditRepoWithDB(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Единый список колонок для вставки и выборки: запись и чтение не должны
// разъезжаться по набору полей
const auditColumns = `id, trace_id, kind, action_id, user_id, module, operation, parameters, status, response, error, duration_ms, timestamp`

const auditNumFields = 13

// buildAuditInsert собирает пакетный INSERT и плоский список значений
func buildAuditInsert(events []audit.Event) (string, []interface{}) {
	placeholders := make([]string, 0, len(events))
	vals := make([]interface{}, 0, len(events)*auditNumFields)

	for i, e := range events {
		p := i * auditNumFields
		ph := make([]string, auditNumFields)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", p+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")

		params, _ := json.Marshal(e.Parameters)
		resp, _ := json.Marshal(e.Response)

		vals = append(vals,
			e.ID, e.TraceID, e.Kind, e.ActionID, e.UserID, e.Module, e.Operation,
			params, e.Status, resp, e.Error, e.DurationMs, e.Timestamp,
		)
	}

	query := fmt.Sprintf("INSERT INTO audit_log (%s) VALUES %s",
		auditColumns, strings.Join(placeholders, ","))
	return query, vals
}

// WriteBatch — пакетная вставка записей аудита (Bulk Insert).
// Причина отказа (error) пишется обязательно: FAILED-запись без нее бесполезна.
func (r *AuditRepo) WriteBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	query, vals := buildAuditInsert(events)
	_, err := r.db.ExecContext(ctx, query, vals...)
	return err
}

// FetchLogs — выборка для Observability API с фильтрацией по пользователю и модулю
func (r *AuditRepo) FetchLogs(ctx context.Context, userID, module string) ([]audit.Event, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log`

	var conds []string
	var args []interface{}
	if userID != "" {
		args = append(args, userID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if module != "" {
		args = append(args, module)
		conds = append(conds, fmt.Sprintf("module = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC LIMIT 200"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query audit log: %w", err)
	}
	defer rows.Close()

	events := make([]audit.Event, 0)
	for rows.Next() {
		var e audit.Event
		var params, resp []byte
		err := rows.Scan(&e.ID, &e.TraceID, &e.Kind, &e.ActionID, &e.UserID, &e.Module, &e.Operation,
			&params, &e.Status, &resp, &e.Error, &e.DurationMs, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit row: %w", err)
		}
		_ = json.Unmarshal(params, &e.Parameters)
		_ = json.Unmarshal(resp, &e.Response)
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return events, nil
}
