package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"participation-service/internal/domain/requests"
)

const uniqueViolation = "23505"

// RequestsRepo implementa requests.Repository sobre participation_requests.
type RequestsRepo struct {
	db *sql.DB
}

var _ requests.Repository = (*RequestsRepo)(nil)

func NewRequestsRepo(db *sql.DB) *RequestsRepo {
	return &RequestsRepo{db: db}
}

const requestColumns = `id, requester_id, event_id, status, created_at, updated_at`

// querier es lo común entre *sql.DB y *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *RequestsRepo) GetByID(ctx context.Context, id string) (requests.Request, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return requests.Request{}, fmt.Errorf("request %s: %w", id, requests.ErrNotFound)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM participation_requests
		WHERE id = $1
	`, id)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return requests.Request{}, fmt.Errorf("request %s: %w", id, requests.ErrNotFound)
		}
		return requests.Request{}, err
	}
	return req, nil
}

func (r *RequestsRepo) ListByRequester(ctx context.Context, requesterID string) ([]requests.Request, error) {
	return queryRequests(ctx, r.db, `
		SELECT `+requestColumns+`
		FROM participation_requests
		WHERE requester_id = $1
		ORDER BY created_at ASC, id ASC
	`, requesterID)
}

func (r *RequestsRepo) ListByEvent(ctx context.Context, eventID string) ([]requests.Request, error) {
	return queryRequests(ctx, r.db, `
		SELECT `+requestColumns+`
		FROM participation_requests
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC
	`, eventID)
}

func (r *RequestsRepo) GetActive(ctx context.Context, requesterID, eventID string) (requests.Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM participation_requests
		WHERE requester_id = $1 AND event_id = $2 AND status <> 'CANCELED'
		ORDER BY created_at DESC
		LIMIT 1
	`, requesterID, eventID)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return requests.Request{}, fmt.Errorf("no active request of %s for event %s: %w", requesterID, eventID, requests.ErrNotFound)
		}
		return requests.Request{}, err
	}
	return req, nil
}

func (r *RequestsRepo) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	return countConfirmed(ctx, r.db, eventID)
}

func (r *RequestsRepo) CountConfirmedByEvents(ctx context.Context, eventIDs []string) (map[string]int, error) {
	out := map[string]int{}
	if len(eventIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, COUNT(*)
		FROM participation_requests
		WHERE event_id = ANY($1) AND status = 'CONFIRMED'
		GROUP BY event_id
	`, eventIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// InEventTx abre una transacción y toma un advisory lock transaccional por evento.
// Otro InEventTx sobre el mismo evento espera hasta el commit/rollback.
func (r *RequestsRepo) InEventTx(ctx context.Context, eventID string, fn func(tx requests.EventTx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = sqlTx.Rollback() }()

	if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, eventID); err != nil {
		return fmt.Errorf("lock event %s: %w", eventID, err)
	}

	if err := fn(&pgTx{tx: sqlTx, eventID: eventID}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type pgTx struct {
	tx      *sql.Tx
	eventID string
}

func (t *pgTx) HasActiveRequest(ctx context.Context, requesterID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM participation_requests
			WHERE event_id = $1 AND requester_id = $2 AND status <> 'CANCELED'
		)
	`, t.eventID, requesterID).Scan(&exists)
	return exists, err
}

func (t *pgTx) CountConfirmed(ctx context.Context) (int, error) {
	return countConfirmed(ctx, t.tx, t.eventID)
}

func (t *pgTx) GetByIDs(ctx context.Context, ids []string) ([]requests.Request, error) {
	valid := validUUIDs(ids)
	if len(valid) == 0 {
		return []requests.Request{}, nil
	}

	found, err := queryRequests(ctx, t.tx, `
		SELECT `+requestColumns+`
		FROM participation_requests
		WHERE event_id = $1 AND id = ANY($2::uuid[])
	`, t.eventID, valid)
	if err != nil {
		return nil, err
	}

	// mismo orden que ids
	byID := make(map[string]requests.Request, len(found))
	for _, req := range found {
		byID[req.ID] = req
	}
	out := make([]requests.Request, 0, len(found))
	for _, id := range valid {
		if req, ok := byID[id]; ok {
			out = append(out, req)
		}
	}
	return out, nil
}

func (t *pgTx) Insert(ctx context.Context, req requests.Request) error {
	if req.EventID != t.eventID {
		return fmt.Errorf("request %s belongs to event %s, tx is scoped to %s", req.ID, req.EventID, t.eventID)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO participation_requests (`+requestColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		req.ID,
		req.RequesterID,
		req.EventID,
		string(req.Status),
		req.CreatedAt,
		req.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return requests.ErrDuplicateRequest
	}
	return err
}

func (t *pgTx) SetStatus(ctx context.Context, ids []string, status requests.Status, at time.Time) error {
	valid := validUUIDs(ids)
	if len(valid) != len(ids) {
		return fmt.Errorf("set status: %w", requests.ErrNotFound)
	}
	if len(valid) == 0 {
		return nil
	}

	res, err := t.tx.ExecContext(ctx, `
		UPDATE participation_requests
		SET status = $3, updated_at = $4
		WHERE event_id = $1 AND id = ANY($2::uuid[])
	`, t.eventID, valid, string(status), at)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if int(n) != len(valid) {
		return fmt.Errorf("set status: %d of %d rows: %w", n, len(valid), requests.ErrNotFound)
	}
	return nil
}

func (t *pgTx) RejectPending(ctx context.Context, at time.Time) (int, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE participation_requests
		SET status = 'REJECTED', updated_at = $2
		WHERE event_id = $1 AND status = 'PENDING'
	`, t.eventID, at)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func countConfirmed(ctx context.Context, q querier, eventID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM participation_requests
		WHERE event_id = $1 AND status = 'CONFIRMED'
	`, eventID).Scan(&n)
	return n, err
}

func queryRequests(ctx context.Context, q querier, query string, args ...any) ([]requests.Request, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]requests.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(s scanner) (requests.Request, error) {
	var req requests.Request
	var status string
	if err := s.Scan(
		&req.ID,
		&req.RequesterID,
		&req.EventID,
		&status,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return requests.Request{}, err
	}
	req.Status = requests.Status(status)
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	return req, nil
}

// validUUIDs descarta ids que no son UUID (no pueden existir en la tabla).
func validUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}
