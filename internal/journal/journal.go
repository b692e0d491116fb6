// Package journal records the outcome of every reservation mutation made from this client.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/example/rezzydesk/internal/db"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpCancel Op = "cancel"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Entry struct {
	ID            int64
	Op            Op
	ReservationID int64
	Username      string
	Outcome       string
	Detail        string
	Request       json.RawMessage
	CreatedAt     time.Time
}

// Filter narrows List. Zero values are ignored; Limit defaults to 50.
type Filter struct {
	Op            Op
	ReservationID int64
	Username      string
	Since         time.Time
	Limit         uint64
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Repo struct {
	db *db.DB
}

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Record(ctx context.Context, e Entry) error {
	sql, args, err := insertQuery(e)
	if err != nil {
		return err
	}
	if err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Entry, error) {
	sql, args, err := listQuery(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			resID *int64
			req   []byte
		)
		if err := rows.Scan(&e.ID, &e.Op, &resID, &e.Username, &e.Outcome, &e.Detail, &req, &e.CreatedAt); err != nil {
			return nil, db.WrapNotFound(err)
		}
		if resID != nil {
			e.ReservationID = *resID
		}
		e.Request = req
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertQuery(e Entry) (string, []interface{}, error) {
	var resID interface{}
	if e.ReservationID > 0 {
		resID = e.ReservationID
	}
	var req interface{}
	if len(e.Request) > 0 {
		req = string(e.Request)
	}
	return psql.Insert("mutation_journal").
		Columns("op", "reservation_id", "username", "outcome", "detail", "request").
		Values(string(e.Op), resID, e.Username, e.Outcome, e.Detail, req).
		ToSql()
}

func listQuery(f Filter) (string, []interface{}, error) {
	q := psql.Select("id", "op", "reservation_id", "username", "outcome", "detail", "request", "created_at").
		From("mutation_journal").
		OrderBy("created_at DESC", "id DESC")
	if f.Op != "" {
		q = q.Where(sq.Eq{"op": string(f.Op)})
	}
	if f.ReservationID > 0 {
		q = q.Where(sq.Eq{"reservation_id": f.ReservationID})
	}
	if f.Username != "" {
		q = q.Where(sq.Eq{"username": f.Username})
	}
	if !f.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": f.Since})
	}
	limit := f.Limit
	if limit == 0 {
		limit = 50
	}
	return q.Limit(limit).ToSql()
}
