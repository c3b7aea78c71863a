package filings

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/rzbill/filings/internal/persist"
	sqlitestore "github.com/rzbill/filings/internal/storage/sqlite"
)

// Schema creates the filings table. It is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS filings (
		id            INTEGER PRIMARY KEY,
		source        TEXT    NOT NULL,
		accession_no  TEXT    NOT NULL,
		symbol        TEXT    NOT NULL DEFAULT '',
		form_type     TEXT    NOT NULL DEFAULT '',
		period_end_ms INTEGER NOT NULL DEFAULT 0,
		filed_at_ms   INTEGER NOT NULL DEFAULT 0,
		payload       TEXT,
		UNIQUE (source, accession_no)
	)`,
	`CREATE INDEX IF NOT EXISTS filings_source_id ON filings (source, id)`,
}

const (
	columns     = "id, source, accession_no, symbol, form_type, period_end_ms, filed_at_ms, payload"
	columnCount = 8
)

// Repository reads and writes filings in sqlite.
type Repository struct {
	db *sqlitestore.DB
}

// NewRepository ensures the schema exists and returns a Repository.
func NewRepository(ctx context.Context, db *sqlitestore.DB) (*Repository, error) {
	if err := db.EnsureSchema(ctx, Schema...); err != nil {
		return nil, errors.Wrap(err, "filings: create schema")
	}
	return &Repository{db: db}, nil
}

// Get returns the filing with the given id.
func (r *Repository) Get(ctx context.Context, id uint64) (Filing, error) {
	var (
		f        Filing
		rawID    int64
		periodMs int64
		filedMs  int64
		payload  sql.NullString
	)
	err := r.db.QueryRow(ctx, "SELECT "+columns+" FROM filings WHERE id = ?", []any{int64(id)},
		&rawID, &f.Source, &f.AccessionNo, &f.Symbol, &f.FormType, &periodMs, &filedMs, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Filing{}, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	if err != nil {
		return Filing{}, errors.Wrapf(err, "filings: get %d", id)
	}
	f.ID = uint64(rawID)
	f.PeriodEnd = timeOf(periodMs)
	f.FiledAt = timeOf(filedMs)
	if payload.Valid {
		f.Payload = []byte(payload.String)
	}
	return f, nil
}

// ListBySource returns filings of source with id > req.After in id order.
func (r *Repository) ListBySource(ctx context.Context, source string, req PageRequest) (Page, error) {
	if req.Size <= 0 {
		return Page{}, errors.Mark(errors.New("page size must be positive"), ErrInvalid)
	}
	rows, err := r.db.Query(ctx,
		"SELECT "+columns+" FROM filings WHERE source = ? AND id > ? ORDER BY id LIMIT ?",
		source, int64(req.After), req.Size+1)
	if err != nil {
		return Page{}, errors.Wrapf(err, "filings: list %s", source)
	}
	defer rows.Close()

	items := make([]Filing, 0, req.Size)
	for rows.Next() {
		var (
			f        Filing
			rawID    int64
			periodMs int64
			filedMs  int64
			payload  sql.NullString
		)
		if err := rows.Scan(&rawID, &f.Source, &f.AccessionNo, &f.Symbol, &f.FormType, &periodMs, &filedMs, &payload); err != nil {
			return Page{}, errors.Wrap(err, "filings: scan")
		}
		f.ID = uint64(rawID)
		f.PeriodEnd = timeOf(periodMs)
		f.FiledAt = timeOf(filedMs)
		if payload.Valid {
			f.Payload = []byte(payload.String)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return Page{}, errors.Wrap(err, "filings: iterate")
	}

	page := Page{Items: items}
	if len(items) > req.Size {
		page.Items = items[:req.Size]
		page.NextAfter = page.Items[req.Size-1].ID
	}
	return page, nil
}

// InsertMany writes items with one multi-row INSERT. sqlite applies a single
// statement atomically, so a failure commits nothing.
func (r *Repository) InsertMany(ctx context.Context, items []Filing) persist.Outcome {
	if len(items) == 0 {
		return persist.Succeeded(0)
	}
	var q strings.Builder
	q.WriteString("INSERT INTO filings (" + columns + ") VALUES ")
	args := make([]any, 0, len(items)*columnCount)
	for i, f := range items {
		if i > 0 {
			q.WriteByte(',')
		}
		q.WriteString("(?,?,?,?,?,?,?,?)")
		args = append(args, rowArgs(f)...)
	}
	return r.db.Exec(ctx, persist.Statement{Query: q.String(), Args: args})
}

// InsertOne writes a single filing.
func (r *Repository) InsertOne(ctx context.Context, f Filing) persist.Outcome {
	return r.db.Exec(ctx, persist.Statement{
		Query: "INSERT INTO filings (" + columns + ") VALUES (?,?,?,?,?,?,?,?)",
		Args:  rowArgs(f),
	})
}

// CountBySource returns how many filings source has.
func (r *Repository) CountBySource(ctx context.Context, source string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM filings WHERE source = ?", []any{source}, &n)
	return n, errors.Wrapf(err, "filings: count %s", source)
}

func rowArgs(f Filing) []any {
	var payload any
	if len(f.Payload) > 0 {
		payload = string(f.Payload)
	}
	return []any{int64(f.ID), f.Source, f.AccessionNo, f.Symbol, f.FormType, msOf(f.PeriodEnd), msOf(f.FiledAt), payload}
}
