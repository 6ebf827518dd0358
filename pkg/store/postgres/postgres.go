// Package postgres implements store.Gateway on PostgreSQL. All tables share
// one records relation keyed by (tbl, id) with a JSONB document.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/store"
)

// Schema creates the records relation and the slot capacity trigger. The
// trigger is the authoritative backstop for reservation slots: it serializes
// writers of one (date, time) slot with an advisory lock and rejects a row
// that would push active reservations past SlotCapacity.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	tbl        TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	version    BIGINT      NOT NULL,
	doc        JSONB       NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ,
	PRIMARY KEY (tbl, id)
);
CREATE INDEX IF NOT EXISTS records_tbl_created_idx ON records (tbl, created_at);
CREATE INDEX IF NOT EXISTS records_doc_idx ON records USING GIN (doc);

CREATE OR REPLACE FUNCTION records_slot_capacity() RETURNS trigger AS $$
BEGIN
	IF NEW.tbl = 'reservations' AND NEW.deleted_at IS NULL
		AND (NEW.doc->>'status') IN ('pending', 'confirmed') THEN
		PERFORM pg_advisory_xact_lock(hashtext((NEW.doc->>'date') || ' ' || (NEW.doc->>'time')));
		IF (SELECT count(*) FROM records
			WHERE tbl = 'reservations' AND deleted_at IS NULL AND id <> NEW.id
				AND doc->>'date' = NEW.doc->>'date' AND doc->>'time' = NEW.doc->>'time'
				AND (doc->>'status') IN ('pending', 'confirmed')) >= 10 THEN
			RAISE EXCEPTION 'slot_full';
		END IF;
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS records_slot_capacity_trg ON records;
CREATE TRIGGER records_slot_capacity_trg BEFORE INSERT OR UPDATE ON records
	FOR EACH ROW EXECUTE FUNCTION records_slot_capacity();
`

// SlotCapacity is the per-slot limit enforced by the trigger in Schema.
const SlotCapacity = 10

const columns = "id, version, doc, created_at, updated_at, deleted_at"

// Gateway persists rows in PostgreSQL.
type Gateway struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a PostgreSQL gateway. The caller must have applied Schema.
func New(db *sql.DB) *Gateway {
	return &Gateway{db: db, now: time.Now}
}

// EnsureSchema applies Schema.
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	_, err := g.db.ExecContext(ctx, Schema)
	return apperr.Store("postgres.schema", err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (store.Record, error) {
	var (
		rec     store.Record
		doc     []byte
		deleted sql.NullTime
	)
	if err := s.Scan(&rec.ID, &rec.Version, &doc, &rec.CreatedAt, &rec.UpdatedAt, &deleted); err != nil {
		return store.Record{}, err
	}
	rec.Doc = json.RawMessage(doc)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if deleted.Valid {
		t := deleted.Time.UTC()
		rec.DeletedAt = &t
	}
	return rec, nil
}

// Get retrieves a row by id.
func (g *Gateway) Get(ctx context.Context, table, id string) (store.Record, error) {
	row := g.db.QueryRowContext(ctx, "SELECT "+columns+" FROM records WHERE tbl=$1 AND id=$2", table, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, apperr.NotFound("postgres.get", "%s/%s not found", table, id)
	}
	if err != nil {
		return store.Record{}, apperr.Store("postgres.get", err)
	}
	return rec, nil
}

// Find fetches matching rows.
func (g *Gateway) Find(ctx context.Context, table string, q store.Query) ([]store.Record, error) {
	b := newBuilder(table)
	where, err := b.where(q)
	if err != nil {
		return nil, apperr.Store("postgres.find", err)
	}
	order, err := b.orderBy(q.OrderBy)
	if err != nil {
		return nil, apperr.Store("postgres.find", err)
	}
	query := "SELECT " + columns + " FROM records WHERE " + where + order + b.page(q)
	rows, err := g.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, apperr.Store("postgres.find", err)
	}
	defer rows.Close()
	var out []store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Store("postgres.find", err)
		}
		out = append(out, rec)
	}
	return out, apperr.Store("postgres.find", rows.Err())
}

// Count returns the number of matching rows.
func (g *Gateway) Count(ctx context.Context, table string, q store.Query) (int, error) {
	b := newBuilder(table)
	where, err := b.where(q)
	if err != nil {
		return 0, apperr.Store("postgres.count", err)
	}
	var n int
	if err := g.db.QueryRowContext(ctx, "SELECT count(*) FROM records WHERE "+where, b.args...).Scan(&n); err != nil {
		return 0, apperr.Store("postgres.count", err)
	}
	return n, nil
}

// Insert creates a new row at version 1.
func (g *Gateway) Insert(ctx context.Context, table string, rec store.Record) (store.Record, error) {
	doc := []byte(rec.Doc)
	if len(doc) == 0 {
		doc = []byte("{}")
	}
	now := g.now().UTC()
	row := g.db.QueryRowContext(ctx,
		"INSERT INTO records (tbl, id, version, doc, created_at, updated_at) VALUES ($1,$2,1,$3,$4,$4) RETURNING "+columns,
		table, rec.ID, doc, now)
	out, err := scanRecord(row)
	if err != nil {
		return store.Record{}, translate("postgres.insert", table, rec.ID, err)
	}
	return out, nil
}

// Update merges patch into the document, guarded by expectedVersion.
func (g *Gateway) Update(ctx context.Context, table, id string, patch store.Patch, expectedVersion int64) (store.Record, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return store.Record{}, apperr.Store("postgres.update", err)
	}
	query := "UPDATE records SET doc = doc || $3::jsonb, version = version + 1, updated_at = $4 WHERE tbl=$1 AND id=$2"
	args := []any{table, id, raw, g.now().UTC()}
	if expectedVersion > 0 {
		query += " AND version=$5"
		args = append(args, expectedVersion)
	}
	rec, err := scanRecord(g.db.QueryRowContext(ctx, query+" RETURNING "+columns, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, g.missOrConflict(ctx, "postgres.update", table, id)
	}
	if err != nil {
		return store.Record{}, translate("postgres.update", table, id, err)
	}
	return rec, nil
}

// translate maps constraint violations to Conflict errors.
func translate(op, table, id string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505":
			return apperr.Conflict(op, "%s/%s already exists", table, id)
		case pqErr.Code == "P0001" && pqErr.Message == "slot_full":
			return apperr.Conflict(op, "slot capacity of %d reached", SlotCapacity)
		}
	}
	return apperr.Store(op, err)
}

// missOrConflict tells a vanished row from a stale version.
func (g *Gateway) missOrConflict(ctx context.Context, op, table, id string) error {
	var version int64
	err := g.db.QueryRowContext(ctx, "SELECT version FROM records WHERE tbl=$1 AND id=$2", table, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(op, "%s/%s not found", table, id)
	}
	if err != nil {
		return apperr.Store(op, err)
	}
	return store.ErrVersionConflict
}

// SoftDelete stamps deleted_at.
func (g *Gateway) SoftDelete(ctx context.Context, table, id string) (store.Record, error) {
	now := g.now().UTC()
	row := g.db.QueryRowContext(ctx,
		"UPDATE records SET deleted_at=$3, updated_at=$3, version = version + 1 WHERE tbl=$1 AND id=$2 RETURNING "+columns,
		table, id, now)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, apperr.NotFound("postgres.soft_delete", "%s/%s not found", table, id)
	}
	if err != nil {
		return store.Record{}, apperr.Store("postgres.soft_delete", err)
	}
	return rec, nil
}

// HardDelete removes matching rows, soft-deleted ones included.
func (g *Gateway) HardDelete(ctx context.Context, table string, q store.Query) (int, error) {
	q.WithDeleted = true
	b := newBuilder(table)
	where, err := b.where(q)
	if err != nil {
		return 0, apperr.Store("postgres.hard_delete", err)
	}
	res, err := g.db.ExecContext(ctx, "DELETE FROM records WHERE "+where, b.args...)
	if err != nil {
		return 0, apperr.Store("postgres.hard_delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Store("postgres.hard_delete", err)
	}
	return int(n), nil
}
