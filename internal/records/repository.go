// Package records is a small record-persistence layer on SQLite. It owns
// the rows and calls the image lifecycle at its four hook points.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"masterimage/internal/config"
	"masterimage/internal/db"
	"masterimage/internal/storage"
)

var ErrRecordNotFound = errors.New("record not found")

// Lifecycle is implemented by attachment.Orchestrator.
type Lifecycle interface {
	BeforeValidate(ctx context.Context) error
	BeforePersist(ctx context.Context, rec *storage.Record) error
	AfterPersist(ctx context.Context, rec *storage.Record) error
	AfterDestroy(ctx context.Context, rec *storage.Record) error
}

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{db: conn, now: time.Now}
}

const insertRecordQuery = `
	INSERT INTO records (created_at, image_width, image_height, image_filename, image_blob)
	VALUES (?, ?, ?, ?, ?)
`

const updateRecordQuery = `
	UPDATE records
	SET image_width = ?, image_height = ?, image_filename = ?, image_blob = ?
	WHERE id = ?
`

// Save validates, then inserts or updates rec in one transaction. A failing
// AfterPersist (for example a filesystem write) rolls the row back.
func (r *Repository) Save(ctx context.Context, rec *storage.Record, lc Lifecycle) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if lc != nil {
		if err := lc.BeforeValidate(ctx); err != nil {
			return err
		}
	}

	isNew := !rec.HasID()
	if rec.CreatedAt.IsZero() {
		if err := r.fillCreatedAt(ctx, rec, isNew); err != nil {
			return err
		}
	}

	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		if lc != nil {
			if err := lc.BeforePersist(txCtx, rec); err != nil {
				return err
			}
		}

		executor := db.ExecutorFor(txCtx, r.db)
		if isNew {
			res, err := executor.ExecContext(txCtx, insertRecordQuery,
				rec.CreatedAt.Unix(), nullInt(rec.Width), nullInt(rec.Height), nullString(rec.Filename), rec.Blob)
			if err != nil {
				return fmt.Errorf("failed to insert record: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to read record id: %w", err)
			}
			rec.ID = strconv.FormatInt(id, 10)
		} else {
			res, err := executor.ExecContext(txCtx, updateRecordQuery,
				nullInt(rec.Width), nullInt(rec.Height), nullString(rec.Filename), rec.Blob, rec.ID)
			if err != nil {
				return fmt.Errorf("failed to update record: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: %s", ErrRecordNotFound, rec.ID)
			}
		}

		if lc != nil {
			return lc.AfterPersist(txCtx, rec)
		}
		return nil
	})
	if err != nil && isNew {
		rec.ID = ""
	}
	return err
}

// fillCreatedAt stamps new records and reloads the stored timestamp for
// existing ones, since the update never rewrites created_at.
func (r *Repository) fillCreatedAt(ctx context.Context, rec *storage.Record, isNew bool) error {
	if isNew {
		rec.CreatedAt = r.now().UTC().Truncate(time.Second)
		return nil
	}
	var createdAt int64
	err := db.ExecutorFor(ctx, r.db).QueryRowContext(ctx, createdAtQuery, rec.ID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, rec.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to load record timestamp: %w", err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return nil
}

const createdAtQuery = `SELECT created_at FROM records WHERE id = ?`

const getRecordQuery = `
	SELECT id, created_at, image_width, image_height, image_filename, image_blob
	FROM records
	WHERE id = ?
`

func (r *Repository) Get(ctx context.Context, id string) (*storage.Record, error) {
	var row recordRow
	err := db.ExecutorFor(ctx, r.db).QueryRowContext(ctx, getRecordQuery, id).Scan(
		&row.ID,
		&row.CreatedAt,
		&row.Width,
		&row.Height,
		&row.Filename,
		&row.Blob,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return row.toRecord(), nil
}

const deleteRecordQuery = `DELETE FROM records WHERE id = ?`

// Delete removes the row and then runs AfterDestroy in the same transaction.
func (r *Repository) Delete(ctx context.Context, rec *storage.Record, lc Lifecycle) error {
	if !rec.HasID() {
		return fmt.Errorf("record id cannot be empty")
	}
	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		res, err := db.ExecutorFor(txCtx, r.db).ExecContext(txCtx, deleteRecordQuery, rec.ID)
		if err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, rec.ID)
		}
		if lc != nil {
			return lc.AfterDestroy(txCtx, rec)
		}
		return nil
	})
}

// CheckSchema fails with a ConfigError when the columns cfg promises are missing.
func (r *Repository) CheckSchema(ctx context.Context, cfg *config.StorageConfig) error {
	rows, err := r.db.QueryContext(ctx, "PRAGMA table_info(records)")
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	defer rows.Close()

	columns := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("failed to inspect schema: %w", err)
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}

	required := []struct {
		enabled bool
		flag    string
		column  string
	}{
		{cfg.Columns.Blob, "columns.blob", "image_blob"},
		{cfg.Columns.Width, "columns.width", "image_width"},
		{cfg.Columns.Height, "columns.height", "image_height"},
		{cfg.Columns.Filename, "columns.filename", "image_filename"},
	}
	for _, req := range required {
		if req.enabled && !columns[req.column] {
			return &config.ConfigError{Field: req.flag, Reason: "records table has no " + req.column + " column"}
		}
	}
	return nil
}

type recordRow struct {
	ID        int64
	CreatedAt int64
	Width     sql.NullInt64
	Height    sql.NullInt64
	Filename  sql.NullString
	Blob      []byte
}

func (rr *recordRow) toRecord() *storage.Record {
	return &storage.Record{
		ID:        strconv.FormatInt(rr.ID, 10),
		CreatedAt: time.Unix(rr.CreatedAt, 0).UTC(),
		Width:     int(rr.Width.Int64),
		Height:    int(rr.Height.Int64),
		Filename:  rr.Filename.String,
		Blob:      rr.Blob,
	}
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
