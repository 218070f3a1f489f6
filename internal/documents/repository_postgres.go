package documents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const documentColumns = `id, owner_id, files, hints, status, error, report, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var (
		d                    Document
		files, hints, report []byte
	)
	if err := row.Scan(&d.ID, &d.OwnerID, &files, &hints, &d.Status, &d.Error, &report, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(files, &d.Files); err != nil {
		return nil, err
	}
	if len(hints) > 0 {
		if err := json.Unmarshal(hints, &d.Hints); err != nil {
			return nil, err
		}
	}
	if len(report) > 0 {
		d.Report = &Report{}
		if err := json.Unmarshal(report, d.Report); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

// --------------------------------------------------
// CREATE
// --------------------------------------------------
func (r *PostgresRepository) Create(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = StatusUploaded
	}

	files, err := json.Marshal(doc.Files)
	if err != nil {
		return err
	}
	hints, err := json.Marshal(doc.Hints)
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO documents (id, owner_id, files, hints, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at
	`, doc.ID, doc.OwnerID, files, hints, doc.Status).Scan(&doc.CreatedAt, &doc.UpdatedAt)
}

// --------------------------------------------------
// GET
// --------------------------------------------------
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	d, err := scanDocument(r.db.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// --------------------------------------------------
// CLAIM NEXT (FOR UPDATE SKIP LOCKED)
// --------------------------------------------------
func (r *PostgresRepository) ClaimNext(ctx context.Context) (*Document, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	d, err := scanDocument(tx.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE status = 'UPLOADED'
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`))
	// No pending jobs is NOT an error
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx, `
		UPDATE documents
		SET status = 'OCR_PROCESSING', updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, d.ID).Scan(&d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Status = StatusProcessing

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// --------------------------------------------------
// MARK ANALYZED (REPORT + MEASUREMENTS, ATOMIC)
// --------------------------------------------------
func (r *PostgresRepository) MarkAnalyzed(ctx context.Context, id string, report *Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		UPDATE documents
		SET report = $1,
		    status = 'ANALYZED',
		    error = NULL,
		    updated_at = now()
		WHERE id = $2
	`, data, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM lab_measurements WHERE document_id = $1`, id); err != nil {
		return err
	}

	if report != nil {
		batch := &pgx.Batch{}
		for _, m := range measurementsOf(id, report.Result.BloodTestResults) {
			batch.Queue(`
				INSERT INTO lab_measurements (
					document_id, position, indicator_name, value_num, value_text,
					unit, reference_low, reference_high, reference_range, status
				)
				VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, NULLIF($9, ''), $10)
			`, m.DocumentID, m.Position, m.Row.IndicatorName, m.Row.Value.Num, m.Row.Value.Raw,
				m.Row.Unit, m.Row.RefLow, m.Row.RefHigh, m.Row.ReferenceRange, string(m.Row.Status))
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// --------------------------------------------------
// MARK FAILED
// --------------------------------------------------
func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE documents
		SET status = 'FAILED',
		    error = $1,
		    updated_at = now()
		WHERE id = $2
	`, reason, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --------------------------------------------------
// RETRY FAILED DOCUMENT (SAFE RESET)
// --------------------------------------------------
func (r *PostgresRepository) Retry(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE documents
		SET status = 'UPLOADED',
		    report = NULL,
		    error = NULL,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'FAILED'
	`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotRetryable
	}
	return nil
}

// staleAfter bounds how long a claim may sit in OCR_PROCESSING before a
// restarted worker picks it up again.
const staleAfter = 15 * time.Minute

// ReleaseStale returns documents stuck in OCR_PROCESSING (a crashed worker)
// to UPLOADED.
func (r *PostgresRepository) ReleaseStale(ctx context.Context) (int64, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE documents
		SET status = 'UPLOADED', updated_at = now()
		WHERE status = 'OCR_PROCESSING'
		  AND updated_at < now() - make_interval(secs => $1)
	`, staleAfter.Seconds())
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
