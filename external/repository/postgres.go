package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxseedlab/soapscribe/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const noteColumns = `id, patient_id, patient_name, visit_type, model, transcript, raw_text, formatted_html, formatted_plain_text, created_at, deleted_at`

func (r *PostgresRepository) CreateNote(ctx context.Context, input repository.CreateNoteInput) (*repository.Note, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate note id: %w", err)
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO soap_notes (id, patient_id, patient_name, visit_type, model, transcript, raw_text, formatted_html, formatted_plain_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+noteColumns,
		id.String(), input.PatientID, input.PatientName, input.VisitType, input.Model,
		input.Transcript, input.RawText, input.FormattedHTML, input.FormattedPlainText)
	return scanNote(row)
}

func (r *PostgresRepository) GetLatestNoteByPatient(ctx context.Context, patientID string) (*repository.Note, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+noteColumns+`
		 FROM soap_notes WHERE patient_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT 1`,
		patientID)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return n, nil
}

func (r *PostgresRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *PostgresRepository) Shutdown() error {
	r.pool.Close()
	return nil
}

func scanNote(row pgx.Row) (*repository.Note, error) {
	var n repository.Note
	err := row.Scan(&n.ID, &n.PatientID, &n.PatientName, &n.VisitType, &n.Model, &n.Transcript,
		&n.RawText, &n.FormattedHTML, &n.FormattedPlainText, &n.CreatedAt, &n.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
