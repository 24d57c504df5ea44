package repository

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case **time.Time:
			v, _ := r.values[i].(*time.Time)
			*p = v
		}
	}
	return nil
}

func TestScanNote(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		"0190f0aa-0000-7000-8000-000000000001", "patient-1", "Jane Doe", "followup", "gpt-4o",
		"Patient reports improved mood.", "## Plan", "<p><strong>Plan</strong></p>", "Plan",
		created, (*time.Time)(nil),
	}}
	n, err := scanNote(row)
	if err != nil {
		t.Fatalf("scanNote: %v", err)
	}
	if n.PatientID != "patient-1" || n.VisitType != "followup" || !n.CreatedAt.Equal(created) {
		t.Fatalf("unexpected note: %+v", n)
	}
	if n.DeletedAt != nil {
		t.Fatalf("expected live note, got deleted_at %v", n.DeletedAt)
	}
}

func TestScanNote_PropagatesNoRows(t *testing.T) {
	if _, err := scanNote(fakeRow{err: pgx.ErrNoRows}); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestMigrationStatementsAreRerunnable(t *testing.T) {
	for _, stmt := range migrationStatements {
		if !strings.Contains(stmt, "IF NOT EXISTS") && !strings.Contains(stmt, "duplicate_object") {
			t.Fatalf("statement is not safe to run twice: %s", stmt)
		}
	}
}
