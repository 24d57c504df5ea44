package webhook

import (
	"context"
	"time"
)

const NotePayloadSchemaVersion = "1"

type NotePayload struct {
	SchemaVersion      string    `json:"schema_version"`
	NoteID             string    `json:"note_id"`
	PatientID          string    `json:"patient_id"`
	VisitType          string    `json:"visit_type"`
	Model              string    `json:"model"`
	GeneratedAt        time.Time `json:"generated_at"`
	Raw                string    `json:"raw"`
	FormattedPlainText string    `json:"formatted_plain_text"`
}

type Sender interface {
	SendNote(ctx context.Context, payload NotePayload) error
}
