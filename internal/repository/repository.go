package repository

import "context"

const SettingGenerationModel = "generation_model"

type CreateNoteInput struct {
	PatientID          string
	PatientName        string
	VisitType          string
	Model              string
	Transcript         string
	RawText            string
	FormattedHTML      string
	FormattedPlainText string
}

type NoteRepository interface {
	CreateNote(ctx context.Context, input CreateNoteInput) (*Note, error)
	// GetLatestNoteByPatient returns nil, nil when the patient has no live note.
	GetLatestNoteByPatient(ctx context.Context, patientID string) (*Note, error)
}

type SettingsRepository interface {
	// GetSetting reports ok=false when the key is not set.
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
}

type Repository interface {
	NoteRepository
	SettingsRepository
}
