package repository

import "time"

type Note struct {
	ID                 string
	PatientID          string
	PatientName        string
	VisitType          string
	Model              string
	Transcript         string
	RawText            string
	FormattedHTML      string
	FormattedPlainText string
	CreatedAt          time.Time
	DeletedAt          *time.Time
}
