package notegen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/soapscribe/internal/modelcache"
	"github.com/foxseedlab/soapscribe/internal/noteformat"
	"github.com/foxseedlab/soapscribe/internal/prompt"
	"github.com/foxseedlab/soapscribe/internal/repository"
	"github.com/foxseedlab/soapscribe/internal/webhook"
)

const webhookTimeout = 15 * time.Second

type Request struct {
	PatientID   string
	PatientName string
	VisitType   prompt.VisitType
	Transcript  string
	PriorNote   string
	Preferences string
}

type Result struct {
	NoteID     string
	Model      string
	ModelStale bool
	Note       noteformat.SoapNote
	CreatedAt  time.Time
}

type Service struct {
	assembler *prompt.Assembler
	generator Generator
	models    *modelcache.Cache[string]
	repo      repository.NoteRepository
	webhook   webhook.Sender
	now       func() time.Time
}

func NewService(assembler *prompt.Assembler, generator Generator, models *modelcache.Cache[string], repo repository.NoteRepository, wh webhook.Sender) *Service {
	return &Service{
		assembler: assembler,
		generator: generator,
		models:    models,
		repo:      repo,
		webhook:   wh,
		now:       time.Now,
	}
}

// NewModelCache reads the selected generation model from settings and
// falls back to defaultModel when none is stored.
func NewModelCache(settings repository.SettingsRepository, defaultModel string, ttl time.Duration, opts ...modelcache.Option) *modelcache.Cache[string] {
	return modelcache.New(repository.SettingGenerationModel, ttl, func(ctx context.Context) (string, error) {
		v, ok, err := settings.GetSetting(ctx, repository.SettingGenerationModel)
		if err != nil {
			return "", err
		}
		if !ok || strings.TrimSpace(v) == "" {
			return defaultModel, nil
		}
		return strings.TrimSpace(v), nil
	}, opts...)
}

func (s *Service) CurrentModel(ctx context.Context) (modelcache.Entry[string], error) {
	return s.models.GetOrRefresh(ctx)
}

func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	priorNote := req.PriorNote
	if strings.TrimSpace(priorNote) == "" && req.PatientID != "" {
		prior, err := s.repo.GetLatestNoteByPatient(ctx, req.PatientID)
		if err != nil {
			return nil, fmt.Errorf("load prior note: %w", err)
		}
		if prior != nil {
			priorNote = prior.RawText
			slog.Debug("using stored prior note", "patient_id", req.PatientID, "note_id", prior.ID)
		}
	}

	messages, err := s.assembler.Assemble(prompt.VisitContext{
		PatientName: req.PatientName,
		VisitType:   req.VisitType,
		PriorNote:   priorNote,
		Transcript:  req.Transcript,
		Preferences: req.Preferences,
	})
	if err != nil {
		return nil, err
	}

	model, err := s.models.GetOrRefresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve generation model: %w", err)
	}
	if model.Stale {
		slog.Warn("using stale generation model selection", "model", model.Value, "error", model.RefreshErr)
	}

	raw, err := s.generator.Generate(ctx, model.Value, messages)
	if err != nil {
		return nil, err
	}
	note := noteformat.NewSoapNote(raw)
	result := &Result{Model: model.Value, ModelStale: model.Stale, Note: note, CreatedAt: s.now()}

	if req.PatientID == "" {
		return result, nil
	}
	saved, err := s.repo.CreateNote(ctx, repository.CreateNoteInput{
		PatientID:          req.PatientID,
		PatientName:        strings.TrimSpace(req.PatientName),
		VisitType:          string(req.VisitType),
		Model:              model.Value,
		Transcript:         req.Transcript,
		RawText:            note.Raw(),
		FormattedHTML:      note.FormattedHTML(),
		FormattedPlainText: note.FormattedPlainText(),
	})
	if err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	result.NoteID = saved.ID
	result.CreatedAt = saved.CreatedAt
	slog.Info("note generated", "note_id", saved.ID, "patient_id", req.PatientID, "visit_type", req.VisitType, "model", model.Value)

	s.notify(ctx, req, result)
	return result, nil
}

func (s *Service) notify(ctx context.Context, req Request, result *Result) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), webhookTimeout)
	defer cancel()
	err := s.webhook.SendNote(ctx, webhook.NotePayload{
		SchemaVersion:      webhook.NotePayloadSchemaVersion,
		NoteID:             result.NoteID,
		PatientID:          req.PatientID,
		VisitType:          string(req.VisitType),
		Model:              result.Model,
		GeneratedAt:        result.CreatedAt,
		Raw:                result.Note.Raw(),
		FormattedPlainText: result.Note.FormattedPlainText(),
	})
	if err != nil {
		slog.Error("failed to send note webhook", "error", err, "note_id", result.NoteID)
	}
}
