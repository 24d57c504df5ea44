package prompt

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/soapscribe/internal/apperror"
)

const (
	twoInputsInstruction = "You are a clinical documentation assistant. You will receive two kinds of input. " +
		"The first, when present, is the note from the patient's previous visit; treat it only as background context. " +
		"The second is the transcript of today's visit; it is the authoritative source for today's note."
	noCopyRule = "Do not copy or carry forward any information from the previous note unless it was discussed again " +
		"or confirmed in today's transcript. If today's transcript contradicts the previous note, follow today's transcript."
	formattingRules = `Formatting rules:
- Use simple section headers without letter prefixes (write "Subjective", not "S:" or "S - Subjective").
- Use "##" as the heading marker for every section header and never mix heading levels.
- Write subsection labels as bold text immediately followed by a colon on the same line, for example **Mood:** euthymic.
- Use "-" for bullet points.
- Do not invent findings that are not supported by today's transcript.`
	preferencesHeader = "Provider preferences (apply them only where they do not conflict with the rules above):"

	priorNoteLabel  = "PREVIOUS VISIT NOTE (background context only; do not copy unless confirmed in today's transcript):"
	transcriptLabel = "TODAY'S VISIT TRANSCRIPT (authoritative source for this note):"
)

type Assembler struct {
	templates visitTemplates
}

func NewAssembler() (*Assembler, error) {
	t, err := loadTemplates(templatesYAML)
	if err != nil {
		return nil, err
	}
	return &Assembler{templates: t}, nil
}

// Assemble builds the ordered conversation for one note. The system message
// always comes first and the current transcript is always the last message;
// a prior note, when present, sits between them.
func (a *Assembler) Assemble(vc VisitContext) ([]Message, error) {
	transcript := strings.TrimSpace(vc.Transcript)
	if transcript == "" {
		return nil, apperror.Validation(apperror.CodeMissingTranscript, "Transcript is required to generate a note")
	}
	name := strings.TrimSpace(vc.PatientName)
	if name == "" {
		return nil, apperror.Validation(apperror.CodeMissingPatientName, "Patient name is required to generate a note")
	}
	if !vc.VisitType.Valid() {
		return nil, apperror.Validation(apperror.CodeInvalidVisitType, fmt.Sprintf("Visit type must be %q or %q", VisitTypeInitial, VisitTypeFollowup))
	}

	messages := []Message{{Role: RoleSystem, Content: a.systemMessage(name, vc.VisitType, vc.Preferences)}}
	if prior := strings.TrimSpace(vc.PriorNote); prior != "" {
		messages = append(messages, Message{Role: RoleUser, Content: priorNoteLabel + "\n\n" + prior})
	}
	messages = append(messages, Message{Role: RoleUser, Content: transcriptLabel + "\n\n" + vc.Transcript})
	return messages, nil
}

func (a *Assembler) systemMessage(patientName string, visitType VisitType, preferences string) string {
	sections := []string{
		twoInputsInstruction,
		noCopyRule,
		fmt.Sprintf("The patient's name is %q. Use exactly this name in the note and disregard any other name for the patient that appears in the transcript.", patientName),
		formattingRules,
		strings.TrimSpace(a.templates.forVisit(visitType)),
	}
	if prefs := strings.TrimSpace(preferences); prefs != "" {
		sections = append(sections, preferencesHeader+"\n"+prefs)
	}
	return strings.Join(sections, "\n\n")
}
