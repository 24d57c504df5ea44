package noteformat

import (
	"regexp"
	"strings"
)

// knownLabels are section and field labels that generated notes
// sometimes split from their colon across a line break.
var knownLabels = []string{
	"Mode of Communication",
	"Chief Complaint",
	"Presenting Problem",
	"History of Present Illness",
	"Subjective",
	"Objective",
	"Assessment",
	"Plan",
	"Diagnostic Results",
	"Therapy Notes",
	"Session Summary",
	"Session Type",
	"Interventions",
	"Patient Response",
	"Risk Assessment",
	"Mental Status Exam",
	"Appearance",
	"Behavior",
	"Speech",
	"Mood",
	"Affect",
	"Thought Process",
	"Thought Content",
	"Cognition",
	"Insight",
	"Judgment",
	"Sleep",
	"Appetite",
	"Medications",
	"Allergies",
	"Vital Signs",
	"Physical Exam",
	"Review of Systems",
	"Past Medical History",
	"Social History",
	"Family History",
	"Goals",
	"Progress",
	"Follow-up",
	"Duration",
}

var splitLabelPattern = buildSplitLabelPattern(knownLabels)

func buildSplitLabelPattern(labels []string) *regexp.Regexp {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	// Optional list marker, heading marker or bold wrapper around the label,
	// then a line break before the colon.
	return regexp.MustCompile(`(?im)^([ \t]*(?:[-*•+][ \t]+)?(?:#{1,6}[ \t]+)?(?:\*\*)?(?:` +
		strings.Join(quoted, "|") + `)(?:\*\*)?)[ \t]*\r?\n\s*:[ \t]*`)
}

// Repair joins a known label with a colon that was pushed onto the next line.
func Repair(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return splitLabelPattern.ReplaceAllString(text, "$1: ")
}
