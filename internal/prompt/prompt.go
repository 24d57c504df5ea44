package prompt

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type VisitType string

const (
	VisitTypeInitial  VisitType = "initial"
	VisitTypeFollowup VisitType = "followup"
)

func (v VisitType) Valid() bool {
	return v == VisitTypeInitial || v == VisitTypeFollowup
}

type VisitContext struct {
	PatientName string
	VisitType   VisitType
	PriorNote   string
	Transcript  string
	Preferences string
}

//go:embed templates.yaml
var templatesYAML []byte

type visitTemplates struct {
	Initial  string `yaml:"initial"`
	Followup string `yaml:"followup"`
}

func (t visitTemplates) forVisit(v VisitType) string {
	if v == VisitTypeFollowup {
		return t.Followup
	}
	return t.Initial
}

func loadTemplates(raw []byte) (visitTemplates, error) {
	var t visitTemplates
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return visitTemplates{}, fmt.Errorf("parse visit templates: %w", err)
	}
	if t.Initial == "" || t.Followup == "" {
		return visitTemplates{}, fmt.Errorf("visit templates must define both initial and followup")
	}
	return t, nil
}
