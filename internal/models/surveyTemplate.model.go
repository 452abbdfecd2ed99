package models

import (
	"gorm.io/datatypes"
)

type SurveyTemplate struct {
	BaseUUIDModel
	Name           string                        `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description    string                        `gorm:"type:text"                             json:"description"`
	BaseFields     datatypes.JSONType[FieldTree] `gorm:"type:json;not null"                    json:"baseFields"`
	SpecificFields datatypes.JSONType[FieldTree] `gorm:"type:json;not null"                    json:"specificFields"`
}

func NewSurveyTemplate(name, description string, base, specific FieldTree) *SurveyTemplate {
	return &SurveyTemplate{
		Name:           name,
		Description:    description,
		BaseFields:     datatypes.NewJSONType(base),
		SpecificFields: datatypes.NewJSONType(specific),
	}
}

func (t *SurveyTemplate) Base() *FieldTree {
	tree := t.BaseFields.Data()
	return &tree
}

func (t *SurveyTemplate) Specific() *FieldTree {
	tree := t.SpecificFields.Data()
	return &tree
}

func (t *SurveyTemplate) SetBase(tree FieldTree) {
	t.BaseFields = datatypes.NewJSONType(tree)
}

func (t *SurveyTemplate) SetSpecific(tree FieldTree) {
	t.SpecificFields = datatypes.NewJSONType(tree)
}

// Validate checks the name and both field trees.
func (t *SurveyTemplate) Validate() error {
	if t.Name == "" {
		return Invalid("template name is required")
	}
	if err := t.Base().Validate(); err != nil {
		return err
	}
	return t.Specific().Validate()
}

type CreateSurveyTemplateRequest struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	BaseFields     FieldTree `json:"baseFields"`
	SpecificFields FieldTree `json:"specificFields"`
}

type UpdateSurveyTemplateRequest struct {
	Name           *string    `json:"name"`
	Description    *string    `json:"description"`
	BaseFields     *FieldTree `json:"baseFields"`
	SpecificFields *FieldTree `json:"specificFields"`
}

type ExportSurveyTemplatesRequest struct {
	IDs []string `json:"ids"`
}
