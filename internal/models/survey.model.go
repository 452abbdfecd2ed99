package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Survey struct {
	BaseUUIDModel
	EquipmentID string          `gorm:"type:varchar(64);not null;index" json:"equipmentId"`
	TemplateID  string          `gorm:"type:varchar(64);not null;index" json:"templateId"`
	SurveyDate  time.Time       `gorm:"not null"                        json:"surveyDate"`
	PreparedBy  string          `gorm:"type:varchar(255)"               json:"preparedBy"`
	SurveyData  datatypes.JSON  `gorm:"type:json"                       json:"surveyData"`
	Template    *SurveyTemplate `gorm:"foreignKey:TemplateID"           json:"template,omitempty"`
}

type SurveyFilter struct {
	EquipmentID string
	TemplateID  string
}

type CreateSurveyRequest struct {
	EquipmentID string          `json:"equipmentId"`
	TemplateID  string          `json:"templateId"`
	SurveyDate  string          `json:"surveyDate"`
	PreparedBy  string          `json:"preparedBy"`
	SurveyData  json.RawMessage `json:"surveyData"`
}

type UpdateSurveyRequest struct {
	EquipmentID *string         `json:"equipmentId"`
	TemplateID  *string         `json:"templateId"`
	SurveyDate  *string         `json:"surveyDate"`
	PreparedBy  *string         `json:"preparedBy"`
	SurveyData  json.RawMessage `json:"surveyData"`
}
