package models

import "gorm.io/datatypes"

type CascadeStepStatus string

const (
	StepSucceeded CascadeStepStatus = "succeeded"
	StepFailed    CascadeStepStatus = "failed"
	// StepSkipped marks a step with nothing left to act on. It is not retried.
	StepSkipped CascadeStepStatus = "skipped"
)

// CascadeStep records the outcome of one step of an approve/reject cascade so
// that failed steps can be resumed by the reconcile command.
type CascadeStep struct {
	BaseModel
	ApplicationID string            `gorm:"size:36;not null;uniqueIndex:idx_cascade_app_step" json:"applicationId"`
	Action        string            `gorm:"size:20;not null" json:"action"`
	Step          string            `gorm:"size:50;not null;uniqueIndex:idx_cascade_app_step" json:"step"`
	Status        CascadeStepStatus `gorm:"size:20;index;not null" json:"status"`
	Attempts      int               `json:"attempts"`
	LastError     string            `gorm:"type:text" json:"lastError,omitempty"`
	Detail        datatypes.JSON    `json:"detail,omitempty"` // ids the step acted on
}
