package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DeploymentStatus represents the outcome of a provisioning run
type DeploymentStatus int

// Deployment status constants
const (
	// DeploymentStatusUnknown represents an unknown or invalid status
	DeploymentStatusUnknown DeploymentStatus = iota
	// DeploymentStatusCompleted indicates every step succeeded
	DeploymentStatusCompleted
	// DeploymentStatusFailed indicates the run aborted on a step
	DeploymentStatusFailed
)

var deploymentStatuses = []string{
	"unknown",
	"completed",
	"failed",
}

// ParseDeploymentStatus converts a string representation of a status to DeploymentStatus
func ParseDeploymentStatus(str string) (DeploymentStatus, error) {
	for i, status := range deploymentStatuses {
		if status == str {
			return DeploymentStatus(i), nil
		}
	}
	return DeploymentStatus(0), fmt.Errorf("invalid deployment status: %s", str)
}

func (s DeploymentStatus) String() string {
	if int(s) < 0 || int(s) >= len(deploymentStatuses) {
		return deploymentStatuses[0]
	}
	return deploymentStatuses[s]
}

// MarshalJSON implements the json.Marshaler interface for DeploymentStatus
func (s DeploymentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for DeploymentStatus
func (s *DeploymentStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseDeploymentStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}

// Deployment is one recorded provisioning run of a labelled environment.
// The gorm.Model columns are spelled out so that created_at carries the index
// the latest-run lookups order by.
type Deployment struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time        `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time        `json:"updated_at"`
	DeletedAt  gorm.DeletedAt   `json:"-" gorm:"index"`
	RunID      string           `json:"run_id" gorm:"not null;uniqueIndex;size:36"`
	Label      string           `json:"label" gorm:"not null;index"`
	Mode       string           `json:"mode" gorm:"not null"`
	Plan       string           `json:"plan"`
	Status     DeploymentStatus `json:"status" gorm:"index"`
	Error      string           `json:"error,omitempty" gorm:"type:text"`
	DurationMS int64            `json:"duration_ms"`
	Contracts  []Contract       `json:"contracts,omitempty" gorm:"foreignKey:DeploymentID"`
	Steps      []StepRecord     `json:"steps,omitempty" gorm:"foreignKey:DeploymentID"`
}

// Contract is a named resource handle registered by a deployment
type Contract struct {
	ID           uint   `json:"-" gorm:"primaryKey"`
	DeploymentID uint   `json:"-" gorm:"not null;index"`
	Position     int    `json:"position"`
	Name         string `json:"name" gorm:"not null;index"`
	Handle       string `json:"handle" gorm:"not null"`
}

// StepRecord is the journal entry of one completed step
type StepRecord struct {
	ID           uint   `json:"-" gorm:"primaryKey"`
	DeploymentID uint   `json:"-" gorm:"not null;index"`
	Position     int    `json:"position"`
	StepID       string `json:"step_id" gorm:"not null"`
	Outputs      int    `json:"outputs"`
	Receipts     int    `json:"receipts"`
	DurationMS   int64  `json:"duration_ms"`
}
