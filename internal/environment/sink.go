package environment

import (
	"context"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/models"
)

// RunSaver is the write side of the address-book repository.
type RunSaver interface {
	SaveRun(ctx context.Context, deployment *models.Deployment) error
}

// AddressBookSink records runs in the address book.
type AddressBookSink struct {
	repo RunSaver
}

// NewAddressBookSink creates a sink writing through repo.
func NewAddressBookSink(repo RunSaver) *AddressBookSink {
	return &AddressBookSink{repo: repo}
}

// Save stores the run as a deployment of its label.
func (s *AddressBookSink) Save(ctx context.Context, res *Result) error {
	return s.repo.SaveRun(ctx, ToDeployment(res))
}

// ToDeployment converts a run result into its address-book record. Only
// successful runs carry contracts.
func ToDeployment(res *Result) *models.Deployment {
	d := &models.Deployment{
		RunID:  res.RunID(),
		Label:  res.Label,
		Mode:   res.Mode.String(),
		Status: models.DeploymentStatusCompleted,
	}
	if res.Err != nil {
		d.Status = models.DeploymentStatusFailed
		d.Error = res.Err.Error()
	}

	if res.Report != nil {
		d.Plan = res.Report.Plan
		d.DurationMS = res.Report.Duration.Milliseconds()
		for _, step := range res.Report.Steps {
			d.Steps = append(d.Steps, models.StepRecord{
				Position:   step.Index,
				StepID:     step.ID,
				Outputs:    len(step.Outputs),
				Receipts:   len(step.Receipts),
				DurationMS: step.Duration.Milliseconds(),
			})
		}
	}

	if res.Snapshot != nil {
		for i, e := range res.Snapshot.Entries() {
			d.Contracts = append(d.Contracts, models.Contract{
				Position: i,
				Name:     string(e.Name),
				Handle:   string(e.Handle),
			})
		}
	}
	return d
}
