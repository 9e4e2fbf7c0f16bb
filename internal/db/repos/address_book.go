// Package repos provides database repository implementations
package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/models"
)

// AddressBookRepository stores provisioning runs and the contract handles they registered
type AddressBookRepository struct {
	db *gorm.DB
}

// NewAddressBookRepository creates a new instance of AddressBookRepository
func NewAddressBookRepository(db *gorm.DB) *AddressBookRepository {
	return &AddressBookRepository{
		db: db,
	}
}

// SaveRun stores a deployment together with its contracts and step records
func (r *AddressBookRepository) SaveRun(ctx context.Context, deployment *models.Deployment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(deployment).Error
	})
}

// Latest returns the most recent completed deployment of label
func (r *AddressBookRepository) Latest(ctx context.Context, label string) (*models.Deployment, error) {
	var deployment models.Deployment
	err := r.db.WithContext(ctx).
		Where(&models.Deployment{Label: label, Status: models.DeploymentStatusCompleted}).
		Order("created_at DESC").Order("id DESC").
		First(&deployment).Error
	if err != nil {
		return nil, err
	}
	return &deployment, nil
}

// GetByRunID retrieves a deployment and its records by run id
func (r *AddressBookRepository) GetByRunID(ctx context.Context, runID string) (*models.Deployment, error) {
	var deployment models.Deployment
	err := r.db.WithContext(ctx).
		Preload("Contracts", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where(&models.Deployment{RunID: runID}).
		First(&deployment).Error
	if err != nil {
		return nil, err
	}
	return &deployment, nil
}

// Lookup returns the handle registered under name by the latest completed
// deployment of label. The boolean is false when there is no such deployment or
// contract.
func (r *AddressBookRepository) Lookup(ctx context.Context, label, name string) (string, bool, error) {
	deployment, err := r.Latest(ctx, label)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var contract models.Contract
	err = r.db.WithContext(ctx).
		Where(&models.Contract{DeploymentID: deployment.ID, Name: name}).
		First(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return contract.Handle, true, nil
}

// ListContracts returns the contracts of the latest completed deployment of label
// in registration order
func (r *AddressBookRepository) ListContracts(ctx context.Context, label string) ([]models.Contract, error) {
	deployment, err := r.Latest(ctx, label)
	if err != nil {
		return nil, err
	}

	var contracts []models.Contract
	err = r.db.WithContext(ctx).
		Where(&models.Contract{DeploymentID: deployment.ID}).
		Order("position").
		Find(&contracts).Error
	return contracts, err
}

// ListDeployments retrieves the deployments of label, newest first, with pagination
func (r *AddressBookRepository) ListDeployments(ctx context.Context, label string, opts *models.ListOptions) ([]models.Deployment, error) {
	if opts == nil {
		opts = &models.ListOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = models.DefaultLimit
	}

	query := r.db.WithContext(ctx).Where(&models.Deployment{Label: label})
	if opts.Status != nil {
		query = query.Where("status = ?", *opts.Status)
	}

	var deployments []models.Deployment
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(opts.Offset).
		Find(&deployments).Error
	return deployments, err
}
