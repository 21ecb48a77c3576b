package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/models"
	"gorm.io/gorm"
)

type CollaboratorRepo struct {
	db *gorm.DB
}

func NewCollaboratorRepo(db *gorm.DB) *CollaboratorRepo {
	return &CollaboratorRepo{db}
}

func (r *CollaboratorRepo) CreateCollaborator(ctx context.Context, c *models.Collaborator) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return errs.NewDatabaseError("create", "collaborator", err)
	}
	return nil
}

func (r *CollaboratorRepo) FindCollaboratorByID(ctx context.Context, id uuid.UUID) (*models.Collaborator, error) {
	var collaborator models.Collaborator
	err := r.db.WithContext(ctx).First(&collaborator, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("find", "collaborator", err)
	}
	return &collaborator, nil
}

// ListCollaborators returns all collaborators sorted by name
func (r *CollaboratorRepo) ListCollaborators(ctx context.Context) ([]*models.Collaborator, error) {
	var collaborators []*models.Collaborator
	err := r.db.WithContext(ctx).Order("first_name").Order("last_name").Find(&collaborators).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "collaborators", err)
	}
	return collaborators, nil
}
