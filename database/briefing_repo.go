package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/models"
	"gorm.io/gorm"
)

type BriefingRepo struct {
	db *gorm.DB
}

func NewBriefingRepo(db *gorm.DB) *BriefingRepo {
	return &BriefingRepo{db}
}

func (r *BriefingRepo) CreateBriefing(ctx context.Context, b *models.ProjectBriefing) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return errs.NewDatabaseError("create", "briefing", err)
	}
	return nil
}

func (r *BriefingRepo) FindBriefing(ctx context.Context, projectID uuid.UUID) (*models.ProjectBriefing, error) {
	var briefing models.ProjectBriefing
	err := r.db.WithContext(ctx).First(&briefing, "project_id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("find", "briefing", err)
	}
	return &briefing, nil
}

func (r *BriefingRepo) CreateBriefingImages(ctx context.Context, images []*models.BriefingImage) error {
	if len(images) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&images).Error; err != nil {
		return errs.NewDatabaseError("create", "briefing images", err)
	}
	return nil
}

func (r *BriefingRepo) ListBriefingImages(ctx context.Context, projectID uuid.UUID) ([]*models.BriefingImage, error) {
	var images []*models.BriefingImage
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order(`"order" ASC NULLS LAST`).
		Find(&images).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "briefing images", err)
	}
	return images, nil
}
