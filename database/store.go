package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/models"
)

// Store is everything the services need from persistence. Find methods
// return (nil, nil) when the record does not exist.
type Store interface {
	ProjectStore
	CollaboratorStore
	ServiceStore
	BriefingStore

	Close(ctx context.Context) error
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	FindProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	FindProjects(ctx context.Context, filter models.ProjectFilter) ([]*models.Project, error)

	// UpdateProject reads the project, applies update at now and writes it
	// back only if nobody else wrote in between. Returns the updated project.
	UpdateProject(ctx context.Context, id uuid.UUID, update models.ProjectUpdate, now time.Time) (*models.Project, error)

	// UpdateMonthlyGroup applies update to every project sharing monthlyID in
	// one transaction.
	UpdateMonthlyGroup(ctx context.Context, monthlyID string, update models.ProjectUpdate, now time.Time) ([]*models.Project, error)

	// UpdateProjects applies update to each listed project in one
	// transaction. Unknown ids abort the whole write.
	UpdateProjects(ctx context.Context, ids []uuid.UUID, update models.ProjectUpdate, now time.Time) ([]*models.Project, error)
}

type CollaboratorStore interface {
	CreateCollaborator(ctx context.Context, c *models.Collaborator) error
	FindCollaboratorByID(ctx context.Context, id uuid.UUID) (*models.Collaborator, error)
	ListCollaborators(ctx context.Context) ([]*models.Collaborator, error)
}

type ServiceStore interface {
	CreateService(ctx context.Context, s *models.Service) error
	FindServiceByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
}

type BriefingStore interface {
	CreateBriefing(ctx context.Context, b *models.ProjectBriefing) error
	FindBriefing(ctx context.Context, projectID uuid.UUID) (*models.ProjectBriefing, error)
	CreateBriefingImages(ctx context.Context, images []*models.BriefingImage) error
	// ListBriefingImages returns images ordered by their order field.
	ListBriefingImages(ctx context.Context, projectID uuid.UUID) ([]*models.BriefingImage, error)
}

// applyVersioned runs update against p and bumps its version. prev is the
// version the write must still find in storage.
func applyVersioned(p *models.Project, update models.ProjectUpdate, now time.Time) (prev int, err error) {
	prev = p.Version
	if err := update.Apply(p, now); err != nil {
		return prev, err
	}
	p.Version = prev + 1
	return prev, nil
}
