package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// CreateProject inserts a new project. Relations are referenced by id only.
func (r *ProjectRepo) CreateProject(ctx context.Context, p *models.Project) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return errs.NewDatabaseError("create", "project", err)
	}
	return nil
}

// FindProjectByID returns a project with its service and collaborator loaded
func (r *ProjectRepo) FindProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return r.findByID(preload(r.db.WithContext(ctx)), id)
}

// FindProjects returns all projects matching filter in the filter's order
func (r *ProjectRepo) FindProjects(ctx context.Context, filter models.ProjectFilter) ([]*models.Project, error) {
	var projects []*models.Project
	err := scopeFilter(preload(r.db.WithContext(ctx)), filter).Find(&projects).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "projects", err)
	}
	return projects, nil
}

func (r *ProjectRepo) UpdateProject(ctx context.Context, id uuid.UUID, update models.ProjectUpdate, now time.Time) (*models.Project, error) {
	primary := r.db.WithContext(ctx).Clauses(dbresolver.Write)

	var project models.Project
	err := primary.First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("project")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}

	if err := saveVersioned(primary, &project, update, now); err != nil {
		return nil, errs.NewDatabaseError("update", "project", err)
	}
	return r.findByID(preload(primary), id)
}

func (r *ProjectRepo) UpdateMonthlyGroup(ctx context.Context, monthlyID string, update models.ProjectUpdate, now time.Time) ([]*models.Project, error) {
	return r.updateAll(ctx, update, now, -1, func(q *gorm.DB) *gorm.DB {
		return q.Where("monthly_invoice_id = ?", monthlyID)
	})
}

func (r *ProjectRepo) UpdateProjects(ctx context.Context, ids []uuid.UUID, update models.ProjectUpdate, now time.Time) ([]*models.Project, error) {
	return r.updateAll(ctx, update, now, len(ids), func(q *gorm.DB) *gorm.DB {
		return q.Where("id IN ?", ids)
	})
}

// updateAll locks the scoped rows and applies update to each of them inside
// one transaction. want < 0 accepts any number of rows.
func (r *ProjectRepo) updateAll(ctx context.Context, update models.ProjectUpdate, now time.Time, want int, scope func(*gorm.DB) *gorm.DB) ([]*models.Project, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var projects []*models.Project
		q := scope(tx.Model(&models.Project{})).Clauses(clause.Locking{Strength: "UPDATE"})
		if err := q.Find(&projects).Error; err != nil {
			return err
		}
		if want >= 0 && len(projects) != want {
			return errs.NewNotFound("project")
		}
		for _, p := range projects {
			if err := saveVersioned(tx, p, update, now); err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, errs.NewTransactionFailedError("update projects", err)
	}
	if len(ids) == 0 {
		return []*models.Project{}, nil
	}

	var projects []*models.Project
	err = preload(r.db.WithContext(ctx).Clauses(dbresolver.Write)).
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, errs.NewDatabaseError("reload", "projects", err)
	}
	return projects, nil
}

func (r *ProjectRepo) findByID(q *gorm.DB, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := q.First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	return &project, nil
}

// saveVersioned writes every column of p, provided the stored version is
// still the one p was read at.
func saveVersioned(tx *gorm.DB, p *models.Project, update models.ProjectUpdate, now time.Time) error {
	prev, err := applyVersioned(p, update, now)
	if err != nil {
		return err
	}
	res := tx.Model(p).
		Where("version = ?", prev).
		Select("*").
		Omit(clause.Associations).
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NewVersionConflictError("project")
	}
	return nil
}

func preload(q *gorm.DB) *gorm.DB {
	return q.Preload("SelectedService").Preload("AssignedCollaborator")
}

// scopeFilter translates a ProjectFilter into SQL. It must agree with
// ProjectFilter.Matches.
func scopeFilter(q *gorm.DB, f models.ProjectFilter) *gorm.DB {
	switch {
	case f.ClientEmail != "" && f.ClientUserID != "":
		q = q.Where("(LOWER(client_email) = LOWER(?) OR client_user = ?)", f.ClientEmail, f.ClientUserID)
	case f.ClientEmail != "":
		q = q.Where("LOWER(client_email) = LOWER(?)", f.ClientEmail)
	case f.ClientUserID != "":
		q = q.Where("client_user = ?", f.ClientUserID)
	}
	if f.SimpleCatalog {
		q = q.Where(
			"(project_type = ? OR (project_type <> ? AND TRIM(COALESCE(service_name, '')) <> '' AND service_price > 0))",
			models.ProjectTypeSimple, models.ProjectTypeCustom,
		)
	}
	if f.InvoiceType != "" {
		q = q.Where("invoice_type = ?", f.InvoiceType)
	}
	if f.InvoiceStatus != "" {
		q = q.Where("invoice_status = ?", f.InvoiceStatus)
	}
	if f.MonthlyInvoiceID != "" {
		q = q.Where("monthly_invoice_id = ?", f.MonthlyInvoiceID)
	}
	if f.InMonthlyGroup {
		q = q.Where("COALESCE(monthly_invoice_id, '') <> ''")
	}
	if f.HasInvoice {
		q = q.Where("COALESCE(invoice_url, '') <> ''")
	}
	if f.HasCollaborator {
		q = q.Where("assigned_collaborator IS NOT NULL")
	}

	switch f.OrderBy {
	case models.OrderMonthlyInvoice:
		q = q.Order("monthly_invoice_month DESC").Order("invoice_uploaded_at DESC NULLS LAST")
	case models.OrderApprovedDesc:
		q = q.Order("invoice_approved_at DESC NULLS LAST")
	default:
		q = q.Order("created_at DESC")
	}
	return q
}
