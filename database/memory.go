package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/models"
)

// MemoryStore keeps everything in process. Records are cloned on the way in
// and out so callers never share memory with the store.
type MemoryStore struct {
	mu            sync.RWMutex
	projects      map[uuid.UUID]*models.Project
	collaborators map[uuid.UUID]*models.Collaborator
	services      map[uuid.UUID]*models.Service
	briefings     map[uuid.UUID]*models.ProjectBriefing
	images        map[uuid.UUID][]*models.BriefingImage
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:      make(map[uuid.UUID]*models.Project),
		collaborators: make(map[uuid.UUID]*models.Collaborator),
		services:      make(map[uuid.UUID]*models.Service),
		briefings:     make(map[uuid.UUID]*models.ProjectBriefing),
		images:        make(map[uuid.UUID][]*models.BriefingImage),
	}
}

func (s *MemoryStore) CreateProject(ctx context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[p.ID]; exists {
		return errs.NewAlreadyExistsError("project")
	}
	stored := p.Clone()
	stored.SelectedService = nil
	stored.AssignedCollaborator = nil
	s.projects[p.ID] = stored
	return nil
}

func (s *MemoryStore) FindProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, nil
	}
	return s.populate(p), nil
}

func (s *MemoryStore) FindProjects(ctx context.Context, filter models.ProjectFilter) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]*models.Project, 0)
	for _, p := range s.projects {
		if filter.Matches(p) {
			projects = append(projects, s.populate(p))
		}
	}
	// Map iteration is random; fix a base order so ties sort stably.
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].ID.String() < projects[j].ID.String()
	})
	models.SortProjects(projects, filter.OrderBy)
	return projects, nil
}

func (s *MemoryStore) UpdateProject(ctx context.Context, id uuid.UUID, update models.ProjectUpdate, now time.Time) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.projects[id]
	if !ok {
		return nil, errs.NewNotFound("project")
	}
	p := stored.Clone()
	if _, err := applyVersioned(p, update, now); err != nil {
		return nil, err
	}
	s.projects[id] = p
	return s.populate(p), nil
}

func (s *MemoryStore) UpdateMonthlyGroup(ctx context.Context, monthlyID string, update models.ProjectUpdate, now time.Time) ([]*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for id, p := range s.projects {
		if p.MonthlyInvoiceID == monthlyID {
			ids = append(ids, id)
		}
	}
	return s.updateAll(ids, update, now)
}

func (s *MemoryStore) UpdateProjects(ctx context.Context, ids []uuid.UUID, update models.ProjectUpdate, now time.Time) ([]*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.projects[id]; !ok {
			return nil, errs.NewNotFound("project")
		}
	}
	return s.updateAll(ids, update, now)
}

// updateAll applies update to copies first and commits only if every copy
// accepted it. Callers hold the write lock.
func (s *MemoryStore) updateAll(ids []uuid.UUID, update models.ProjectUpdate, now time.Time) ([]*models.Project, error) {
	staged := make([]*models.Project, 0, len(ids))
	for _, id := range ids {
		p := s.projects[id].Clone()
		if _, err := applyVersioned(p, update, now); err != nil {
			return nil, err
		}
		staged = append(staged, p)
	}

	out := make([]*models.Project, 0, len(staged))
	for _, p := range staged {
		s.projects[p.ID] = p
		out = append(out, s.populate(p))
	}
	models.SortProjects(out, models.OrderCreatedDesc)
	return out, nil
}

// populate returns a copy of p with its relations attached. Callers hold at
// least the read lock.
func (s *MemoryStore) populate(p *models.Project) *models.Project {
	c := p.Clone()
	if c.SelectedServiceID != nil {
		if svc, ok := s.services[*c.SelectedServiceID]; ok {
			copied := *svc
			c.SelectedService = &copied
		}
	}
	if c.AssignedCollaboratorID != nil {
		if collab, ok := s.collaborators[*c.AssignedCollaboratorID]; ok {
			copied := *collab
			c.AssignedCollaborator = &copied
		}
	}
	return c
}

func (s *MemoryStore) CreateCollaborator(ctx context.Context, c *models.Collaborator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *c
	s.collaborators[c.ID] = &copied
	return nil
}

func (s *MemoryStore) FindCollaboratorByID(ctx context.Context, id uuid.UUID) (*models.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collaborators[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (s *MemoryStore) ListCollaborators(ctx context.Context) ([]*models.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Collaborator, 0, len(s.collaborators))
	for _, c := range s.collaborators {
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].LastName < out[j].LastName
	})
	return out, nil
}

func (s *MemoryStore) CreateService(ctx context.Context, svc *models.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *svc
	s.services[svc.ID] = &copied
	return nil
}

func (s *MemoryStore) FindServiceByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[id]
	if !ok {
		return nil, nil
	}
	copied := *svc
	return &copied, nil
}

func (s *MemoryStore) CreateBriefing(ctx context.Context, b *models.ProjectBriefing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.briefings[b.ProjectID]; exists {
		return errs.NewAlreadyExistsError("briefing")
	}
	copied := *b
	s.briefings[b.ProjectID] = &copied
	return nil
}

func (s *MemoryStore) FindBriefing(ctx context.Context, projectID uuid.UUID) (*models.ProjectBriefing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.briefings[projectID]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (s *MemoryStore) CreateBriefingImages(ctx context.Context, images []*models.BriefingImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, img := range images {
		copied := *img
		s.images[img.ProjectID] = append(s.images[img.ProjectID], &copied)
	}
	return nil
}

func (s *MemoryStore) ListBriefingImages(ctx context.Context, projectID uuid.UUID) ([]*models.BriefingImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.images[projectID]
	out := make([]*models.BriefingImage, 0, len(stored))
	for _, img := range stored {
		copied := *img
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey() < out[j].SortKey()
	})
	return out, nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
