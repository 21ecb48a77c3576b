package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/models"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func seedProject(t *testing.T, s *MemoryStore, mutate func(p *models.Project)) *models.Project {
	t.Helper()
	p := models.NewProject("Project", now)
	if mutate != nil {
		mutate(p)
	}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func TestMemoryStoreFindByIDMissing(t *testing.T) {
	s := NewMemoryStore()
	p, err := s.FindProjectByID(context.Background(), uuid.New())
	if err != nil || p != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", p, err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	p := seedProject(t, s, nil)

	p.Name = "mutated after create"
	got, _ := s.FindProjectByID(context.Background(), p.ID)
	if got.Name != "Project" {
		t.Fatalf("store shares memory with caller: %q", got.Name)
	}
	got.Name = "mutated after read"
	again, _ := s.FindProjectByID(context.Background(), p.ID)
	if again.Name != "Project" {
		t.Fatalf("store shares memory with reader: %q", again.Name)
	}
}

func TestMemoryStoreUpdateBumpsVersionAndPopulates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	collab := &models.Collaborator{ID: uuid.New(), FirstName: "Ada", LastName: "Lovelace"}
	if err := s.CreateCollaborator(ctx, collab); err != nil {
		t.Fatal(err)
	}
	p := seedProject(t, s, func(p *models.Project) { p.PaymentStatus = models.PaymentPaid })

	updated, err := s.UpdateProject(ctx, p.ID, models.CollaboratorAssignment{CollaboratorID: collab.ID, Amount: 80}, now)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Version != 2 {
		t.Errorf("Version = %d, want 2", updated.Version)
	}
	if updated.AssignedCollaborator == nil || updated.AssignedCollaborator.FullName() != "Ada Lovelace" {
		t.Errorf("collaborator not populated: %+v", updated.AssignedCollaborator)
	}
}

func TestMemoryStoreFailedUpdateWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProject(t, s, nil)

	_, err := s.UpdateProject(ctx, p.ID, models.RevisionClaim{}, now)
	if !errs.IsPaymentRequired(err) {
		t.Fatalf("expected payment required, got %v", err)
	}
	got, _ := s.FindProjectByID(ctx, p.ID)
	if got.Version != 1 || got.RevisionsUsed != 0 {
		t.Errorf("failed update was persisted: %+v", got)
	}

	if _, err := s.UpdateProject(ctx, uuid.New(), models.CollaboratorRemoval{}, now); !errs.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMemoryStoreMonthlyGroup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	inGroup := func(p *models.Project) {
		p.InvoiceURL = "https://files.example.com/march.pdf"
		p.InvoiceStatus = models.InvoicePending
		p.InvoiceType = models.InvoiceMonthly
		p.MonthlyInvoiceID = "group-1"
	}
	a := seedProject(t, s, inGroup)
	b := seedProject(t, s, inGroup)
	other := seedProject(t, s, func(p *models.Project) {
		inGroup(p)
		p.MonthlyInvoiceID = "group-2"
	})

	updated, err := s.UpdateMonthlyGroup(ctx, "group-1", models.InvoiceDecision{Decision: models.InvoiceApproved, GroupMember: true}, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 2 {
		t.Fatalf("updated %d projects, want 2", len(updated))
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		p, _ := s.FindProjectByID(ctx, id)
		if p.InvoiceStatus != models.InvoiceApproved || !p.InvoiceApprovedAt.Equal(now) {
			t.Errorf("project %s not approved at the shared timestamp", id)
		}
	}
	untouched, _ := s.FindProjectByID(ctx, other.ID)
	if untouched.InvoiceStatus != models.InvoicePending {
		t.Errorf("project outside the group changed to %q", untouched.InvoiceStatus)
	}
}

func TestMemoryStoreUpdateProjectsIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	collab := uuid.New()
	assigned := seedProject(t, s, func(p *models.Project) { p.AssignedCollaboratorID = &collab })
	unassigned := seedProject(t, s, nil)

	upload := models.InvoiceUpload{URL: "https://files.example.com/x.pdf", Type: models.InvoiceMonthly, MonthlyInvoiceID: "g", Month: "2024-05"}
	if _, err := s.UpdateProjects(ctx, []uuid.UUID{assigned.ID, unassigned.ID}, upload, now); err == nil {
		t.Fatal("expected error for project without collaborator")
	}
	got, _ := s.FindProjectByID(ctx, assigned.ID)
	if got.HasInvoice() {
		t.Error("partial group write was persisted")
	}

	if _, err := s.UpdateProjects(ctx, []uuid.UUID{assigned.ID, uuid.New()}, upload, now); !errs.IsNotFound(err) {
		t.Errorf("expected not found for unknown id, got %v", err)
	}
}

func TestMemoryStoreFindProjectsFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	older := seedProject(t, s, func(p *models.Project) {
		p.ClientEmail = "Client@Example.com"
		p.CreatedAt = now.Add(-time.Hour)
	})
	newer := seedProject(t, s, func(p *models.Project) { p.ClientEmail = "client@example.com" })
	seedProject(t, s, func(p *models.Project) { p.ClientEmail = "someone@example.com" })

	got, err := s.FindProjects(ctx, models.ProjectFilter{ClientEmail: "CLIENT@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestMemoryStoreBriefingImagesOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	projectID := uuid.New()
	two, zero := 2, 0
	images := []*models.BriefingImage{
		{ID: uuid.New(), ProjectID: projectID, ImageURL: "c", Order: nil},
		{ID: uuid.New(), ProjectID: projectID, ImageURL: "b", Order: &two},
		{ID: uuid.New(), ProjectID: projectID, ImageURL: "a", Order: &zero},
	}
	if err := s.CreateBriefingImages(ctx, images); err != nil {
		t.Fatal(err)
	}
	got, _ := s.ListBriefingImages(ctx, projectID)
	if len(got) != 3 || got[0].ImageURL != "a" || got[1].ImageURL != "b" || got[2].ImageURL != "c" {
		t.Fatalf("images out of order: %v, %v, %v", got[0].ImageURL, got[1].ImageURL, got[2].ImageURL)
	}
}
