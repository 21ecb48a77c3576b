package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func TestDuplicateForResetsLifecycle(t *testing.T) {
	src := paidProject()
	price := 250.0
	collab := uuid.New()
	approved := testNow
	src.ServiceName = "Landing page"
	src.ServicePrice = &price
	src.ClientName = "Ada"
	src.ClientEmail = "ada@example.com"
	src.Status = "review"
	src.StripePaymentID = "pi_123"
	src.InvoiceURL = "https://files.example.com/inv.pdf"
	src.InvoiceStatus = InvoiceApproved
	src.InvoiceApprovedAt = &approved
	src.AssignedCollaboratorID = &collab
	src.CollaboratorPaid = true
	src.RevisionsUsed = 2
	src.CompletedAt = &approved
	src.StatusNotes = datatypes.JSONMap{"review": "looks good"}

	later := testNow.Add(24 * time.Hour)
	dup := src.DuplicateFor("grace@example.com", "user-2", later)

	if dup.ID == src.ID || dup.Version != 1 || !dup.CreatedAt.Equal(later) {
		t.Errorf("identity not reset: %v %d %v", dup.ID, dup.Version, dup.CreatedAt)
	}
	if dup.ClientName != DefaultClientName || dup.ClientEmail != "grace@example.com" || *dup.ClientUserID != "user-2" {
		t.Errorf("client identity not replaced: %q %q", dup.ClientName, dup.ClientEmail)
	}
	if dup.PaymentStatus != PaymentPending || dup.StripePaymentID != "" {
		t.Errorf("payment copied")
	}
	if dup.HasInvoice() || dup.InvoiceStatus != InvoiceNone || dup.InvoiceApprovedAt != nil {
		t.Errorf("invoice copied")
	}
	if dup.AssignedCollaboratorID != nil || dup.CollaboratorPaid {
		t.Errorf("collaborator copied")
	}
	if dup.RevisionsUsed != 0 || dup.CompletedAt != nil {
		t.Errorf("revision usage or completion copied")
	}
	if dup.ServiceName != "Landing page" || *dup.ServicePrice != 250 || dup.Status != "review" {
		t.Errorf("commercial terms or status lost")
	}

	dup.StatusNotes["review"] = "changed"
	*dup.ServicePrice = 1
	if src.Note("review") != "looks good" || *src.ServicePrice != 250 {
		t.Error("duplicate shares memory with its source")
	}
}

func TestOwnedBy(t *testing.T) {
	user := "user-1"
	p := NewProject("Site", testNow)
	p.ClientEmail = "Ada@Example.com"
	p.ClientUserID = &user

	tests := []struct {
		email, userID string
		want          bool
	}{
		{"ada@example.com", "", true},
		{"", "user-1", true},
		{"grace@example.com", "user-2", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := p.OwnedBy(tt.email, tt.userID); got != tt.want {
			t.Errorf("OwnedBy(%q, %q) = %v, want %v", tt.email, tt.userID, got, tt.want)
		}
	}
}

func TestFilterAndSort(t *testing.T) {
	price := 99.0
	simple := NewProject("simple", testNow.Add(-3*time.Hour))
	legacy := NewProject("legacy", testNow.Add(-2*time.Hour))
	legacy.ProjectType = ""
	legacy.ServiceName = "SEO audit"
	legacy.ServicePrice = &price
	custom := NewProject("custom", testNow.Add(-time.Hour))
	custom.ProjectType = ProjectTypeCustom
	custom.ServiceName = "SEO audit"
	custom.ServicePrice = &price

	all := []*Project{simple, legacy, custom}
	var catalog []*Project
	for _, p := range all {
		if (ProjectFilter{SimpleCatalog: true}).Matches(p) {
			catalog = append(catalog, p)
		}
	}
	if len(catalog) != 2 {
		t.Fatalf("catalog has %d projects, want 2", len(catalog))
	}

	SortProjects(all, OrderCreatedDesc)
	if all[0] != custom || all[2] != simple {
		t.Errorf("expected newest first, got %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}

	a, b := NewProject("a", testNow), NewProject("b", testNow)
	a.MonthlyInvoiceMonth, b.MonthlyInvoiceMonth = "2024-01", "2024-02"
	months := []*Project{a, b}
	SortProjects(months, OrderMonthlyInvoice)
	if months[0] != b {
		t.Errorf("expected latest month first")
	}
}

func TestFullNameFallback(t *testing.T) {
	var missing *Collaborator
	if missing.FullName() != "Unknown" {
		t.Error("nil collaborator should render as Unknown")
	}
	c := &Collaborator{FirstName: "Ada", LastName: "Lovelace"}
	if c.FullName() != "Ada Lovelace" {
		t.Errorf("FullName = %q", c.FullName())
	}
}
