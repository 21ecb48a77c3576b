package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func paidProject() *Project {
	p := NewProject("Landing page", testNow.Add(-time.Hour))
	p.PaymentStatus = PaymentPaid
	return p
}

func TestRevisionClaim(t *testing.T) {
	tests := []struct {
		name    string
		paid    bool
		max     int
		used    int
		wantErr func(error) bool
		wantOut int
	}{
		{"claims last revision", true, 3, 2, nil, 3},
		{"unset max defaults to three", true, 0, 1, nil, 2},
		{"exhausted", true, 3, 3, errs.IsRevisionsExhausted, 3},
		{"unpaid", false, 3, 0, errs.IsPaymentRequired, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProject("Logo", testNow)
			if tt.paid {
				p.PaymentStatus = PaymentPaid
			}
			p.MaxRevisions = tt.max
			p.RevisionsUsed = tt.used

			err := RevisionClaim{Description: "  tweak colors  "}.Apply(p, testNow)
			if tt.wantErr != nil {
				if err == nil || !tt.wantErr(err) {
					t.Fatalf("expected guard error, got %v", err)
				}
				if p.RevisionsUsed != tt.used {
					t.Errorf("failed claim must not change usage")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.RevisionsUsed != tt.wantOut {
				t.Errorf("RevisionsUsed = %d, want %d", p.RevisionsUsed, tt.wantOut)
			}
			if p.Status != StatusRevision {
				t.Errorf("Status = %q, want revision", p.Status)
			}
			if got := p.Note(StatusRevision); got != "tweak colors" {
				t.Errorf("revision note = %q", got)
			}
		})
	}
}

func TestStatusChangeCompletesOnce(t *testing.T) {
	p := paidProject()

	if err := (StatusChange{Status: StatusCompleted, Notes: "shipped"}).Apply(p, testNow); err != nil {
		t.Fatal(err)
	}
	if p.CompletedAt == nil || !p.CompletedAt.Equal(testNow) {
		t.Fatalf("CompletedAt = %v, want %v", p.CompletedAt, testNow)
	}

	later := testNow.Add(48 * time.Hour)
	if err := (StatusChange{Status: StatusCompleted, Notes: "   "}).Apply(p, later); err != nil {
		t.Fatal(err)
	}
	if !p.CompletedAt.Equal(testNow) {
		t.Errorf("second completion moved CompletedAt to %v", p.CompletedAt)
	}
	if p.Note(StatusCompleted) != "shipped" {
		t.Errorf("blank note overwrote existing note: %q", p.Note(StatusCompleted))
	}

	if err := (StatusChange{Status: StatusCompleted, Notes: " v2 "}).Apply(p, later); err != nil {
		t.Fatal(err)
	}
	if p.Note(StatusCompleted) != "v2" {
		t.Errorf("new note for the same status = %q, want v2", p.Note(StatusCompleted))
	}
	if !p.CompletedAt.Equal(testNow) {
		t.Errorf("renote moved CompletedAt to %v", p.CompletedAt)
	}

	if err := (StatusChange{}).Apply(p, later); !errs.IsValidation(err) {
		t.Errorf("expected validation error for empty status, got %v", err)
	}
}

func TestInvoiceDecision(t *testing.T) {
	t.Run("missing invoice", func(t *testing.T) {
		p := paidProject()
		err := InvoiceDecision{Decision: InvoiceApproved}.Apply(p, testNow)
		if !errs.IsInvoiceMissing(err) {
			t.Fatalf("expected invoice missing, got %v", err)
		}
	})

	t.Run("approve twice", func(t *testing.T) {
		p := paidProject()
		p.InvoiceURL = "https://files.example.com/inv.pdf"
		p.InvoiceStatus = InvoicePending
		if err := (InvoiceDecision{Decision: InvoiceApproved}).Apply(p, testNow); err != nil {
			t.Fatal(err)
		}
		if p.InvoiceApprovedAt == nil {
			t.Fatal("approval timestamp not set")
		}
		err := InvoiceDecision{Decision: InvoiceApproved}.Apply(p, testNow)
		if !errs.IsInvoiceAlreadyApproved(err) {
			t.Fatalf("expected already approved, got %v", err)
		}
	})

	t.Run("group member skips guards", func(t *testing.T) {
		p := paidProject()
		if err := (InvoiceDecision{Decision: InvoiceRejected, GroupMember: true}).Apply(p, testNow); err != nil {
			t.Fatal(err)
		}
		if p.InvoiceStatus != InvoiceRejected {
			t.Errorf("InvoiceStatus = %q", p.InvoiceStatus)
		}
	})
}

func TestCollaboratorAssignment(t *testing.T) {
	collab := uuid.New()

	unpaid := NewProject("Site", testNow)
	err := CollaboratorAssignment{CollaboratorID: collab, Amount: 100}.Apply(unpaid, testNow)
	if !errs.IsPaymentRequired(err) {
		t.Fatalf("expected payment required, got %v", err)
	}
	if unpaid.AssignedCollaboratorID != nil {
		t.Fatal("unpaid project must stay unassigned")
	}

	p := paidProject()
	if err := (CollaboratorAssignment{CollaboratorID: collab, Amount: 0}).Apply(p, testNow); !errs.IsValidation(err) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	if err := (CollaboratorAssignment{CollaboratorID: collab, Amount: 250}).Apply(p, testNow); err != nil {
		t.Fatal(err)
	}
	if *p.AssignedCollaboratorID != collab || p.PaymentAmount() != 250 {
		t.Errorf("assignment not recorded: %v %v", p.AssignedCollaboratorID, p.PaymentAmount())
	}

	if err := (CollaboratorRemoval{}).Apply(p, testNow); err != nil {
		t.Fatal(err)
	}
	if p.AssignedCollaboratorID != nil || p.CollaboratorPaymentAmount != nil {
		t.Error("removal must clear reference and amount")
	}
}

func TestInvoiceUpload(t *testing.T) {
	p := paidProject()
	upload := InvoiceUpload{URL: "https://files.example.com/a.pdf", PublicID: "invoices/a.pdf", Type: InvoiceMonthly, MonthlyInvoiceID: "m-1", Month: "2024-03"}

	if err := upload.Apply(p, testNow); !errs.IsConflict(err) {
		t.Fatalf("expected collaborator required, got %v", err)
	}

	id := uuid.New()
	p.AssignedCollaboratorID = &id
	if err := upload.Apply(p, testNow); err != nil {
		t.Fatal(err)
	}
	if !p.InMonthlyGroup() || p.InvoiceStatus != InvoicePending || p.MonthlyInvoiceMonth != "2024-03" {
		t.Errorf("unexpected invoice state: %+v", p)
	}

	p.InvoiceStatus = InvoiceApproved
	if err := upload.Apply(p, testNow); !errs.IsInvoiceAlreadyApproved(err) {
		t.Errorf("approved invoices are final, got %v", err)
	}
}

func TestCollaboratorPayoutNeedsApproval(t *testing.T) {
	p := paidProject()
	if err := (CollaboratorPayout{TransferID: "tr_1"}).Apply(p, testNow); err == nil {
		t.Fatal("expected error for unapproved invoice")
	}
	p.InvoiceStatus = InvoiceApproved
	if err := (CollaboratorPayout{TransferID: "tr_1"}).Apply(p, testNow); err != nil {
		t.Fatal(err)
	}
	if !p.CollaboratorPaid || p.CollaboratorTransferID != "tr_1" || p.CollaboratorPaidAt == nil {
		t.Errorf("payout not recorded: %+v", p)
	}
}

func TestServiceSelectionPrefersServiceID(t *testing.T) {
	p := NewProject("Custom", testNow.Add(-time.Hour))
	svc := uuid.New()
	amount := 900.0
	if err := (ServiceSelection{ServiceID: &svc, CustomAmount: &amount}).Apply(p, testNow); err != nil {
		t.Fatal(err)
	}
	if p.SelectedServiceID == nil || *p.SelectedServiceID != svc {
		t.Fatalf("service not selected")
	}
	if p.CustomQuoteAmount != nil {
		t.Errorf("custom amount must be ignored when a service id is given")
	}

	before := p.UpdatedAt
	if err := (ServiceSelection{}).Apply(p, testNow.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if !p.UpdatedAt.Equal(before) {
		t.Errorf("empty selection must not touch the project")
	}
}
