package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"gorm.io/datatypes"
)

// ProjectUpdate is one mutation intent. The set of implementations is closed:
// every change a request can make to a project is one of the types below, so
// no caller can inject arbitrary fields. Stores call Apply on a freshly read
// copy and persist the result with a version check; a returned error aborts
// the write.
type ProjectUpdate interface {
	Apply(p *Project, now time.Time) error
	projectUpdate()
}

// ServiceSelection records the client's choice. ServiceID wins over
// CustomAmount; with neither set the project is left as is.
type ServiceSelection struct {
	ServiceID    *uuid.UUID
	CustomAmount *float64
}

func (u ServiceSelection) Apply(p *Project, now time.Time) error {
	switch {
	case u.ServiceID != nil:
		id := *u.ServiceID
		p.SelectedServiceID = &id
		p.SelectedService = nil
	case u.CustomAmount != nil:
		amount := *u.CustomAmount
		p.CustomQuoteAmount = &amount
	default:
		return nil
	}
	p.UpdatedAt = now
	return nil
}

// StatusChange moves the free-form lifecycle tag. The first move to
// "completed" stamps CompletedAt; later ones keep the original stamp.
type StatusChange struct {
	Status string
	Notes  string
}

func (u StatusChange) Apply(p *Project, now time.Time) error {
	if strings.TrimSpace(u.Status) == "" {
		return errs.NewMissingRequiredFieldError("status", "Status is required")
	}
	p.Status = u.Status
	if u.Status == StatusCompleted && p.CompletedAt == nil {
		completed := now
		p.CompletedAt = &completed
	}
	setNote(p, u.Status, u.Notes)
	p.UpdatedAt = now
	return nil
}

// InvoiceDecision approves or rejects an uploaded invoice. GroupMember marks
// a fan-out over a monthly group: the guards were checked once on the
// project the caller named and are not repeated per member.
type InvoiceDecision struct {
	Decision    InvoiceStatus
	GroupMember bool
}

// Check validates the decision against the project the caller named.
func (u InvoiceDecision) Check(p *Project) error {
	if !p.HasInvoice() {
		return errs.NewInvoiceMissingError()
	}
	if u.Decision == InvoiceApproved && p.InvoiceStatus == InvoiceApproved {
		return errs.NewInvoiceAlreadyApprovedError()
	}
	return nil
}

func (u InvoiceDecision) Apply(p *Project, now time.Time) error {
	if u.Decision != InvoiceApproved && u.Decision != InvoiceRejected {
		return errs.NewInvalidFieldError("invoice_status", "invoice decision must be approved or rejected")
	}
	if !u.GroupMember {
		if err := u.Check(p); err != nil {
			return err
		}
	}
	p.InvoiceStatus = u.Decision
	if u.Decision == InvoiceApproved {
		approved := now
		p.InvoiceApprovedAt = &approved
	}
	p.UpdatedAt = now
	return nil
}

// CollaboratorAssignment hands a paid project to a collaborator.
type CollaboratorAssignment struct {
	CollaboratorID uuid.UUID
	Amount         float64
}

func (u CollaboratorAssignment) Apply(p *Project, now time.Time) error {
	if u.Amount <= 0 {
		return errs.NewInvalidFieldError("payment_amount", "Payment amount is required and must be greater than 0")
	}
	if !p.IsPaid() {
		return errs.NewPaymentRequiredError("Client must complete payment before you can assign a collaborator.")
	}
	id := u.CollaboratorID
	amount := u.Amount
	p.AssignedCollaboratorID = &id
	p.AssignedCollaborator = nil
	p.CollaboratorPaymentAmount = &amount
	p.UpdatedAt = now
	return nil
}

// CollaboratorRemoval clears the assignment and its payout amount.
type CollaboratorRemoval struct{}

func (CollaboratorRemoval) Apply(p *Project, now time.Time) error {
	p.AssignedCollaboratorID = nil
	p.AssignedCollaborator = nil
	p.CollaboratorPaymentAmount = nil
	p.UpdatedAt = now
	return nil
}

// RevisionClaim spends one revision of a paid project.
type RevisionClaim struct {
	Description string
}

func (u RevisionClaim) Apply(p *Project, now time.Time) error {
	if !p.IsPaid() {
		return errs.NewPaymentRequiredError("Project must be paid before claiming revisions")
	}
	if p.RevisionsRemaining() <= 0 {
		return errs.NewRevisionsExhaustedError(p.EffectiveMaxRevisions())
	}
	if p.MaxRevisions <= 0 {
		p.MaxRevisions = DefaultMaxRevisions
	}
	p.RevisionsUsed++
	p.Status = StatusRevision
	setNote(p, StatusRevision, u.Description)
	p.UpdatedAt = now
	return nil
}

// PaymentConfirmation marks the client payment as received.
type PaymentConfirmation struct {
	StripePaymentID string
}

func (u PaymentConfirmation) Apply(p *Project, now time.Time) error {
	p.PaymentStatus = PaymentPaid
	if u.StripePaymentID != "" {
		p.StripePaymentID = u.StripePaymentID
	}
	p.UpdatedAt = now
	return nil
}

// InvoiceUpload attaches a collaborator invoice. Approved invoices are final.
type InvoiceUpload struct {
	URL              string
	PublicID         string
	Type             InvoiceType
	MonthlyInvoiceID string
	Month            string
}

func (u InvoiceUpload) Apply(p *Project, now time.Time) error {
	if u.URL == "" {
		return errs.NewMissingRequiredFieldError("invoice_url", "Invoice file is required")
	}
	if p.AssignedCollaboratorID == nil {
		return errs.NewCollaboratorRequiredError("Assign a collaborator before uploading an invoice")
	}
	if p.InvoiceStatus == InvoiceApproved {
		return errs.NewInvoiceAlreadyApprovedError()
	}
	uploaded := now
	p.InvoiceURL = u.URL
	p.InvoicePublicID = u.PublicID
	p.InvoiceStatus = InvoicePending
	p.InvoiceType = u.Type
	p.InvoiceUploadedAt = &uploaded
	p.InvoiceApprovedAt = nil
	if u.Type == InvoiceMonthly {
		p.MonthlyInvoiceID = u.MonthlyInvoiceID
		p.MonthlyInvoiceMonth = u.Month
	} else {
		p.MonthlyInvoiceID = ""
		p.MonthlyInvoiceMonth = ""
	}
	p.UpdatedAt = now
	return nil
}

// CollaboratorPayout records that the collaborator was paid for an approved
// invoice.
type CollaboratorPayout struct {
	TransferID  string
	GroupMember bool
}

func (u CollaboratorPayout) Apply(p *Project, now time.Time) error {
	if !u.GroupMember && p.InvoiceStatus != InvoiceApproved {
		return errs.NewInvoiceNotApprovedError()
	}
	paid := now
	p.CollaboratorPaid = true
	p.CollaboratorPaidAt = &paid
	p.CollaboratorTransferID = u.TransferID
	p.UpdatedAt = now
	return nil
}

func (ServiceSelection) projectUpdate()       {}
func (StatusChange) projectUpdate()           {}
func (InvoiceDecision) projectUpdate()        {}
func (CollaboratorAssignment) projectUpdate() {}
func (CollaboratorRemoval) projectUpdate()    {}
func (RevisionClaim) projectUpdate()          {}
func (PaymentConfirmation) projectUpdate()    {}
func (InvoiceUpload) projectUpdate()          {}
func (CollaboratorPayout) projectUpdate()     {}

// setNote stores a trimmed note under status, overwriting an earlier one.
// Blank notes leave the map untouched.
func setNote(p *Project, status, note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if p.StatusNotes == nil {
		p.StatusNotes = datatypes.JSONMap{}
	}
	p.StatusNotes[status] = note
}
