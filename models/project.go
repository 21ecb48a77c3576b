package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProjectType string

const (
	ProjectTypeSimple ProjectType = "simple"
	ProjectTypeCustom ProjectType = "custom"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type InvoiceStatus string

const (
	InvoiceNone     InvoiceStatus = "none"
	InvoicePending  InvoiceStatus = "pending"
	InvoiceApproved InvoiceStatus = "approved"
	InvoiceRejected InvoiceStatus = "rejected"
)

type InvoiceType string

const (
	InvoicePerProject InvoiceType = "per-project"
	InvoiceMonthly    InvoiceType = "monthly"
)

// Well-known lifecycle tags. Status itself is free-form.
const (
	StatusPending   = "pending"
	StatusRevision  = "revision"
	StatusCompleted = "completed"
)

const (
	DefaultClientName       = "Client"
	DefaultDeliveryTimeline = "30 days"
	DefaultMaxRevisions     = 3
	CustomServiceName       = "Custom Service"
)

// Project is the central entity of the portal: one client engagement, its
// commercial terms, invoice state and collaborator assignment.
type Project struct {
	ID          uuid.UUID   `json:"id" bson:"_id" gorm:"type:uuid;primaryKey;not null"`
	Version     int         `json:"version" bson:"version" gorm:"type:integer;not null;default:1"`
	Name        string      `json:"name" bson:"name" gorm:"type:text;not null"`
	Description string      `json:"description,omitempty" bson:"description,omitempty" gorm:"type:text"`
	ProjectType ProjectType `json:"project_type" bson:"project_type" gorm:"type:text;not null;default:'simple'"`

	ClientName   string  `json:"client_name" bson:"client_name" gorm:"type:text;not null;default:'Client'"`
	ClientEmail  string  `json:"client_email,omitempty" bson:"client_email,omitempty" gorm:"type:text;index:idx_project_client_email"`
	ClientUserID *string `json:"client_user,omitempty" bson:"client_user,omitempty" gorm:"column:client_user;type:text;index:idx_project_client_user"`

	ServiceName       string     `json:"service_name,omitempty" bson:"service_name,omitempty" gorm:"type:text"`
	ServicePrice      *float64   `json:"service_price,omitempty" bson:"service_price,omitempty" gorm:"type:decimal(12,2)"`
	SelectedServiceID *uuid.UUID `json:"selected_service_id,omitempty" bson:"selected_service,omitempty" gorm:"column:selected_service;type:uuid"`
	SelectedService   *Service   `json:"selected_service,omitempty" bson:"-" gorm:"foreignKey:SelectedServiceID;references:ID"`
	CustomQuoteAmount *float64   `json:"custom_quote_amount,omitempty" bson:"custom_quote_amount,omitempty" gorm:"type:decimal(12,2)"`
	DeliveryTimeline  string     `json:"delivery_timeline,omitempty" bson:"delivery_timeline,omitempty" gorm:"type:text"`
	Deadline          *time.Time `json:"deadline,omitempty" bson:"deadline,omitempty" gorm:"type:timestamp"`

	Status          string            `json:"status" bson:"status" gorm:"type:text;not null;default:'pending'"`
	PaymentStatus   PaymentStatus     `json:"payment_status" bson:"payment_status" gorm:"type:text;not null;default:'pending'"`
	StripePaymentID string            `json:"stripe_payment_id,omitempty" bson:"stripe_payment_id,omitempty" gorm:"type:text"`
	StatusNotes     datatypes.JSONMap `json:"status_notes,omitempty" bson:"status_notes,omitempty" gorm:"type:jsonb"`

	InvoiceURL          string        `json:"invoice_url,omitempty" bson:"invoice_url,omitempty" gorm:"type:text"`
	InvoicePublicID     string        `json:"invoice_public_id,omitempty" bson:"invoice_public_id,omitempty" gorm:"type:text"`
	InvoiceStatus       InvoiceStatus `json:"invoice_status" bson:"invoice_status" gorm:"type:text;not null;default:'none'"`
	InvoiceType         InvoiceType   `json:"invoice_type,omitempty" bson:"invoice_type,omitempty" gorm:"type:text"`
	MonthlyInvoiceID    string        `json:"monthly_invoice_id,omitempty" bson:"monthly_invoice_id,omitempty" gorm:"type:text;index:idx_project_monthly_invoice"`
	MonthlyInvoiceMonth string        `json:"monthly_invoice_month,omitempty" bson:"monthly_invoice_month,omitempty" gorm:"type:text"`
	InvoiceUploadedAt   *time.Time    `json:"invoice_uploaded_at,omitempty" bson:"invoice_uploaded_at,omitempty" gorm:"type:timestamp"`
	InvoiceApprovedAt   *time.Time    `json:"invoice_approved_at,omitempty" bson:"invoice_approved_at,omitempty" gorm:"type:timestamp"`

	AssignedCollaboratorID    *uuid.UUID    `json:"assigned_collaborator_id,omitempty" bson:"assigned_collaborator,omitempty" gorm:"column:assigned_collaborator;type:uuid;index"`
	AssignedCollaborator      *Collaborator `json:"assigned_collaborator,omitempty" bson:"-" gorm:"foreignKey:AssignedCollaboratorID;references:ID"`
	CollaboratorPaymentAmount *float64      `json:"collaborator_payment_amount,omitempty" bson:"collaborator_payment_amount,omitempty" gorm:"type:decimal(12,2)"`
	CollaboratorPaid          bool          `json:"collaborator_paid" bson:"collaborator_paid" gorm:"not null;default:false"`
	CollaboratorPaidAt        *time.Time    `json:"collaborator_paid_at,omitempty" bson:"collaborator_paid_at,omitempty" gorm:"type:timestamp"`
	CollaboratorTransferID    string        `json:"collaborator_transfer_id,omitempty" bson:"collaborator_transfer_id,omitempty" gorm:"type:text"`

	RevisionsUsed int `json:"revisions_used" bson:"revisions_used" gorm:"type:integer;not null;default:0"`
	MaxRevisions  int `json:"max_revisions" bson:"max_revisions" gorm:"type:integer;not null;default:3"`

	CreatedAt   time.Time  `json:"created_at" bson:"created_at" gorm:"type:timestamp;not null"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at" gorm:"type:timestamp;not null;autoUpdateTime:false"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty" gorm:"type:timestamp"`
}

// NewProject returns a project with every lifecycle default resolved.
func NewProject(name string, now time.Time) *Project {
	return &Project{
		ID:            uuid.New(),
		Version:       1,
		Name:          name,
		ProjectType:   ProjectTypeSimple,
		ClientName:    DefaultClientName,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		InvoiceStatus: InvoiceNone,
		MaxRevisions:  DefaultMaxRevisions,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// EffectiveMaxRevisions treats an unset limit as the default of 3.
func (p *Project) EffectiveMaxRevisions() int {
	if p.MaxRevisions <= 0 {
		return DefaultMaxRevisions
	}
	return p.MaxRevisions
}

// RevisionsRemaining never goes below zero.
func (p *Project) RevisionsRemaining() int {
	remaining := p.EffectiveMaxRevisions() - p.RevisionsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (p *Project) IsPaid() bool {
	return p.PaymentStatus == PaymentPaid
}

func (p *Project) HasInvoice() bool {
	return p.InvoiceURL != ""
}

// InMonthlyGroup reports whether invoice decisions fan out to a group.
func (p *Project) InMonthlyGroup() bool {
	return p.InvoiceType == InvoiceMonthly && p.MonthlyInvoiceID != ""
}

// OwnedBy reports whether the client identified by email or userID already
// owns the project. Emails compare case-insensitively.
func (p *Project) OwnedBy(email string, userID string) bool {
	if p.ClientEmail != "" && email != "" && strings.EqualFold(p.ClientEmail, email) {
		return true
	}
	return userID != "" && p.ClientUserID != nil && *p.ClientUserID == userID
}

// Note returns the status note stored for status, if any.
func (p *Project) Note(status string) string {
	if p.StatusNotes == nil {
		return ""
	}
	note, _ := p.StatusNotes[status].(string)
	return note
}

// PaymentAmount is the collaborator payout, zero when unset.
func (p *Project) PaymentAmount() float64 {
	if p.CollaboratorPaymentAmount == nil {
		return 0
	}
	return *p.CollaboratorPaymentAmount
}

// Price is what the client pays at checkout: the fixed service price for
// simple projects, otherwise the custom quote, otherwise the selected
// catalog service.
func (p *Project) Price() float64 {
	switch {
	case p.ServicePrice != nil && *p.ServicePrice > 0:
		return *p.ServicePrice
	case p.CustomQuoteAmount != nil && *p.CustomQuoteAmount > 0:
		return *p.CustomQuoteAmount
	case p.SelectedService != nil:
		return p.SelectedService.Price
	}
	return 0
}

// Clone returns a deep copy that shares no pointers with p.
func (p *Project) Clone() *Project {
	c := *p
	c.ClientUserID = clonePtr(p.ClientUserID)
	c.ServicePrice = clonePtr(p.ServicePrice)
	c.SelectedServiceID = clonePtr(p.SelectedServiceID)
	c.CustomQuoteAmount = clonePtr(p.CustomQuoteAmount)
	c.Deadline = clonePtr(p.Deadline)
	c.InvoiceUploadedAt = clonePtr(p.InvoiceUploadedAt)
	c.InvoiceApprovedAt = clonePtr(p.InvoiceApprovedAt)
	c.AssignedCollaboratorID = clonePtr(p.AssignedCollaboratorID)
	c.CollaboratorPaymentAmount = clonePtr(p.CollaboratorPaymentAmount)
	c.CollaboratorPaidAt = clonePtr(p.CollaboratorPaidAt)
	c.CompletedAt = clonePtr(p.CompletedAt)
	if p.StatusNotes != nil {
		c.StatusNotes = make(datatypes.JSONMap, len(p.StatusNotes))
		for k, v := range p.StatusNotes {
			c.StatusNotes[k] = v
		}
	}
	if p.SelectedService != nil {
		svc := *p.SelectedService
		c.SelectedService = &svc
	}
	if p.AssignedCollaborator != nil {
		collab := *p.AssignedCollaborator
		c.AssignedCollaborator = &collab
	}
	return &c
}

// DuplicateFor copies p for a new client. Identity, timestamps, payment,
// invoice, collaborator assignment and payout, revision usage and completion
// start over at their defaults.
func (p *Project) DuplicateFor(email string, userID string, now time.Time) *Project {
	d := p.Clone()
	d.ID = uuid.New()
	d.Version = 1
	d.CreatedAt = now
	d.UpdatedAt = now

	d.ClientName = DefaultClientName
	d.ClientEmail = email
	d.ClientUserID = nil
	if userID != "" {
		d.ClientUserID = &userID
	}

	d.PaymentStatus = PaymentPending
	d.StripePaymentID = ""

	d.InvoiceURL = ""
	d.InvoicePublicID = ""
	d.InvoiceStatus = InvoiceNone
	d.InvoiceType = ""
	d.MonthlyInvoiceID = ""
	d.MonthlyInvoiceMonth = ""
	d.InvoiceUploadedAt = nil
	d.InvoiceApprovedAt = nil

	d.AssignedCollaboratorID = nil
	d.AssignedCollaborator = nil
	d.CollaboratorPaid = false
	d.CollaboratorPaidAt = nil
	d.CollaboratorTransferID = ""

	d.RevisionsUsed = 0
	d.CompletedAt = nil
	return d
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
