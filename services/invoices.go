package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/database"
	"github.com/rpupo63/client-project-portal/models"
	"golang.org/x/sync/errgroup"
)

// InvoiceService builds read-only invoice summaries for the admin views.
type InvoiceService struct {
	store database.Store
}

func NewInvoiceService(store database.Store) *InvoiceService {
	return &InvoiceService{store: store}
}

type MonthlyInvoiceProject struct {
	ID                        uuid.UUID `json:"id"`
	Name                      string    `json:"name"`
	ClientName                string    `json:"client_name"`
	CollaboratorPaymentAmount *float64  `json:"collaborator_payment_amount,omitempty"`
	Status                    string    `json:"status"`
}

// MonthlyInvoice is one uploaded monthly invoice and the projects it covers.
type MonthlyInvoice struct {
	MonthlyInvoiceID  string                  `json:"monthly_invoice_id"`
	Month             string                  `json:"month"`
	InvoiceURL        string                  `json:"invoice_url"`
	InvoicePublicID   string                  `json:"invoice_public_id,omitempty"`
	InvoiceStatus     models.InvoiceStatus    `json:"invoice_status"`
	InvoiceUploadedAt *time.Time              `json:"invoice_uploaded_at,omitempty"`
	InvoiceApprovedAt *time.Time              `json:"invoice_approved_at,omitempty"`
	Projects          []MonthlyInvoiceProject `json:"projects"`
	TotalAmount       float64                 `json:"total_amount"`
	Collaborator      *models.Collaborator    `json:"collaborator"`
}

// MonthlyInvoiceSummary groups monthly invoice projects by invoice id,
// latest month first. Invoice metadata comes from the first project seen.
func (s *InvoiceService) MonthlyInvoiceSummary(ctx context.Context) ([]*MonthlyInvoice, error) {
	projects, err := s.store.FindProjects(ctx, models.ProjectFilter{
		InvoiceType:    models.InvoiceMonthly,
		InMonthlyGroup: true,
		HasInvoice:     true,
		OrderBy:        models.OrderMonthlyInvoice,
	})
	if err != nil {
		return nil, err
	}

	invoices := make([]*MonthlyInvoice, 0)
	byID := make(map[string]*MonthlyInvoice)
	for _, p := range projects {
		inv, ok := byID[p.MonthlyInvoiceID]
		if !ok {
			inv = &MonthlyInvoice{
				MonthlyInvoiceID:  p.MonthlyInvoiceID,
				Month:             p.MonthlyInvoiceMonth,
				InvoiceURL:        p.InvoiceURL,
				InvoicePublicID:   p.InvoicePublicID,
				InvoiceStatus:     p.InvoiceStatus,
				InvoiceUploadedAt: p.InvoiceUploadedAt,
				InvoiceApprovedAt: p.InvoiceApprovedAt,
				Projects:          []MonthlyInvoiceProject{},
				Collaborator:      p.AssignedCollaborator,
			}
			byID[p.MonthlyInvoiceID] = inv
			invoices = append(invoices, inv)
		}
		inv.Projects = append(inv.Projects, MonthlyInvoiceProject{
			ID:                        p.ID,
			Name:                      p.Name,
			ClientName:                p.ClientName,
			CollaboratorPaymentAmount: p.CollaboratorPaymentAmount,
			Status:                    p.Status,
		})
		inv.TotalAmount += p.PaymentAmount()
	}

	sort.SliceStable(invoices, func(i, j int) bool {
		return invoices[i].Month > invoices[j].Month
	})
	return invoices, nil
}

// AcceptedInvoice is one approved invoice row. Monthly groups collapse into
// a single row.
type AcceptedInvoice struct {
	ID               string             `json:"id"`
	Type             models.InvoiceType `json:"type"`
	Label            string             `json:"label"`
	CollaboratorID   string             `json:"collaboratorId"`
	CollaboratorName string             `json:"collaboratorName"`
	Amount           float64            `json:"amount"`
	Paid             bool               `json:"paid"`
	PaidAt           *time.Time         `json:"paidAt,omitempty"`
	ProjectID        string             `json:"projectId,omitempty"`
	MonthlyInvoiceID string             `json:"monthlyInvoiceId,omitempty"`
	Month            string             `json:"month,omitempty"`
}

// CollaboratorBalance is what a collaborator has been paid and is still owed
// across approved invoices.
type CollaboratorBalance struct {
	CollaboratorID   string  `json:"collaboratorId"`
	CollaboratorName string  `json:"collaboratorName"`
	TotalPaid        float64 `json:"totalPaid"`
	TotalLeftToPay   float64 `json:"totalLeftToPay"`
}

type AcceptedInvoicesOverview struct {
	AcceptedInvoices []AcceptedInvoice    `json:"acceptedInvoices"`
	ByCollaborator   []CollaboratorBalance `json:"byCollaborator"`
}

func (s *InvoiceService) AcceptedInvoicesOverview(ctx context.Context) (*AcceptedInvoicesOverview, error) {
	var projects []*models.Project
	var collaborators []*models.Collaborator

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = s.store.FindProjects(gctx, models.ProjectFilter{
			InvoiceStatus:   models.InvoiceApproved,
			HasInvoice:      true,
			HasCollaborator: true,
			OrderBy:         models.OrderApprovedDesc,
		})
		return err
	})
	g.Go(func() error {
		var err error
		collaborators, err = s.store.ListCollaborators(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &AcceptedInvoicesOverview{
		AcceptedInvoices: acceptedInvoiceRows(projects),
		ByCollaborator:   collaboratorBalances(projects, collaborators),
	}, nil
}

func acceptedInvoiceRows(projects []*models.Project) []AcceptedInvoice {
	groups := make(map[string][]*models.Project)
	for _, p := range projects {
		if p.InMonthlyGroup() {
			groups[p.MonthlyInvoiceID] = append(groups[p.MonthlyInvoiceID], p)
		}
	}

	rows := make([]AcceptedInvoice, 0, len(projects))
	seen := make(map[string]bool)
	for _, p := range projects {
		collaboratorID := ""
		if p.AssignedCollaboratorID != nil {
			collaboratorID = p.AssignedCollaboratorID.String()
		}

		if !p.InMonthlyGroup() {
			rows = append(rows, AcceptedInvoice{
				ID:               p.ID.String(),
				Type:             models.InvoicePerProject,
				Label:            p.Name,
				CollaboratorID:   collaboratorID,
				CollaboratorName: p.AssignedCollaborator.FullName(),
				Amount:           p.PaymentAmount(),
				Paid:             p.CollaboratorPaid,
				PaidAt:           p.CollaboratorPaidAt,
				ProjectID:        p.ID.String(),
			})
			continue
		}

		if seen[p.MonthlyInvoiceID] {
			continue
		}
		seen[p.MonthlyInvoiceID] = true

		row := AcceptedInvoice{
			ID:               p.MonthlyInvoiceID,
			Type:             models.InvoiceMonthly,
			Label:            monthlyInvoiceLabel(p.MonthlyInvoiceMonth),
			CollaboratorID:   collaboratorID,
			CollaboratorName: p.AssignedCollaborator.FullName(),
			Paid:             true,
			MonthlyInvoiceID: p.MonthlyInvoiceID,
			Month:            p.MonthlyInvoiceMonth,
		}
		for _, member := range groups[p.MonthlyInvoiceID] {
			row.Amount += member.PaymentAmount()
			row.Paid = row.Paid && member.CollaboratorPaid
			if row.PaidAt == nil && member.CollaboratorPaidAt != nil {
				row.PaidAt = member.CollaboratorPaidAt
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// monthlyInvoiceLabel renders "2024-03" as "March 2024 – Monthly Invoice".
func monthlyInvoiceLabel(month string) string {
	label := "Monthly"
	if t, err := time.Parse("2006-01", month); err == nil {
		label = t.Format("January 2006")
	}
	return fmt.Sprintf("%s – Monthly Invoice", label)
}

func collaboratorBalances(projects []*models.Project, collaborators []*models.Collaborator) []CollaboratorBalance {
	balances := make([]CollaboratorBalance, 0)
	for _, c := range collaborators {
		var paid, owed float64
		for _, p := range projects {
			if p.AssignedCollaboratorID == nil || *p.AssignedCollaboratorID != c.ID {
				continue
			}
			if p.CollaboratorPaid {
				paid += p.PaymentAmount()
			} else {
				owed += p.PaymentAmount()
			}
		}
		if paid > 0 || owed > 0 {
			balances = append(balances, CollaboratorBalance{
				CollaboratorID:   c.ID.String(),
				CollaboratorName: c.FullName(),
				TotalPaid:        paid,
				TotalLeftToPay:   owed,
			})
		}
	}
	return balances
}
