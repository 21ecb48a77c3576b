package models

import (
	"sort"
	"strings"
	"time"
)

// ProjectOrder selects one of the fixed result orderings.
type ProjectOrder int

const (
	OrderCreatedDesc ProjectOrder = iota
	// OrderMonthlyInvoice sorts by invoice month, then upload time, newest first.
	OrderMonthlyInvoice
	OrderApprovedDesc
)

// ProjectFilter is the closed set of project queries the portal runs. Zero
// fields do not constrain.
type ProjectFilter struct {
	// Client matches client_email (case-insensitive) OR client_user.
	ClientEmail  string
	ClientUserID string

	// SimpleCatalog matches project_type=simple, or non-custom projects that
	// carry a service name and a positive price.
	SimpleCatalog bool

	InvoiceType      InvoiceType
	InvoiceStatus    InvoiceStatus
	MonthlyInvoiceID string
	// InMonthlyGroup requires a non-empty monthly_invoice_id.
	InMonthlyGroup  bool
	HasInvoice      bool
	HasCollaborator bool

	OrderBy ProjectOrder
}

// Matches evaluates the filter in memory. Database stores translate the same
// fields into their query language.
func (f ProjectFilter) Matches(p *Project) bool {
	if f.ClientEmail != "" || f.ClientUserID != "" {
		if !p.OwnedBy(f.ClientEmail, f.ClientUserID) {
			return false
		}
	}
	if f.SimpleCatalog && !p.inSimpleCatalog() {
		return false
	}
	if f.InvoiceType != "" && p.InvoiceType != f.InvoiceType {
		return false
	}
	if f.InvoiceStatus != "" && p.InvoiceStatus != f.InvoiceStatus {
		return false
	}
	if f.MonthlyInvoiceID != "" && p.MonthlyInvoiceID != f.MonthlyInvoiceID {
		return false
	}
	if f.InMonthlyGroup && p.MonthlyInvoiceID == "" {
		return false
	}
	if f.HasInvoice && !p.HasInvoice() {
		return false
	}
	if f.HasCollaborator && p.AssignedCollaboratorID == nil {
		return false
	}
	return true
}

func (p *Project) inSimpleCatalog() bool {
	if p.ProjectType == ProjectTypeSimple {
		return true
	}
	return p.ProjectType != ProjectTypeCustom &&
		strings.TrimSpace(p.ServiceName) != "" &&
		p.ServicePrice != nil && *p.ServicePrice > 0
}

// SortProjects orders projects in place, stable for equal keys.
func SortProjects(projects []*Project, order ProjectOrder) {
	sort.SliceStable(projects, func(i, j int) bool {
		a, b := projects[i], projects[j]
		switch order {
		case OrderMonthlyInvoice:
			if a.MonthlyInvoiceMonth != b.MonthlyInvoiceMonth {
				return a.MonthlyInvoiceMonth > b.MonthlyInvoiceMonth
			}
			return timeAfter(a.InvoiceUploadedAt, b.InvoiceUploadedAt)
		case OrderApprovedDesc:
			return timeAfter(a.InvoiceApprovedAt, b.InvoiceApprovedAt)
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}

// timeAfter sorts set timestamps before unset ones.
func timeAfter(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.After(*b)
}
