package database

import (
	"strings"
	"testing"

	"github.com/rpupo63/client-project-portal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  "host=localhost user=portal dbname=portal sslmode=disable",
		PreferSimpleProtocol: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry run db: %v", err)
	}
	return db
}

func TestScopeFilterSQL(t *testing.T) {
	db := dryRunDB(t)

	tests := []struct {
		name   string
		filter models.ProjectFilter
		want   []string
	}{
		{
			name:   "client by email or user",
			filter: models.ProjectFilter{ClientEmail: "a@example.com", ClientUserID: "user-1"},
			want:   []string{"LOWER(client_email) = LOWER(", "OR client_user =", "ORDER BY created_at DESC"},
		},
		{
			name:   "simple catalog",
			filter: models.ProjectFilter{SimpleCatalog: true},
			want:   []string{"project_type =", "service_price > 0"},
		},
		{
			name: "monthly summary",
			filter: models.ProjectFilter{
				InvoiceType:    models.InvoiceMonthly,
				InMonthlyGroup: true,
				HasInvoice:     true,
				OrderBy:        models.OrderMonthlyInvoice,
			},
			want: []string{"invoice_type =", "COALESCE(monthly_invoice_id, '') <> ''", "ORDER BY monthly_invoice_month DESC,invoice_uploaded_at DESC NULLS LAST"},
		},
		{
			name:   "accepted overview",
			filter: models.ProjectFilter{InvoiceStatus: models.InvoiceApproved, HasCollaborator: true, OrderBy: models.OrderApprovedDesc},
			want:   []string{"invoice_status =", "assigned_collaborator IS NOT NULL", "invoice_approved_at DESC NULLS LAST"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				var projects []*models.Project
				return scopeFilter(tx.Model(&models.Project{}), tt.filter).Find(&projects)
			})
			for _, fragment := range tt.want {
				if !strings.Contains(sql, fragment) {
					t.Errorf("query %q does not contain %q", sql, fragment)
				}
			}
		})
	}
}
