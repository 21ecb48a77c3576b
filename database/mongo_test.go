package database

import (
	"reflect"
	"testing"

	"github.com/rpupo63/client-project-portal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProjectFilterDoc(t *testing.T) {
	tests := []struct {
		name   string
		filter models.ProjectFilter
		want   bson.M
	}{
		{
			name:   "no constraints",
			filter: models.ProjectFilter{},
			want:   bson.M{},
		},
		{
			name:   "client by email or user",
			filter: models.ProjectFilter{ClientEmail: "A.b+x@example.com", ClientUserID: "user-1"},
			want: bson.M{"$and": bson.A{
				bson.M{"$or": bson.A{
					bson.M{"client_email": primitive.Regex{Pattern: `^A\.b\+x@example\.com$`, Options: "i"}},
					bson.M{"client_user": "user-1"},
				}},
			}},
		},
		{
			name:   "simple catalog",
			filter: models.ProjectFilter{SimpleCatalog: true},
			want: bson.M{"$and": bson.A{
				bson.M{"$or": bson.A{
					bson.M{"project_type": models.ProjectTypeSimple},
					bson.M{
						"project_type":  bson.M{"$ne": models.ProjectTypeCustom},
						"service_name":  bson.M{"$regex": `\S`},
						"service_price": bson.M{"$gt": 0},
					},
				}},
			}},
		},
		{
			name: "monthly summary",
			filter: models.ProjectFilter{
				InvoiceType:    models.InvoiceMonthly,
				InMonthlyGroup: true,
				HasInvoice:     true,
				OrderBy:        models.OrderMonthlyInvoice,
			},
			want: bson.M{"$and": bson.A{
				bson.M{"invoice_type": models.InvoiceMonthly},
				bson.M{"monthly_invoice_id": bson.M{"$nin": bson.A{nil, ""}}},
				bson.M{"invoice_url": bson.M{"$nin": bson.A{nil, ""}}},
			}},
		},
		{
			name:   "accepted overview",
			filter: models.ProjectFilter{InvoiceStatus: models.InvoiceApproved, HasInvoice: true, HasCollaborator: true, OrderBy: models.OrderApprovedDesc},
			want: bson.M{"$and": bson.A{
				bson.M{"invoice_status": models.InvoiceApproved},
				bson.M{"invoice_url": bson.M{"$nin": bson.A{nil, ""}}},
				bson.M{"assigned_collaborator": bson.M{"$ne": nil}},
			}},
		},
		{
			name:   "one monthly group",
			filter: models.ProjectFilter{MonthlyInvoiceID: "grp-1"},
			want:   bson.M{"$and": bson.A{bson.M{"monthly_invoice_id": "grp-1"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := projectFilterDoc(tt.filter)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("projectFilterDoc() = %#v\nwant %#v", got, tt.want)
			}
		})
	}
}

func TestProjectSort(t *testing.T) {
	tests := []struct {
		order models.ProjectOrder
		want  bson.D
	}{
		{models.OrderCreatedDesc, bson.D{{Key: "created_at", Value: -1}}},
		{models.OrderMonthlyInvoice, bson.D{{Key: "monthly_invoice_month", Value: -1}, {Key: "invoice_uploaded_at", Value: -1}}},
		{models.OrderApprovedDesc, bson.D{{Key: "invoice_approved_at", Value: -1}}},
	}
	for _, tt := range tests {
		if got := projectSort(tt.order); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("projectSort(%d) = %v, want %v", tt.order, got, tt.want)
		}
	}
}
