package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type invoiceHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.ProjectService
	invoices  *services.InvoiceService
}

func newInvoiceHandler(projects *services.ProjectService, invoices *services.InvoiceService) invoiceHandler {
	logger := log.With().Str("handlerName", "invoiceHandler").Logger()

	return invoiceHandler{
		responder: NewResponder(logger),
		logger:    logger,
		projects:  projects,
		invoices:  invoices,
	}
}

// uploadMonthlyInvoice attaches one invoice to several projects
// @Summary Upload monthly invoice
// @Tags Invoices
// @Accept multipart/form-data
// @Produce json
// @Param invoice formData file true "Invoice document"
// @Param project_ids formData string true "Comma separated project ids"
// @Param month formData string true "YYYY-MM"
// @Success 200 {object} Envelope "Grouped projects"
// @Router /invoices/monthly [post]
func (h invoiceHandler) uploadMonthlyInvoice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, closer, err := invoiceFileFromForm(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		defer closer.Close()

		var ids []uuid.UUID
		for _, raw := range formValues(r, "project_ids") {
			id, err := uuid.Parse(raw)
			if err != nil {
				h.responder.WriteError(w, errs.NewInvalidFieldError("project_ids", fmt.Sprintf("Project ID %q is not valid", raw)))
				return
			}
			ids = append(ids, id)
		}

		projects, err := h.projects.UploadMonthlyInvoice(r.Context(), ids, r.FormValue("month"), file)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, fmt.Sprintf("Monthly invoice uploaded for %d project(s)", len(projects)), projects)
	}
}

func (h invoiceHandler) getMonthlyInvoices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoices, err := h.invoices.MonthlyInvoiceSummary(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteSuccess(w, http.StatusOK, "Monthly invoices retrieved successfully", invoices)
	}
}

func (h invoiceHandler) getAcceptedInvoices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overview, err := h.invoices.AcceptedInvoicesOverview(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteSuccess(w, http.StatusOK, "Accepted invoices overview retrieved successfully", overview)
	}
}
