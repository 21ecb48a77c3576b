package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/models"
	"github.com/rpupo63/client-project-portal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type projectHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.ProjectService
}

func newProjectHandler(projects *services.ProjectService) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder: NewResponder(logger),
		logger:    logger,
		projects:  projects,
	}
}

// getProject retrieves a project by its private link id
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} Envelope "Project"
// @Failure 404 {object} Envelope "Project not found"
// @Router /projects/{projectID} [get]
func (h projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.Get(r.Context(), projectID)
		if err != nil {
			if errs.IsNotFound(err) {
				err = errs.NewNotFoundError("Project not found or invalid link")
			}
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, "Project retrieved successfully", project)
	}
}

// getProjectDetails returns the project with its briefing and images
// @Summary Get project details
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} Envelope "Project, briefing and images"
// @Router /projects/{projectID}/details [get]
func (h projectHandler) getProjectDetails() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		details, err := h.projects.GetDetails(r.Context(), projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if details.Images == nil {
			details.Images = []*models.BriefingImage{}
		}

		h.responder.WriteSuccess(w, http.StatusOK, "Project details retrieved successfully", details)
	}
}

func (h projectHandler) updateServiceSelection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req serviceSelectionRequest
		if err := decodeJSON(r, &req, "service selection"); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var serviceID *uuid.UUID
		if req.ServiceID != "" {
			id, err := uuid.Parse(req.ServiceID)
			if err != nil {
				h.responder.WriteError(w, errs.NewInvalidFieldError("service_id", "Service ID is not valid"))
				return
			}
			serviceID = &id
		}
		var customAmount *float64
		if req.CustomAmount != "" {
			amount, ok := services.ParseAmount(string(req.CustomAmount))
			if !ok {
				h.responder.WriteError(w, errs.NewInvalidFieldError("custom_amount", "Custom amount must be a number"))
				return
			}
			customAmount = &amount
		}

		project, err := h.projects.UpdateServiceSelection(r.Context(), projectID, serviceID, customAmount)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, "Service selection updated", project)
	}
}

// claimRevision spends one of the project's revisions
// @Summary Claim revision
// @Tags Projects
// @Accept json
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} Envelope "Updated project"
// @Failure 400 {object} Envelope "Unpaid project or no revisions left"
// @Router /projects/{projectID}/revisions [post]
func (h projectHandler) claimRevision() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req revisionRequest
		if err := decodeJSON(r, &req, "revision"); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.projects.ClaimRevision(r.Context(), projectID, req.Description)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, result.Message(), result.Project)
	}
}

func (h projectHandler) getSimpleProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.projects.ListSimpleCatalog(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteSuccess(w, http.StatusOK, "Simple projects retrieved successfully", projects)
	}
}

func (h projectHandler) getMyProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.projects.ListMine(r.Context(), requesterFrom(r.Context()))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteSuccess(w, http.StatusOK, "Your projects retrieved successfully", projects)
	}
}

// duplicateForCurrentUser gives the caller their own unpaid copy
// @Summary Duplicate project for current user
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 201 {object} Envelope "New project id"
// @Failure 400 {object} Envelope "Already your project"
// @Failure 401 {object} Envelope "Not authenticated"
// @Router /projects/{projectID}/duplicate [post]
func (h projectHandler) duplicateForCurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.DuplicateForCurrentUser(r.Context(), projectID, requesterFrom(r.Context()))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusCreated, "Project duplicated for you", duplicateResponse{NewProjectID: project.ID.String()})
	}
}

func (h projectHandler) updateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req statusRequest
		if err := decodeJSON(r, &req, "status"); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.UpdateStatus(r.Context(), projectID, req.Status, req.Notes)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, "Status updated successfully", project)
	}
}

// uploadInvoice stores a collaborator invoice for the project
// @Summary Upload invoice
// @Tags Invoices
// @Accept multipart/form-data
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Param invoice formData file true "Invoice document"
// @Param invoice_type formData string false "per-project or monthly"
// @Param month formData string false "YYYY-MM, monthly invoices only"
// @Success 200 {object} Envelope "Updated projects"
// @Router /projects/{projectID}/invoice [post]
func (h projectHandler) uploadInvoice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		file, closer, err := invoiceFileFromForm(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		defer closer.Close()

		invoiceType := models.InvoiceType(strings.TrimSpace(r.FormValue("invoice_type")))
		projects, err := h.projects.UploadInvoice(r.Context(), projectID, invoiceType, r.FormValue("month"), file)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, "Invoice uploaded successfully", projects)
	}
}

func (h projectHandler) getAllProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.projects.ListAll(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteSuccess(w, http.StatusOK, "Projects retrieved successfully", projects)
	}
}

// createProject creates a new project
// @Summary Create project
// @Description Money fields accept numbers or strings such as "$1,200"
// @Tags Projects
// @Accept json
// @Produce json
// @Param project body createProjectRequest true "Project data"
// @Success 201 {object} Envelope "Created project"
// @Failure 400 {object} Envelope "Invalid project data"
// @Router /projects [post]
func (h projectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProjectRequest
		if err := decodeJSON(r, &req, "project"); err != nil {
			h.logger.Error().Err(err).Msg("Failed to decode project request body")
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.Create(r.Context(), services.CreateProjectInput{
			Name:         req.Name,
			Description:  req.Description,
			ClientName:   req.ClientName,
			ClientEmail:  req.ClientEmail,
			ProjectType:  req.ProjectType,
			Service:      req.Service,
			ServicePrice: string(req.ServicePrice),
			Amount:       string(req.Amount),
			Deadline:     req.Deadline,
		})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusCreated, "Project created successfully", project)
	}
}

func (h projectHandler) getClientProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := url.PathUnescape(chi.URLParam(r, "email"))
		if err != nil {
			h.responder.WriteError(w, errs.NewInvalidFieldError("email", "Client email is not valid"))
			return
		}

		projects, err := h.projects.ListForClient(r.Context(), email)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteSuccess(w, http.StatusOK, "Client projects retrieved successfully", projects)
	}
}

func (h projectHandler) approveInvoice() http.HandlerFunc {
	return h.decideInvoice(models.InvoiceApproved)
}

func (h projectHandler) rejectInvoice() http.HandlerFunc {
	return h.decideInvoice(models.InvoiceRejected)
}

// decideInvoice answers with the single project, or with every project of a
// monthly group and its count.
func (h projectHandler) decideInvoice(decision models.InvoiceStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var result *services.InvoiceDecisionResult
		if decision == models.InvoiceApproved {
			result, err = h.projects.ApproveInvoice(r.Context(), projectID)
		} else {
			result, err = h.projects.RejectInvoice(r.Context(), projectID)
		}
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		switch {
		case result.Monthly() && decision == models.InvoiceApproved:
			h.responder.WriteSuccess(w, http.StatusOK, fmt.Sprintf("Monthly invoice approved successfully for %d project(s)", result.Count), result)
		case result.Monthly():
			h.responder.WriteSuccess(w, http.StatusOK, fmt.Sprintf("Monthly invoice rejected for %d project(s)", result.Count), result)
		case decision == models.InvoiceApproved:
			h.responder.WriteSuccess(w, http.StatusOK, "Invoice approved successfully", result.Projects[0])
		default:
			h.responder.WriteSuccess(w, http.StatusOK, "Invoice rejected", result.Projects[0])
		}
	}
}

func (h projectHandler) assignCollaborator() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req assignCollaboratorRequest
		if err := decodeJSON(r, &req, "collaborator assignment"); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.AssignCollaborator(r.Context(), projectID, req.CollaboratorID, string(req.PaymentAmount))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, "Collaborator assigned successfully", project)
	}
}

func (h projectHandler) unassignCollaborator() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.UnassignCollaborator(r.Context(), projectID)
		if err != nil {
			if errs.IsNotFound(err) {
				err = errs.NewNotFoundError("Project not found")
			}
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, "Collaborator unassigned successfully", project)
	}
}

func (h projectHandler) recordCollaboratorPayout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req payoutRequest
		if err := decodeJSON(r, &req, "payout"); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		projects, err := h.projects.RecordCollaboratorPayout(r.Context(), projectID, req.TransferID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, fmt.Sprintf("Collaborator payout recorded for %d project(s)", len(projects)), projects)
	}
}

func (h projectHandler) notifyClient() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.projects.NotifyClient(r.Context(), projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		message := "Dashboard email sent"
		if !result.Success {
			message = "Dashboard email could not be delivered"
		}
		h.responder.WriteSuccess(w, http.StatusOK, message, result)
	}
}
