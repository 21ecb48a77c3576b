package api

import (
	"github.com/go-chi/chi/v5"
)

// setupPublicRoutes serves the client dashboard, reached through the
// project's private link.
func setupPublicRoutes(r chi.Router, handlers *routeHandlers) {
	r.Group(func(r chi.Router) {
		r.Get("/projects/simple", handlers.projectHandler.getSimpleProjects())
		r.Get("/projects/{projectID}", handlers.projectHandler.getProject())
		r.Get("/projects/{projectID}/details", handlers.projectHandler.getProjectDetails())
		r.Put("/projects/{projectID}/service", handlers.projectHandler.updateServiceSelection())
		r.Post("/projects/{projectID}/revisions", handlers.projectHandler.claimRevision())
	})
}

// setupUserRoutes requires any signed-in user.
func setupUserRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.authenticate)

		r.Get("/projects/mine", handlers.projectHandler.getMyProjects())
		r.Post("/projects/{projectID}/duplicate", handlers.projectHandler.duplicateForCurrentUser())
		r.Post("/projects/{projectID}/checkout", handlers.checkoutHandler.startCheckout())
	})
}

// setupStaffRoutes are shared by admins and collaborators.
func setupStaffRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.authenticate)
		r.Use(authMiddleware.requireRole(RoleAdmin, RoleCollaborator))

		r.Put("/projects/{projectID}/status", handlers.projectHandler.updateStatus())
		r.Post("/projects/{projectID}/invoice", handlers.projectHandler.uploadInvoice())
		r.Post("/invoices/monthly", handlers.invoiceHandler.uploadMonthlyInvoice())
	})
}

func setupAdminRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.authenticate)
		r.Use(authMiddleware.requireRole(RoleAdmin))

		// Project Handler endpoints
		r.Get("/projects", handlers.projectHandler.getAllProjects())
		r.Post("/projects", handlers.projectHandler.createProject())
		r.Get("/clients/{email}/projects", handlers.projectHandler.getClientProjects())
		r.Post("/projects/{projectID}/invoice/approve", handlers.projectHandler.approveInvoice())
		r.Post("/projects/{projectID}/invoice/reject", handlers.projectHandler.rejectInvoice())
		r.Post("/projects/{projectID}/collaborator", handlers.projectHandler.assignCollaborator())
		r.Delete("/projects/{projectID}/collaborator", handlers.projectHandler.unassignCollaborator())
		r.Post("/projects/{projectID}/collaborator/payout", handlers.projectHandler.recordCollaboratorPayout())
		r.Post("/projects/{projectID}/notify", handlers.projectHandler.notifyClient())

		// Invoice Handler endpoints
		r.Get("/invoices/monthly", handlers.invoiceHandler.getMonthlyInvoices())
		r.Get("/invoices/accepted", handlers.invoiceHandler.getAcceptedInvoices())
	})
}

// setupWebhookRoutes are authenticated by the provider's signature.
func setupWebhookRoutes(r chi.Router, handlers *routeHandlers) {
	r.Post("/webhooks/stripe", handlers.checkoutHandler.stripeWebhook())
}
