package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/services"
)

const maxInvoiceUploadBytes = 10 << 20

// Dependencies are the services the router serves.
type Dependencies struct {
	Projects *services.ProjectService
	Invoices *services.InvoiceService
	Checkout *services.CheckoutService
}

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies) *routeHandlers {
	return &routeHandlers{
		projectHandler:  newProjectHandler(deps.Projects),
		invoiceHandler:  newInvoiceHandler(deps.Projects, deps.Invoices),
		checkoutHandler: newCheckoutHandler(deps.Checkout),
	}
}

// projectIDParam parses the {projectID} path segment.
func projectIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "projectID")
	if raw == "" {
		return uuid.Nil, errs.NewMissingRequiredFieldError("projectID", "missing projectID")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.NewInvalidFieldError("projectID", "invalid projectID")
	}
	return id, nil
}

// decodeJSON reads the request body into dst. An empty body leaves dst at
// its zero value.
func decodeJSON(r *http.Request, dst any, payloadName string) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errs.NewMalformedPayloadError(payloadName, err)
}

// invoiceFileFromForm pulls the uploaded invoice out of a multipart request.
// The returned closer releases the file.
func invoiceFileFromForm(w http.ResponseWriter, r *http.Request) (services.InvoiceFile, io.Closer, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxInvoiceUploadBytes)
	if err := r.ParseMultipartForm(maxInvoiceUploadBytes); err != nil {
		return services.InvoiceFile{}, nil, errs.NewMalformedPayloadError("invoice upload", err)
	}
	file, header, err := r.FormFile("invoice")
	if err != nil {
		return services.InvoiceFile{}, nil, errs.NewMissingRequiredFieldError("invoice", "Invoice file is required")
	}
	return services.InvoiceFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, nil
}

// formValues returns every value of key, splitting comma separated entries.
func formValues(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.MultipartForm.Value[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
