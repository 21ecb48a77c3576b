package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/database"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Requester is the authenticated caller as far as project ownership goes.
type Requester struct {
	UserID string
	Email  string
}

// InvoiceFileStore persists uploaded invoice documents.
type InvoiceFileStore interface {
	UploadInvoice(ctx context.Context, owner string, file InvoiceFile) (StoredFile, error)
}

// DashboardNotifier tells a client their project dashboard is ready.
type DashboardNotifier interface {
	NotifyClientDashboardReady(ctx context.Context, clientEmail, clientName string, projectID uuid.UUID, projectName string) NotificationResult
}

type ProjectService struct {
	store    database.Store
	files    InvoiceFileStore
	notifier DashboardNotifier
	logger   zerolog.Logger
	now      func() time.Time
}

type ProjectServiceOption func(*ProjectService)

// WithClock replaces time.Now for every timestamp the service writes.
func WithClock(now func() time.Time) ProjectServiceOption {
	return func(s *ProjectService) {
		s.now = now
	}
}

func NewProjectService(store database.Store, files InvoiceFileStore, notifier DashboardNotifier, opts ...ProjectServiceOption) *ProjectService {
	s := &ProjectService{
		store:    store,
		files:    files,
		notifier: notifier,
		logger:   log.With().Str("service", "projects").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProjectInput carries the admin's create form. Money fields are raw
// user input.
type CreateProjectInput struct {
	Name         string
	Description  string
	ClientName   string
	ClientEmail  string
	ProjectType  string
	Service      string
	ServicePrice string
	Amount       string
	Deadline     string
}

func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.NewMissingRequiredFieldError("name", "Project name is required")
	}

	projectType := models.ProjectTypeSimple
	switch models.ProjectType(in.ProjectType) {
	case "", models.ProjectTypeSimple:
	case models.ProjectTypeCustom:
		projectType = models.ProjectTypeCustom
	default:
		return nil, errs.NewInvalidFieldError("project_type", "Project type must be simple or custom")
	}

	var deadline *time.Time
	if strings.TrimSpace(in.Deadline) != "" {
		parsed, err := parseDeadline(in.Deadline)
		if err != nil {
			return nil, err
		}
		deadline = &parsed
	}

	p := models.NewProject(name, s.now())
	p.Description = strings.TrimSpace(in.Description)
	if clientName := strings.TrimSpace(in.ClientName); clientName != "" {
		p.ClientName = clientName
	}
	p.ClientEmail = strings.TrimSpace(in.ClientEmail)
	p.ProjectType = projectType
	p.Deadline = deadline

	switch {
	case projectType == models.ProjectTypeSimple && in.Service != "" && in.Service != models.CustomServiceName:
		p.ServiceName = in.Service
		p.DeliveryTimeline = models.DefaultDeliveryTimeline
		if price, ok := ParseAmount(in.ServicePrice); ok {
			p.ServicePrice = &price
		}
	case projectType == models.ProjectTypeCustom || (in.Service == models.CustomServiceName && in.Amount != ""):
		p.ProjectType = models.ProjectTypeCustom
		p.DeliveryTimeline = models.DefaultDeliveryTimeline
		if amount, ok := ParseAmount(in.Amount); ok {
			p.CustomQuoteAmount = &amount
		}
	}

	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("projectId", p.ID.String()).Str("projectType", string(p.ProjectType)).Msg("project created")
	return p, nil
}

// parseDeadline accepts RFC 3339 timestamps and plain dates.
func parseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errs.NewInvalidFieldError("deadline", "Deadline must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := s.store.FindProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errs.NewNotFoundError("Project not found")
	}
	return p, nil
}

// ProjectDetails is everything the client dashboard shows for one project.
type ProjectDetails struct {
	Project  *models.Project          `json:"project"`
	Briefing *models.ProjectBriefing  `json:"briefing"`
	Images   []*models.BriefingImage `json:"images"`
}

func (s *ProjectService) GetDetails(ctx context.Context, id uuid.UUID) (*ProjectDetails, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	briefing, err := s.store.FindBriefing(ctx, id)
	if err != nil {
		return nil, err
	}
	images, err := s.store.ListBriefingImages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProjectDetails{Project: p, Briefing: briefing, Images: images}, nil
}

func (s *ProjectService) ListAll(ctx context.Context) ([]*models.Project, error) {
	return s.store.FindProjects(ctx, models.ProjectFilter{})
}

func (s *ProjectService) ListForClient(ctx context.Context, email string) ([]*models.Project, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errs.NewMissingRequiredFieldError("email", "Client email is required")
	}
	return s.store.FindProjects(ctx, models.ProjectFilter{ClientEmail: email})
}

func (s *ProjectService) ListSimpleCatalog(ctx context.Context) ([]*models.Project, error) {
	return s.store.FindProjects(ctx, models.ProjectFilter{SimpleCatalog: true})
}

// ListMine returns every project the requester owns, paid or not.
func (s *ProjectService) ListMine(ctx context.Context, who Requester) ([]*models.Project, error) {
	if who.Email == "" {
		return nil, errs.Unauthorized
	}
	return s.store.FindProjects(ctx, models.ProjectFilter{ClientEmail: who.Email, ClientUserID: who.UserID})
}

// UpdateServiceSelection records a catalog service or a custom amount. A
// service id wins when both are given.
func (s *ProjectService) UpdateServiceSelection(ctx context.Context, id uuid.UUID, serviceID *uuid.UUID, customAmount *float64) (*models.Project, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if serviceID != nil {
		svc, err := s.store.FindServiceByID(ctx, *serviceID)
		if err != nil {
			return nil, err
		}
		if svc == nil {
			return nil, errs.NewNotFoundError("Service not found")
		}
	}
	return s.store.UpdateProject(ctx, id, models.ServiceSelection{ServiceID: serviceID, CustomAmount: customAmount}, s.now())
}

// DuplicateInput names the source project and the client the copy is for.
type DuplicateInput struct {
	SourceID     uuid.UUID
	ClientEmail  string
	ClientUserID string
	CopyBriefing bool
}

// Duplicate copies a project for another client. It returns (nil, nil) when
// the source does not exist and an already-owned error when the client owns
// the source.
func (s *ProjectService) Duplicate(ctx context.Context, in DuplicateInput) (*models.Project, error) {
	src, err := s.store.FindProjectByID(ctx, in.SourceID)
	if err != nil || src == nil {
		return nil, err
	}
	if src.OwnedBy(in.ClientEmail, in.ClientUserID) {
		return nil, errs.NewAlreadyOwnedError()
	}

	dup := src.DuplicateFor(in.ClientEmail, in.ClientUserID, s.now())
	if err := s.store.CreateProject(ctx, dup); err != nil {
		return nil, err
	}
	if in.CopyBriefing {
		if err := s.copyBriefing(ctx, src.ID, dup.ID); err != nil {
			s.logger.Error().Err(err).
				Str("sourceProjectId", src.ID.String()).
				Str("orphanProjectId", dup.ID.String()).
				Msg("briefing copy failed, duplicate left without briefing")
			return nil, err
		}
	}

	s.logger.Info().
		Str("sourceProjectId", src.ID.String()).
		Str("projectId", dup.ID.String()).
		Bool("briefingCopied", in.CopyBriefing).
		Msg("project duplicated")
	return dup, nil
}

// copyBriefing clones the briefing and its images. Images without an order
// take their position in the source list.
func (s *ProjectService) copyBriefing(ctx context.Context, from, to uuid.UUID) error {
	briefing, err := s.store.FindBriefing(ctx, from)
	if err != nil {
		return err
	}
	if briefing != nil {
		copied := &models.ProjectBriefing{
			ID:                 uuid.New(),
			ProjectID:          to,
			OverallDescription: briefing.OverallDescription,
			SubmittedAt:        briefing.SubmittedAt,
		}
		if err := s.store.CreateBriefing(ctx, copied); err != nil {
			return err
		}
	}

	images, err := s.store.ListBriefingImages(ctx, from)
	if err != nil {
		return err
	}
	copies := make([]*models.BriefingImage, 0, len(images))
	for i, img := range images {
		order := i
		if img.Order != nil {
			order = *img.Order
		}
		copies = append(copies, &models.BriefingImage{
			ID:        uuid.New(),
			ProjectID: to,
			ImageURL:  img.ImageURL,
			Notes:     img.Notes,
			Order:     &order,
		})
	}
	return s.store.CreateBriefingImages(ctx, copies)
}

// DuplicateForCurrentUser is the "make this mine" flow: the requester gets a
// fresh, unpaid copy of the project.
func (s *ProjectService) DuplicateForCurrentUser(ctx context.Context, sourceID uuid.UUID, who Requester) (*models.Project, error) {
	if who.Email == "" {
		return nil, errs.Unauthorized
	}
	dup, err := s.Duplicate(ctx, DuplicateInput{
		SourceID:     sourceID,
		ClientEmail:  who.Email,
		ClientUserID: who.UserID,
	})
	if err != nil {
		return nil, err
	}
	if dup == nil {
		return nil, errs.NewNotFoundError("Project not found")
	}
	return dup, nil
}

func (s *ProjectService) UpdateStatus(ctx context.Context, id uuid.UUID, status, notes string) (*models.Project, error) {
	update := models.StatusChange{Status: strings.TrimSpace(status), Notes: notes}
	if update.Status == "" {
		return nil, errs.NewMissingRequiredFieldError("status", "Status is required")
	}
	p, err := s.store.UpdateProject(ctx, id, update, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("projectId", id.String()).Str("status", p.Status).Msg("project status updated")
	return p, nil
}

// InvoiceDecisionResult lists every project an approval or rejection touched.
type InvoiceDecisionResult struct {
	Projects         []*models.Project `json:"projects"`
	Count            int               `json:"count"`
	MonthlyInvoiceID string            `json:"monthly_invoice_id,omitempty"`
}

// Monthly reports whether the decision fanned out over a monthly group.
func (r *InvoiceDecisionResult) Monthly() bool {
	return r.MonthlyInvoiceID != ""
}

func (s *ProjectService) ApproveInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDecisionResult, error) {
	return s.decideInvoice(ctx, id, models.InvoiceApproved)
}

func (s *ProjectService) RejectInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDecisionResult, error) {
	return s.decideInvoice(ctx, id, models.InvoiceRejected)
}

// decideInvoice checks the guards once on the named project. A monthly
// invoice then moves its whole group in one store transaction with a single
// timestamp.
func (s *ProjectService) decideInvoice(ctx context.Context, id uuid.UUID, decision models.InvoiceStatus) (*InvoiceDecisionResult, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	update := models.InvoiceDecision{Decision: decision}
	if err := update.Check(p); err != nil {
		return nil, err
	}

	now := s.now()
	if p.InMonthlyGroup() {
		update.GroupMember = true
		projects, err := s.store.UpdateMonthlyGroup(ctx, p.MonthlyInvoiceID, update, now)
		if err != nil {
			return nil, err
		}
		s.logger.Info().
			Str("monthlyInvoiceId", p.MonthlyInvoiceID).
			Str("decision", string(decision)).
			Int("count", len(projects)).
			Msg("monthly invoice decided")
		return &InvoiceDecisionResult{Projects: projects, Count: len(projects), MonthlyInvoiceID: p.MonthlyInvoiceID}, nil
	}

	updated, err := s.store.UpdateProject(ctx, id, update, now)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("projectId", id.String()).Str("decision", string(decision)).Msg("invoice decided")
	return &InvoiceDecisionResult{Projects: []*models.Project{updated}, Count: 1}, nil
}

// AssignCollaborator hands a paid project to a collaborator. rawAmount is
// user input such as "$150".
func (s *ProjectService) AssignCollaborator(ctx context.Context, id uuid.UUID, collaboratorID string, rawAmount string) (*models.Project, error) {
	if strings.TrimSpace(collaboratorID) == "" {
		return nil, errs.NewMissingRequiredFieldError("collaborator_id", "Collaborator ID is required")
	}
	amount, ok := ParseAmount(rawAmount)
	if !ok || amount <= 0 {
		return nil, errs.NewInvalidFieldError("payment_amount", "Payment amount is required and must be greater than 0")
	}
	collabID, err := uuid.Parse(strings.TrimSpace(collaboratorID))
	if err != nil {
		return nil, errs.NewInvalidFieldError("collaborator_id", "Collaborator ID is not valid")
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPaid() {
		return nil, errs.NewPaymentRequiredError("Client must complete payment before you can assign a collaborator.")
	}
	collaborator, err := s.store.FindCollaboratorByID(ctx, collabID)
	if err != nil {
		return nil, err
	}
	if collaborator == nil {
		return nil, errs.NewNotFoundError("Collaborator not found")
	}

	updated, err := s.store.UpdateProject(ctx, id, models.CollaboratorAssignment{CollaboratorID: collabID, Amount: amount}, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("projectId", id.String()).Str("collaboratorId", collabID.String()).Float64("amount", amount).Msg("collaborator assigned")
	return updated, nil
}

func (s *ProjectService) UnassignCollaborator(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.store.UpdateProject(ctx, id, models.CollaboratorRemoval{}, s.now())
}

// RevisionResult is a claimed revision and what is left afterwards.
type RevisionResult struct {
	Project   *models.Project
	Remaining int
}

func (r *RevisionResult) Message() string {
	return fmt.Sprintf("Revision claimed successfully. %d revision(s) remaining.", r.Remaining)
}

func (s *ProjectService) ClaimRevision(ctx context.Context, id uuid.UUID, description string) (*RevisionResult, error) {
	p, err := s.store.UpdateProject(ctx, id, models.RevisionClaim{Description: description}, s.now())
	if err != nil {
		return nil, err
	}
	return &RevisionResult{Project: p, Remaining: p.RevisionsRemaining()}, nil
}

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// UploadInvoice stores a collaborator invoice for one project. A monthly
// upload for a single project starts a group of one.
func (s *ProjectService) UploadInvoice(ctx context.Context, id uuid.UUID, invoiceType models.InvoiceType, month string, file InvoiceFile) ([]*models.Project, error) {
	switch invoiceType {
	case "", models.InvoicePerProject:
	case models.InvoiceMonthly:
		return s.UploadMonthlyInvoice(ctx, []uuid.UUID{id}, month, file)
	default:
		return nil, errs.NewInvalidFieldError("invoice_type", "Invoice type must be per-project or monthly")
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.AssignedCollaboratorID == nil {
		return nil, errs.NewCollaboratorRequiredError("Assign a collaborator before uploading an invoice")
	}
	if p.InvoiceStatus == models.InvoiceApproved {
		return nil, errs.NewInvoiceAlreadyApprovedError()
	}

	stored, err := s.files.UploadInvoice(ctx, id.String(), file)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateProject(ctx, id, models.InvoiceUpload{
		URL:      stored.URL,
		PublicID: stored.Key,
		Type:     models.InvoicePerProject,
	}, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("projectId", id.String()).Str("invoiceKey", stored.Key).Msg("invoice uploaded")
	return []*models.Project{updated}, nil
}

// UploadMonthlyInvoice attaches one invoice file to several projects of the
// same collaborator and groups them under a fresh monthly invoice id.
func (s *ProjectService) UploadMonthlyInvoice(ctx context.Context, ids []uuid.UUID, month string, file InvoiceFile) ([]*models.Project, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, errs.NewMissingRequiredFieldError("project_ids", "At least one project is required")
	}
	month = strings.TrimSpace(month)
	if !monthPattern.MatchString(month) {
		return nil, errs.NewInvalidFieldError("month", "Month must be in YYYY-MM format")
	}

	var collaborator *uuid.UUID
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.AssignedCollaboratorID == nil {
			return nil, errs.NewCollaboratorRequiredError(fmt.Sprintf("Project %q has no assigned collaborator", p.Name))
		}
		if collaborator != nil && *collaborator != *p.AssignedCollaboratorID {
			return nil, errs.NewInvalidFieldError("project_ids", "All projects on a monthly invoice must belong to the same collaborator")
		}
		collaborator = p.AssignedCollaboratorID
		if p.InvoiceStatus == models.InvoiceApproved {
			return nil, errs.NewInvoiceAlreadyApprovedError()
		}
	}

	monthlyID := uuid.NewString()
	stored, err := s.files.UploadInvoice(ctx, monthlyID, file)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.UpdateProjects(ctx, ids, models.InvoiceUpload{
		URL:              stored.URL,
		PublicID:         stored.Key,
		Type:             models.InvoiceMonthly,
		MonthlyInvoiceID: monthlyID,
		Month:            month,
	}, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("monthlyInvoiceId", monthlyID).Str("month", month).Int("count", len(projects)).Msg("monthly invoice uploaded")
	return projects, nil
}

// RecordCollaboratorPayout marks the collaborator paid for an approved
// invoice. Paying a monthly invoice pays its whole group.
func (s *ProjectService) RecordCollaboratorPayout(ctx context.Context, id uuid.UUID, transferID string) ([]*models.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.InvoiceStatus != models.InvoiceApproved {
		return nil, errs.NewInvoiceNotApprovedError()
	}

	transferID = strings.TrimSpace(transferID)
	now := s.now()
	if p.InMonthlyGroup() {
		return s.store.UpdateMonthlyGroup(ctx, p.MonthlyInvoiceID, models.CollaboratorPayout{TransferID: transferID, GroupMember: true}, now)
	}
	updated, err := s.store.UpdateProject(ctx, id, models.CollaboratorPayout{TransferID: transferID}, now)
	if err != nil {
		return nil, err
	}
	return []*models.Project{updated}, nil
}

// MarkPaid records the client payment and sends the dashboard email. Paying
// an already paid project changes nothing.
func (s *ProjectService) MarkPaid(ctx context.Context, id uuid.UUID, stripePaymentID string) (*models.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsPaid() {
		s.logger.Info().Str("projectId", id.String()).Msg("project already paid")
		return p, nil
	}

	updated, err := s.store.UpdateProject(ctx, id, models.PaymentConfirmation{StripePaymentID: stripePaymentID}, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("projectId", id.String()).Str("stripePaymentId", stripePaymentID).Msg("project paid")

	if updated.ClientEmail != "" {
		s.notify(ctx, updated)
	}
	return updated, nil
}

// NotifyClient resends the dashboard email. Delivery failures are reported
// in the result, not as an error.
func (s *ProjectService) NotifyClient(ctx context.Context, id uuid.UUID) (NotificationResult, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return NotificationResult{}, err
	}
	if p.ClientEmail == "" {
		return NotificationResult{}, errs.NewMissingRequiredFieldError("client_email", "Project has no client email")
	}
	return s.notify(ctx, p), nil
}

func (s *ProjectService) notify(ctx context.Context, p *models.Project) NotificationResult {
	result := s.notifier.NotifyClientDashboardReady(ctx, p.ClientEmail, p.ClientName, p.ID, p.Name)
	if !result.Success {
		s.logger.Warn().Str("projectId", p.ID.String()).Str("error", result.Error).Msg("dashboard email not delivered")
	}
	return result
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
