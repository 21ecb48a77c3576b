package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/config"
	"github.com/rpupo63/client-project-portal/database"
	"github.com/rpupo63/client-project-portal/models"
	"github.com/rpupo63/client-project-portal/services"
)

const testSecret = "test-secret"

type stubFiles struct{}

func (stubFiles) UploadInvoice(ctx context.Context, owner string, file services.InvoiceFile) (services.StoredFile, error) {
	key := "invoices/" + owner + "/" + file.Name
	return services.StoredFile{URL: "https://files.example.com/" + key, Key: key}, nil
}

type stubNotifier struct{}

func (stubNotifier) NotifyClientDashboardReady(ctx context.Context, email, name string, id uuid.UUID, projectName string) services.NotificationResult {
	return services.NotificationResult{Success: true, MessageID: "msg-1"}
}

type testEnv struct {
	store   *database.MemoryStore
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := database.NewMemoryStore()
	projects := services.NewProjectService(store, stubFiles{}, stubNotifier{})
	deps := Dependencies{
		Projects: projects,
		Invoices: services.NewInvoiceService(store),
		Checkout: services.NewCheckoutServiceWithSessions(projects, nil, services.CheckoutConfig{WebhookSecret: "whsec_test"}),
	}
	cfg := config.Config{"JWT_SECRET": testSecret, "ACCEPTED_ORIGINS": "https://portal.example.com"}
	return &testEnv{
		store:   store,
		handler: newRouter(deps, withConfig(cfg), withStartupTime(time.Now())),
	}
}

func token(t *testing.T, secret string, role Role, email string) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "user-1",
		Email:  email,
		Role:   role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	StatusCode int             `json:"statusCode"`
	Field      string          `json:"field"`
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return e.serve(t, req)
}

func (e *testEnv) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %q", rec.Body.String())
	}
	if env.StatusCode != rec.Code {
		t.Errorf("envelope statusCode %d does not match HTTP status %d", env.StatusCode, rec.Code)
	}
	return rec, env
}

func (e *testEnv) seed(t *testing.T, mutate func(p *models.Project)) *models.Project {
	t.Helper()
	p := models.NewProject("Brand refresh", time.Now().UTC())
	if mutate != nil {
		mutate(p)
	}
	if err := e.store.CreateProject(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !body.Success {
		t.Fatalf("health: %d %+v", rec.Code, body)
	}
}

func TestAuthorization(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		method string
		path   string
		bearer string
		want   int
	}{
		{"admin route without token", http.MethodGet, "/projects", "", http.StatusUnauthorized},
		{"admin route with client token", http.MethodGet, "/projects", token(t, testSecret, RoleClient, "a@example.com"), http.StatusForbidden},
		{"admin route with admin token", http.MethodGet, "/projects", token(t, testSecret, RoleAdmin, "admin@example.com"), http.StatusOK},
		{"forged token", http.MethodGet, "/projects", token(t, "other-secret", RoleAdmin, "admin@example.com"), http.StatusUnauthorized},
		{"staff route with collaborator token", http.MethodPut, "/projects/" + uuid.NewString() + "/status", token(t, testSecret, RoleCollaborator, "c@example.com"), http.StatusBadRequest},
		{"user route without token", http.MethodGet, "/projects/mine", "", http.StatusUnauthorized},
		{"user route with client token", http.MethodGet, "/projects/mine", token(t, testSecret, RoleClient, "a@example.com"), http.StatusOK},
		{"public catalog", http.MethodGet, "/projects/simple", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := env.do(t, tc.method, tc.path, tc.bearer, nil)
			if rec.Code != tc.want {
				t.Fatalf("got %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestCreateAndGetProject(t *testing.T) {
	env := newTestEnv(t)
	admin := token(t, testSecret, RoleAdmin, "admin@example.com")

	rec, body := env.do(t, http.MethodPost, "/projects", admin, map[string]any{
		"name":          "Logo",
		"service":       "Logo Design",
		"service_price": "$250.00",
		"client_email":  "ada@example.com",
	})
	if rec.Code != http.StatusCreated || body.Message != "Project created successfully" {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created models.Project
	if err := json.Unmarshal(body.Data, &created); err != nil {
		t.Fatal(err)
	}
	if created.ServicePrice == nil || *created.ServicePrice != 250 {
		t.Errorf("service price not parsed: %+v", created.ServicePrice)
	}

	rec, _ = env.do(t, http.MethodGet, "/projects/"+created.ID.String(), "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get: %d", rec.Code)
	}

	rec, body = env.do(t, http.MethodGet, "/projects/"+uuid.NewString(), "", nil)
	if rec.Code != http.StatusNotFound || body.Message != "Project not found or invalid link" {
		t.Errorf("missing project: %d %q", rec.Code, body.Message)
	}

	rec, body = env.do(t, http.MethodGet, "/projects/not-a-uuid", "", nil)
	if rec.Code != http.StatusBadRequest || body.Field != "projectID" {
		t.Errorf("bad id: %d %+v", rec.Code, body)
	}

	rec, body = env.do(t, http.MethodPost, "/projects", admin, map[string]any{"service": "Logo"})
	if rec.Code != http.StatusBadRequest || body.Message != "Project name is required" {
		t.Errorf("missing name: %d %q", rec.Code, body.Message)
	}

	rec, _ = env.do(t, http.MethodGet, "/clients/ADA%40example.com/projects", admin, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("client projects: %d %s", rec.Code, rec.Body.String())
	}
}

func TestClaimRevisionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, func(p *models.Project) {
		p.PaymentStatus = models.PaymentPaid
		p.RevisionsUsed = 1
	})

	rec, body := env.do(t, http.MethodPost, "/projects/"+p.ID.String()+"/revisions", "", map[string]string{"description": "Darker blue"})
	if rec.Code != http.StatusOK || body.Message != "Revision claimed successfully. 1 revision(s) remaining." {
		t.Fatalf("claim: %d %q", rec.Code, body.Message)
	}
}

func TestDuplicateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, func(p *models.Project) { p.ClientEmail = "ada@example.com" })

	rec, body := env.do(t, http.MethodPost, "/projects/"+p.ID.String()+"/duplicate", token(t, testSecret, RoleClient, "grace@example.com"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("duplicate: %d %s", rec.Code, rec.Body.String())
	}
	var data duplicateResponse
	if err := json.Unmarshal(body.Data, &data); err != nil || data.NewProjectID == "" {
		t.Fatalf("missing newProjectId: %s", body.Data)
	}

	rec, body = env.do(t, http.MethodPost, "/projects/"+p.ID.String()+"/duplicate", token(t, testSecret, RoleClient, "ada@example.com"), nil)
	if rec.Code != http.StatusBadRequest || body.Message != "This is already your project" {
		t.Errorf("owned: %d %q", rec.Code, body.Message)
	}
}

func TestUploadInvoiceMultipart(t *testing.T) {
	env := newTestEnv(t)
	collab := uuid.New()
	p := env.seed(t, func(p *models.Project) {
		p.PaymentStatus = models.PaymentPaid
		p.AssignedCollaboratorID = &collab
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("invoice", "march.pdf")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("%PDF-1.4"))
	mw.WriteField("invoice_type", "per-project")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/projects/"+p.ID.String()+"/invoice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, testSecret, RoleCollaborator, "c@example.com"))
	rec, body := env.serve(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var projects []models.Project
	if err := json.Unmarshal(body.Data, &projects); err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].InvoiceStatus != models.InvoicePending || !strings.HasSuffix(projects[0].InvoiceURL, "march.pdf") {
		t.Errorf("unexpected projects %+v", projects)
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec, _ := env.serve(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rec.Code)
	}
}

func TestBlockedPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/projects", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec, _ := env.serve(t, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d", rec.Code)
	}
}

func TestAmountUnmarshal(t *testing.T) {
	cases := []struct {
		raw  string
		want Amount
	}{
		{`150`, "150"},
		{`150.5`, "150.5"},
		{`"$1,200"`, "$1,200"},
		{`" 99 "`, "99"},
		{`null`, ""},
	}
	for _, tc := range cases {
		var got struct {
			A Amount `json:"a"`
		}
		if err := json.Unmarshal([]byte(`{"a":`+tc.raw+`}`), &got); err != nil {
			t.Fatalf("%s: %v", tc.raw, err)
		}
		if got.A != tc.want {
			t.Errorf("%s: got %q, want %q", tc.raw, got.A, tc.want)
		}
	}

	var bad struct {
		A Amount `json:"a"`
	}
	if err := json.Unmarshal([]byte(`{"a":true}`), &bad); err == nil {
		t.Error("booleans are not amounts")
	}
}
