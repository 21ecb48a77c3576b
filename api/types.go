package api

import (
	"bytes"
	"encoding/json"
	"strings"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	projectHandler  projectHandler
	invoiceHandler  invoiceHandler
	checkoutHandler checkoutHandler
}

// Amount accepts money as a JSON number or as a string such as "$1,200".
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

type createProjectRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ClientName   string `json:"client_name"`
	ClientEmail  string `json:"client_email"`
	ProjectType  string `json:"project_type"`
	Service      string `json:"service"`
	ServicePrice Amount `json:"service_price"`
	Amount       Amount `json:"amount"`
	Deadline     string `json:"deadline"`
}

type serviceSelectionRequest struct {
	ServiceID    string `json:"service_id"`
	CustomAmount Amount `json:"custom_amount"`
}

type statusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type revisionRequest struct {
	Description string `json:"description"`
}

type assignCollaboratorRequest struct {
	CollaboratorID string `json:"collaborator_id"`
	PaymentAmount  Amount `json:"payment_amount"`
}

type payoutRequest struct {
	TransferID string `json:"transfer_id"`
}

type duplicateResponse struct {
	NewProjectID string `json:"newProjectId"`
}
