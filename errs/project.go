package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Project lifecycle errors. They are invalid state transitions and carry the
// ErrConflict kind, but answer 400 like every other rejected request.
var (
	ErrPaymentRequired        = errors.New("payment required")
	ErrRevisionsExhausted     = errors.New("revisions exhausted")
	ErrInvoiceMissing         = errors.New("no invoice uploaded")
	ErrInvoiceAlreadyApproved = errors.New("invoice already approved")
	ErrInvoiceNotApproved     = errors.New("invoice not approved")
	ErrAlreadyOwned           = errors.New("project already owned by client")
	ErrCollaboratorRequired   = errors.New("collaborator required")
)

func newTransitionError(sentinel error, message string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        errors.New(message),
		kind:       errors.Join(ErrConflict, sentinel),
	}
}

func NewPaymentRequiredError(message string) *ApiErr {
	return newTransitionError(ErrPaymentRequired, message)
}

func NewRevisionsExhaustedError(maxRevisions int) *ApiErr {
	return newTransitionError(ErrRevisionsExhausted, fmt.Sprintf("All %d revisions have been used", maxRevisions))
}

func NewInvoiceMissingError() *ApiErr {
	return newTransitionError(ErrInvoiceMissing, "No invoice uploaded for this project")
}

func NewInvoiceAlreadyApprovedError() *ApiErr {
	return newTransitionError(ErrInvoiceAlreadyApproved, "Invoice is already approved")
}

func NewInvoiceNotApprovedError() *ApiErr {
	return newTransitionError(ErrInvoiceNotApproved, "Invoice must be approved before recording a payout")
}

func NewAlreadyOwnedError() *ApiErr {
	return newTransitionError(ErrAlreadyOwned, "This is already your project")
}

func NewCollaboratorRequiredError(message string) *ApiErr {
	return newTransitionError(ErrCollaboratorRequired, message)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsPaymentRequired(err error) bool {
	return errors.Is(err, ErrPaymentRequired)
}

func IsRevisionsExhausted(err error) bool {
	return errors.Is(err, ErrRevisionsExhausted)
}

func IsInvoiceMissing(err error) bool {
	return errors.Is(err, ErrInvoiceMissing)
}

func IsInvoiceAlreadyApproved(err error) bool {
	return errors.Is(err, ErrInvoiceAlreadyApproved)
}

func IsAlreadyOwned(err error) bool {
	return errors.Is(err, ErrAlreadyOwned)
}
