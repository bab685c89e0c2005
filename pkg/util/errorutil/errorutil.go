package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// Marketplace failure kinds. Operations wrap these with context; match with errors.Is.
var (
	ErrUnauthorized          = NewDomainError("UNAUTHORIZED", "caller lacks the required capability", http.StatusForbidden, nil)
	ErrAlreadyRegistered     = NewDomainError("ALREADY_REGISTERED", "identity already registered", http.StatusConflict, nil)
	ErrNotRegistered         = NewDomainError("NOT_REGISTERED", "identity not registered", http.StatusForbidden, nil)
	ErrCannotFindAsset       = NewDomainError("CANNOT_FIND_ASSET", "asset not found", http.StatusNotFound, nil)
	ErrMaxAssetsReached      = NewDomainError("MAX_ASSETS_REACHED", "holder reached the asset cap", http.StatusConflict, nil)
	ErrNotOwner              = NewDomainError("NOT_OWNER", "caller does not own the asset", http.StatusForbidden, nil)
	ErrNotListed             = NewDomainError("NOT_LISTED", "asset is not listed", http.StatusConflict, nil)
	ErrAlreadyUnlisted       = NewDomainError("ALREADY_UNLISTED", "asset is already unlisted", http.StatusConflict, nil)
	ErrDescriptionMismatch   = NewDomainError("DESCRIPTION_MISMATCH", "description does not resolve to asset", http.StatusConflict, nil)
	ErrInsufficientFunds     = NewDomainError("INSUFFICIENT_FUNDS", "payment does not match price", http.StatusPaymentRequired, nil)
	ErrPaymentTransferFailed = NewDomainError("PAYMENT_TRANSFER_FAILED", "payment transfer rejected", http.StatusBadGateway, nil)
	ErrCannotRemove          = NewDomainError("CANNOT_REMOVE", "listed assets cannot be removed", http.StatusConflict, nil)
	ErrTransferFailed        = NewDomainError("TRANSFER_FAILED", "asset not held by seller", http.StatusConflict, nil)
	ErrNotImplemented        = NewDomainError("NOT_IMPLEMENTED", "operation not implemented", http.StatusNotImplemented, nil)
)

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthenticated(message string) error {
	return NewDomainError("UNAUTHENTICATED", message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError. Wrapped sentinels keep
// their code but carry the wrapping message.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr == err {
			return domainErr
		}
		return &DomainError{
			Code:       domainErr.Code,
			Message:    err.Error(),
			HTTPStatus: domainErr.HTTPStatus,
			Details:    domainErr.Details,
			Err:        domainErr.Err,
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
