package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/prep-mirrors/internal/funnel"
	"github.com/jonathan/prep-mirrors/internal/gateway"
	"github.com/jonathan/prep-mirrors/internal/schemas"
	"github.com/jonathan/prep-mirrors/internal/session"
	"github.com/jonathan/prep-mirrors/internal/suggest"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnauthorized indicates a missing or invalid session token.
type ErrUnauthorized struct {
	Reason string
}

func (e *ErrUnauthorized) Error() string {
	return "unauthorized: " + e.Reason
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErrs validator.ValidationErrors
		reqErr         *ErrValidation
		syntaxErr      *json.SyntaxError
		typeErr        *json.UnmarshalTypeError
		schemaErr      *schemas.ValidationError
		funnelErr      *funnel.ValidationError
		authErr        *ErrUnauthorized
		remoteErr      *funnel.RemoteError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErrs), errors.As(err, &reqErr),
		errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, session.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.As(err, &funnelErr), errors.As(err, &schemaErr),
		errors.Is(err, funnel.ErrCheckpointRejected):
		return http.StatusUnprocessableEntity
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrDismissed):
		return http.StatusGone
	case errors.Is(err, gateway.ErrEmailExists),
		errors.Is(err, funnel.ErrRevealInProgress),
		errors.Is(err, funnel.ErrTerminal),
		errors.Is(err, funnel.ErrRetreatDisabled),
		errors.Is(err, funnel.ErrAnswersLocked),
		errors.Is(err, funnel.ErrNothingToRetry),
		errors.Is(err, funnel.ErrNoRecord),
		errors.Is(err, funnel.ErrNotRevealing),
		errors.Is(err, suggest.ErrNoSelection):
		return http.StatusConflict
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// validationMessage flattens validator errors into a single client-facing message.
func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		ve := validationErrs[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
	}
	return err.Error()
}
