package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/corkboard-io/corkboard/internal/access"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/token"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/ztrue/tracerr"
)

// Error constants
var (
	ErrInvalidCredentials = errors.New("incorrect login or password")
	ErrNotOwner           = errors.New("not the owner of this resource")
)

// APIError defines a API error.
type APIError struct {
	Code   int    `json:"code"`
	Err    error  `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// NewAPIError returns a new API error. 5xx errors carry a stack trace.
func NewAPIError(code int, err error, detail string) *APIError {
	apiError := &APIError{
		Code:   code,
		Err:    err,
		Detail: detail,
	}
	if code >= 500 {
		apiError.Err = tracerr.Wrap(err)
	}
	return apiError
}

// BadRequest is shorthand for a 400 API error.
func BadRequest(format string, args ...interface{}) *APIError {
	return NewAPIError(http.StatusBadRequest, errors.Errorf(format, args...), "")
}

// NotFound is shorthand for a 404 API error.
func NotFound(what string) *APIError {
	return NewAPIError(http.StatusNotFound, errors.Errorf("%s not found", what), "")
}

func (e *APIError) Error() string {
	return e.Err.Error()
}

// errorSlot is placed in the request context by ErrorHandler. Requests derived
// further down the chain share it, so bound errors reach the handler.
type errorSlot struct {
	err error
}

// BindHTTPRequest binds an API error to a HTTP Request's context.
func (e *APIError) BindHTTPRequest(r *http.Request) {
	if slot, ok := r.Context().Value(ContextError).(*errorSlot); ok {
		slot.err = e
		return
	}
	ctx := context.WithValue(r.Context(), ContextError, e)
	*r = *r.Clone(ctx)
}

// MarshalJSON ...
func (e *APIError) MarshalJSON() ([]byte, error) {
	message := errors.Cause(e.Err).Error()
	if e.Code >= 500 {
		message = http.StatusText(e.Code)
	}
	return json.Marshal(&struct {
		Code   int    `json:"code"`
		Error  string `json:"error"`
		Detail string `json:"detail,omitempty"`
	}{
		Code:   e.Code,
		Error:  message,
		Detail: e.Detail,
	})
}

// ToAPIError maps an error returned by a service to the API error it is reported
// as. Unrecognized errors are internal failures.
func ToAPIError(err error, detail string) *APIError {
	if apiError, ok := err.(*APIError); ok {
		if apiError.Detail == "" {
			apiError.Detail = detail
		}
		return apiError
	}
	switch errors.Cause(err) {
	case access.ErrUnauthenticated, token.ErrInvalidToken, ErrInvalidCredentials:
		return NewAPIError(http.StatusUnauthorized, errors.Cause(err), detail)
	case access.ErrForbidden, ErrNotOwner:
		return NewAPIError(http.StatusForbidden, errors.Cause(err), detail)
	case access.ErrInactive, token.ErrPrincipalInactive:
		return NewAPIError(http.StatusBadRequest, access.ErrInactive, detail)
	case model.ErrRecordNotFound:
		return NewAPIError(http.StatusNotFound, errors.New("not found"), detail)
	}
	return NewAPIError(http.StatusInternalServerError, err, detail)
}

// ErrorHandler is middleware to log and process HTTP errors.
func ErrorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slot := new(errorSlot)
		r = r.WithContext(context.WithValue(r.Context(), ContextError, slot))
		next.ServeHTTP(w, r)
		if slot.err == nil {
			return
		}
		switch err := slot.err.(type) {
		case *APIError:
			entry := log.WithField("code", err.Code).WithField("detail", err.Detail)
			if err.Code == http.StatusUnauthorized {
				w.Header().Set("WWW-Authenticate", "Bearer")
			}
			if traced, ok := err.Err.(tracerr.Error); ok {
				frames := traced.StackTrace()
				if len(frames) > 4 {
					frames = frames[:4]
				}
				entry.WithField("stack", frames).Error(err)
			} else if err.Code >= 500 {
				entry.Error(err)
			} else {
				entry.Debug(err)
			}
			util.JSONResponse(w, err, err.Code)
		case error:
			log.WithField("error", err).Error(err)
			http.Error(w, err.Error(), 500)
		}
	})
}
