package jsonapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/artpar/routegen/domain/apierr"
)

// NewError creates an Error with the given status, code, and title.
func NewError(status int, code, title, detail string) Error {
	return Error{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  title,
		Detail: detail,
	}
}

// StatusCode returns the HTTP status code as an int.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// ErrBadRequest creates a 400 error pointing at a query parameter.
func ErrBadRequest(param, detail string) Error {
	e := NewError(http.StatusBadRequest, "bad_request", "Bad Request", detail)
	if param != "" {
		e.Source = &ErrorSource{Parameter: param}
	}
	return e
}

// ErrNotFound creates a 404 error.
func ErrNotFound(resourceType, id string) Error {
	return NewError(http.StatusNotFound, "not_found", "Not Found",
		fmt.Sprintf("The %s '%s' was not found", resourceType, id))
}

// ErrUnavailable creates a 503 error.
func ErrUnavailable(detail string) Error {
	return NewError(http.StatusServiceUnavailable, "service_unavailable", "Service Unavailable", detail)
}

// ErrFromError converts a call error into a JSON:API error, keeping the
// status and kind of *apierr.Error values.
func ErrFromError(err error) Error {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		detail := "An internal error occurred"
		if err != nil {
			detail = err.Error()
		}
		return NewError(http.StatusInternalServerError, "internal_error", "Internal Server Error", detail)
	}

	status := apiErr.Status
	switch {
	case status >= 400 && status < 600:
	case apiErr.Kind == apierr.KindTransport:
		status = http.StatusBadGateway
	case apiErr.Kind == apierr.KindSchema:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}
	return NewError(status, string(apiErr.Kind), http.StatusText(status), apiErr.Error())
}
