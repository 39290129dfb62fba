package jsonapi

import (
	"encoding/json"
	"net/http"
)

// WriteDocument writes a JSON:API document to the response.
func WriteDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

// WriteResource writes a single resource response.
func WriteResource(w http.ResponseWriter, r Resource) {
	WriteDocument(w, http.StatusOK, NewDocument().DataResource(r).Build())
}

// WriteCollection writes a collection response with a count in meta.
func WriteCollection(w http.ResponseWriter, resources []Resource) {
	WriteDocument(w, http.StatusOK, NewDocument().DataCollection(resources).Meta("count", len(resources)).Build())
}

// WriteError writes an error response.
// The HTTP status is derived from the first error's status field.
func WriteError(w http.ResponseWriter, errs ...Error) {
	status := http.StatusInternalServerError
	if len(errs) > 0 && errs[0].StatusCode() != 0 {
		status = errs[0].StatusCode()
	}
	WriteDocument(w, status, NewDocument().Errors(errs...).Build())
}

// WriteErrorFromGo converts a Go error to a JSON:API error response.
func WriteErrorFromGo(w http.ResponseWriter, err error) {
	WriteError(w, ErrFromError(err))
}
