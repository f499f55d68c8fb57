/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/acronis/go-governor/log"
)

// ContentTypeAppJSON represents MIME media type for JSON.
const ContentTypeAppJSON = "application/json"

// Error codes.
const (
	ErrCodeInternal         = "internalError"
	ErrCodeNotFound         = "notFound"
	ErrCodeMethodNotAllowed = "methodNotAllowed"
	ErrCodeServiceNotFound  = "serviceNotFound"
	ErrCodeKeyNotFound      = "keyNotFound"
	ErrCodeDurableFailed    = "durableTierFailed"
)

// Error represents an error details.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// NewError creates a new Error with specified params.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AddContext adds value to error context.
func (e *Error) AddContext(field string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[field] = value
	return e
}

// ErrorResponseData is used for answer on requests with error.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

// Does JSON marshaling with disabled HTML escaping.
func jsonMarshal(v interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes()[:buffer.Len()-1], nil
}

func respondJSON(rw http.ResponseWriter, respData interface{}, logger log.FieldLogger) {
	respondCodeAndJSON(rw, http.StatusOK, respData, logger)
}

func respondCodeAndJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	if respData == nil {
		rw.WriteHeader(statusCode)
		return
	}
	respJSON, err := jsonMarshal(respData)
	if err != nil {
		logger.Error("error while marshaling json for response body", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", ContentTypeAppJSON)
	rw.WriteHeader(statusCode)
	if _, err = rw.Write(respJSON); err != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

func respondError(rw http.ResponseWriter, statusCode int, err *Error, logger log.FieldLogger) {
	logger.Warn("admin request failed", log.String("error_code", err.Code), log.String("error_message", err.Message))
	respondCodeAndJSON(rw, statusCode, ErrorResponseData{Err: err}, logger)
}
