package app

import (
	"errors"
	"fmt"
	"net/http"

	"collate/api/internal/collate"
	"collate/api/internal/persist"
	"collate/api/internal/session"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var parseErr *collate.ParseFailure
	if errors.As(err, &parseErr) {
		return http.StatusBadRequest, "PARSE_FAILED", parseErr.Error(), map[string]any{"filename": parseErr.Filename}
	}
	switch {
	case errors.Is(err, persist.ErrImportFormatInvalid):
		return http.StatusBadRequest, "INVALID_IMPORT", err.Error(), nil
	case errors.Is(err, persist.ErrProjectNotFound),
		errors.Is(err, session.ErrDocumentNotFound),
		errors.Is(err, session.ErrManualCommentNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error(), nil
	case errors.Is(err, collate.ErrInvalidStatus),
		errors.Is(err, persist.ErrEmptyProjectName),
		errors.Is(err, session.ErrEmptyFilename),
		errors.Is(err, session.ErrEmptyItemID),
		errors.Is(err, session.ErrInvalidManualComment),
		errors.Is(err, session.ErrInvalidView):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, session.ErrDuplicateManualComment):
		return http.StatusConflict, "CONFLICT", err.Error(), nil
	case errors.Is(err, session.ErrParserNotConfigured):
		return http.StatusServiceUnavailable, "PARSER_UNAVAILABLE", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
