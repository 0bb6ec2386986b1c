package dto

import (
	"errors"
	"net/http"

	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/rkbridge/backend/internal/domain/shared"
)

// Error codes. Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"

	// POS integration
	ErrCodeLicenseNotConfigured = "ERR_POS_LICENSE_NOT_CONFIGURED"
	ErrCodeSequenceUnavailable  = "ERR_POS_SEQUENCE_UNAVAILABLE"
	ErrCodePOSUnavailable       = "ERR_POS_UNAVAILABLE"
	ErrCodePOSRejected          = "ERR_POS_REJECTED"
	ErrCodePOSBadResponse       = "ERR_POS_BAD_RESPONSE"
	ErrCodeEmptyReference       = "ERR_POS_EMPTY_REFERENCE"
)

var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:             http.StatusInternalServerError,
	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeUnauthorized:         http.StatusUnauthorized,
	ErrCodeForbidden:            http.StatusForbidden,
	ErrCodeTokenExpired:         http.StatusUnauthorized,
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeInvalidState:         http.StatusConflict,
	ErrCodeBusinessRule:         http.StatusUnprocessableEntity,
	ErrCodeLicenseNotConfigured: http.StatusConflict,
	ErrCodeSequenceUnavailable:  http.StatusServiceUnavailable,
	ErrCodePOSUnavailable:       http.StatusBadGateway,
	ErrCodePOSRejected:          http.StatusBadGateway,
	ErrCodePOSBadResponse:       http.StatusBadGateway,
	ErrCodeEmptyReference:       http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 if unknown
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// posErrorCodes is checked in order; the first match wins
var posErrorCodes = []struct {
	err  error
	code string
}{
	{pos.ErrOrderNotFound, ErrCodeNotFound},
	{pos.ErrStationNotFound, ErrCodeNotFound},
	{pos.ErrOrderNotSubmittable, ErrCodeInvalidState},
	{pos.ErrPOSOrderIDAssigned, ErrCodeInvalidState},
	{pos.ErrSubmissionInProgress, ErrCodeInvalidState},
	{pos.ErrNoDishLines, ErrCodeBusinessRule},
	{pos.ErrLicenseNotConfigured, ErrCodeLicenseNotConfigured},
	{pos.ErrSequenceUnavailable, ErrCodeSequenceUnavailable},
	{pos.ErrEmptyDishReference, ErrCodeEmptyReference},
	{pos.ErrTransport, ErrCodePOSUnavailable},
	{pos.ErrSaveRejected, ErrCodePOSRejected},
	{pos.ErrSaveRetriesExhausted, ErrCodePOSRejected},
	{pos.ErrOrderCreateFailed, ErrCodePOSRejected},
	{pos.ErrProtocolStatus, ErrCodePOSRejected},
	{pos.ErrParse, ErrCodePOSBadResponse},
}

// ErrorCode classifies err for the response envelope
func ErrorCode(err error) string {
	for _, m := range posErrorCodes {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return ErrCodeBusinessRule
	}
	return ErrCodeInternal
}
