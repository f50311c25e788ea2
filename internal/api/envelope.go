package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the wire version of the response envelope. Bump it
// when the envelope structure changes in a way clients must detect.
const EnvelopeVersion = 1

// APIEnvelope wraps successful responses in a consistent structure.
type APIEnvelope struct {
	Version int  `json:"v" doc:"Envelope version"`
	Success bool `json:"success" doc:"Whether the request succeeded"`
	Data    any  `json:"data,omitempty" doc:"Response payload"`
}

// APIErrorEnvelope wraps error responses, carrying the machine-readable
// code and optional details from the domain error.
type APIErrorEnvelope struct {
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Always false for errors"`
	Code    string `json:"code,omitempty" doc:"Machine-readable error code"`
	Message string `json:"error" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// EnvelopeTransformer wraps every response body in APIEnvelope or
// APIErrorEnvelope based on the status code. Registered as a huma
// transformer so handlers return plain DTOs.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, err := strconv.Atoi(status)
	if err != nil {
		code = 500
	}

	if code < 400 {
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: true,
			Data:    v,
		}, nil
	}

	if apiErr, ok := v.(*APIError); ok {
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}, nil
	}

	if e, ok := v.(error); ok {
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Code:    statusToCode(code),
			Message: e.Error(),
		}, nil
	}

	// Unknown error shape, wrap it as the details.
	return APIErrorEnvelope{
		Version: EnvelopeVersion,
		Success: false,
		Code:    statusToCode(code),
		Message: "request failed",
		Details: v,
	}, nil
}
