package api

import (
	"encoding/json"
	"net/http"

	"atlas-scientific-service/internal/atlaserr"
)

// errorResponse is the JSON body written for any failed request.
type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// statusFor maps a domain error code to an HTTP status. Grounded on
// original_source/src/atlas_scientific_web/errors.py's table; several codes
// are deliberately remapped away from that table's all-400 scheme to fit
// REST conventions better, since this layer is ambient (spec.md's core
// driver semantics don't depend on it).
func statusFor(code atlaserr.Code) int {
	switch code {
	case atlaserr.NoDeviceAtAddressCode:
		return http.StatusNotFound
	case atlaserr.UnsupportedDeviceCode:
		return http.StatusBadRequest
	case atlaserr.ResponseSyntaxCode:
		return http.StatusBadGateway
	case atlaserr.DeviceNotReadyCode:
		return http.StatusServiceUnavailable
	case atlaserr.CommandRejectedCode:
		return http.StatusBadRequest
	case atlaserr.RequestValidationCode:
		return http.StatusBadRequest
	case atlaserr.BusBusyCode:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := atlaserr.Of(err)
	if code == "" {
		code = atlaserr.InternalCode
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(code))
	_ = json.NewEncoder(w).Encode(errorResponse{ErrorCode: string(code), Message: err.Error()})
}
