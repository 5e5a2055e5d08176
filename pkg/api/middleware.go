package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ssargent/statext/pkg/errs"
)

// apiKeyMiddleware validates the X-API-Key header
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes one zerolog line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			event := logger.Info()
			if ww.Status() >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("request")
		})
	}
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	sendResponse(w, APIResponse{Success: false, Error: message}, statusCode)
}

// sendEngineError maps err's taxonomy code to an HTTP status and includes
// the code in the body. data, when set, travels with the failure (a
// receipt, for instance).
func sendEngineError(w http.ResponseWriter, err error, data interface{}) {
	code := errs.CodeOf(err)
	response := APIResponse{
		Success: false,
		Data:    data,
		Error:   err.Error(),
	}
	if code != errs.CodeUnknown {
		response.Code = uint32(code)
		response.CodeName = code.String()
	}
	sendResponse(w, response, statusFor(code))
}

func sendResponse(w http.ResponseWriter, response APIResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func statusFor(code errs.Code) int {
	switch code {
	case errs.CodeInvalidInstructionData, errs.CodeNotEnoughAccountKeys,
		errs.CodeInvalidAccount, errs.CodeAddressMismatch:
		return http.StatusBadRequest
	case errs.CodeMissingRequiredSignature, errs.CodeAccountNotWritable:
		return http.StatusForbidden
	case errs.CodeExtensionNotFound:
		return http.StatusNotFound
	case errs.CodeAlreadyInitialized, errs.CodeDuplicateExtension, errs.CodeDirectoryFull:
		return http.StatusConflict
	case errs.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case errs.CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}
