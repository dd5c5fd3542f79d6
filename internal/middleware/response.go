package middleware

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/auth"
	"github.com/talyaglobal/tsmartcleaning2-sub003/internal/logging"
)

// ErrorResponse is the body of every rejection.
type ErrorResponse struct {
	Error              string   `json:"error"`
	MissingPermissions []string `json:"missingPermissions,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Err(err).Msg("encode response")
	}
}

// WriteRejection writes rej unchanged.
func WriteRejection(w http.ResponseWriter, rej *auth.Rejection) {
	WriteJSON(w, rej.Status, ErrorResponse{
		Error:              rej.Message,
		MissingPermissions: rej.MissingPermissions,
	})
}

// WriteError writes a rejection verbatim, or logs err and writes the generic
// 500 body. Internal details never reach the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if rej, ok := auth.AsRejection(err); ok {
		WriteRejection(w, rej)
		return
	}
	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: auth.MsgAuthenticationFail})
}
