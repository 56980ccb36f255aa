package middleware

import (
	"encoding/json"
	"net/http"
)

// writeEnvelope пишет конверт ошибки в формате API.
// Дублирует формат пакета httperr: мидлвари не могут импортировать
// httperr без цикла (httperr зависит от RequestIDFrom).
func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	resp := struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id,omitempty"`
		} `json:"error"`
	}{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.RequestID = RequestIDFrom(r.Context())

	_ = json.NewEncoder(w).Encode(resp)
}
