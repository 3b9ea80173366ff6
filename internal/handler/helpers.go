package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/mocklogin/internal/model"
)

// writeJSON は任意の値をJSONレスポンスとして書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeEnvelope はResponseを{"response": {...}}の外殻に包んで書き込む。
func writeEnvelope(w http.ResponseWriter, statusCode int, resp model.Response) {
	writeJSON(w, statusCode, model.Envelope{Response: resp})
}
