package auth

import (
	"encoding/json"
	"log"
	"net/http"
)

// Envelope is the uniform response shape for every endpoint.
type Envelope struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{
		Success:    status < 400,
		StatusCode: status,
		Message:    message,
		Data:       data,
	}); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// WriteError maps any error onto the envelope. Internal details are logged,
// never surfaced.
func WriteError(w http.ResponseWriter, err error) {
	ae := AsError(err)
	if ae.Code == CodeInternal {
		log.Printf("Internal error: %v", ae)
	}
	WriteJSON(w, ae.StatusCode(), ae.Message, nil)
}
