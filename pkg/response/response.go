// pkg/response/response.go
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire shape every gateway endpoint replies with. The
// dashboard frontend keys on Success before reading Data.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Envelope{Success: true, Data: data})
}

func Message(w http.ResponseWriter, status int, msg string, data interface{}) {
	write(w, status, Envelope{Success: true, Message: msg, Data: data})
}

func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, Envelope{Success: false, Message: msg})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
