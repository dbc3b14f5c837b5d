package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/webforms/sheetsink/log"
)

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// WriteError logs the error and renders its JSON body. Client faults log
// at DEBUG, server faults at ERROR with the full cause chain.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	herr := FromError(err)

	if herr.ServerFault() {
		log.Errorf("%s: %v", herr.Code, err)
	} else {
		log.Debugf("%s: %v", herr.Code, err)
	}

	if herr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(herr.RetryAfter))
	}

	render.Status(r, herr.Status)
	render.JSON(w, r, errorBody{Error: herr.Message, Details: herr.Details})
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
