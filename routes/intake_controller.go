package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/webforms/sheetsink/httpx"
	"github.com/webforms/sheetsink/log"
	"github.com/webforms/sheetsink/model"
	"github.com/webforms/sheetsink/notify"
	"github.com/webforms/sheetsink/payload"
	"github.com/webforms/sheetsink/sink"
)

type successBody struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submissionId,omitempty"`
}

// SubmitIntake handles the single webhook route: parse the envelope,
// normalize (or take the legacy path), and append through the sink.
// Server-fault failures additionally fire the notifier.
func SubmitIntake(defaultSheetID string, sk sink.Sink, notifier *notify.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpx.WriteError(w, r, httpx.Validation("could not read request body", nil))
			return
		}

		var env model.Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			httpx.WriteError(w, r, httpx.Validation("invalid JSON body", nil))
			return
		}

		submissionID := uuid.NewString()

		sheetID := env.SheetID
		if sheetID == "" {
			sheetID = defaultSheetID
		}
		if sheetID == "" {
			httpx.WriteError(w, r, httpx.Validation("no sheet ID configured", nil))
			return
		}

		if env.IsLegacy() {
			handleLegacy(w, r, env, sheetID, submissionID, sk, notifier)
			return
		}

		if len(env.Data) == 0 {
			httpx.WriteError(w, r, httpx.Validation("missing data property", topLevelKeys(body)))
			return
		}

		row, err := payload.Normalize(env.Data, time.Now())
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		if err := sk.Append(r.Context(), sheetID, row.Tab, row.Headers, row.Values()); err != nil {
			fail(w, r, notifier, submissionID, err)
			return
		}

		log.Infof("intake: appended submission %s to %q", submissionID, row.Tab)
		httpx.WriteJSON(w, r, http.StatusOK, successBody{
			Success:      true,
			Message:      fmt.Sprintf("Row appended to %s", row.Tab),
			SubmissionID: submissionID,
		})
	}
}

// handleLegacy serves the pre-normalizer request shape: raw tab name
// plus either row objects to append or cell triples to update.
func handleLegacy(w http.ResponseWriter, r *http.Request, env model.Envelope, sheetID, submissionID string, sk sink.Sink, notifier *notify.Notifier) {
	rows, updates, err := sink.ParseLegacyValues(env.Values)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var msg string
	if rows != nil {
		if err := sk.AppendObjects(r.Context(), sheetID, env.TabName, rows); err != nil {
			fail(w, r, notifier, submissionID, err)
			return
		}
		msg = fmt.Sprintf("%d rows appended to %s", len(rows), env.TabName)
	} else {
		if err := sk.UpdateCells(r.Context(), sheetID, env.TabName, updates); err != nil {
			fail(w, r, notifier, submissionID, err)
			return
		}
		msg = fmt.Sprintf("%d cells updated in %s", len(updates), env.TabName)
	}

	log.Infof("intake: legacy request %s: %s", submissionID, msg)
	httpx.WriteJSON(w, r, http.StatusOK, successBody{
		Success:      true,
		Message:      msg,
		SubmissionID: submissionID,
	})
}

func fail(w http.ResponseWriter, r *http.Request, notifier *notify.Notifier, submissionID string, err error) {
	herr := httpx.FromError(err)
	if herr.ServerFault() {
		notifier.Fire(fmt.Sprintf("sheetsink failure [%s] submission=%s: %v", herr.Code, submissionID, err))
	}
	httpx.WriteError(w, r, err)
}

// topLevelKeys lists what the client actually sent, as a diagnostic for
// bodies missing the data property.
func topLevelKeys(body []byte) []string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
