package routes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webforms/sheetsink/config"
	"github.com/webforms/sheetsink/httpx"
	"github.com/webforms/sheetsink/notify"
	"github.com/webforms/sheetsink/payload"
	"github.com/webforms/sheetsink/ratelimit"
	"github.com/webforms/sheetsink/routes"
	"github.com/webforms/sheetsink/sink"
)

const testSecret = "test-shared-secret"

type appendCall struct {
	sheetID string
	tab     string
	headers []string
	values  []any
}

type objectsCall struct {
	sheetID string
	tab     string
	rows    []map[string]any
}

type updatesCall struct {
	sheetID string
	tab     string
	updates []sink.CellUpdate
}

// fakeSink records calls and optionally fails them.
type fakeSink struct {
	err     error
	appends []appendCall
	objects []objectsCall
	updates []updatesCall
}

func (f *fakeSink) Append(_ context.Context, sheetID, tab string, headers []string, values []any) error {
	f.appends = append(f.appends, appendCall{sheetID, tab, headers, values})
	return f.err
}

func (f *fakeSink) AppendObjects(_ context.Context, sheetID, tab string, rows []map[string]any) error {
	f.objects = append(f.objects, objectsCall{sheetID, tab, rows})
	return f.err
}

func (f *fakeSink) UpdateCells(_ context.Context, sheetID, tab string, updates []sink.CellUpdate) error {
	f.updates = append(f.updates, updatesCall{sheetID, tab, updates})
	return f.err
}

func newTestRouter(sk sink.Sink, defaultSheetID string, limit int) http.Handler {
	cfg := config.Config{
		APISecret:      testSecret,
		DefaultSheetID: defaultSheetID,
		RateLimit:      limit,
		RateWindow:     time.Minute,
	}
	return routes.Wire(cfg, sk, ratelimit.New(limit, cfg.RateWindow), notify.New(""))
}

func doRequest(h http.Handler, method, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testSecret)
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func TestPreflight(t *testing.T) {
	h := newTestRouter(&fakeSink{}, "sheet-1", 10)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://forms.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestValidatorCheckOrder(t *testing.T) {
	h := newTestRouter(&fakeSink{}, "sheet-1", 10)

	t.Run("content type before method", func(t *testing.T) {
		// Wrong method AND wrong content type: content type wins.
		w := doRequest(h, http.MethodGet, "", func(r *http.Request) {
			r.Header.Set("Content-Type", "text/plain")
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("method before auth", func(t *testing.T) {
		w := doRequest(h, http.MethodGet, "", func(r *http.Request) {
			r.Header.Del("Authorization")
		})
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestBearerAuth(t *testing.T) {
	h := newTestRouter(&fakeSink{}, "sheet-1", 100)

	for _, tc := range []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token " + testSecret},
		{"wrong token", "Bearer not-the-secret"},
		{"extra parts", "Bearer " + testSecret + " trailing"},
		{"lowercase scheme", "bearer " + testSecret},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(h, http.MethodPost, "{}", func(r *http.Request) {
				if tc.header == "" {
					r.Header.Del("Authorization")
				} else {
					r.Header.Set("Authorization", tc.header)
				}
			})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
}

func TestRateLimitRejectsOverBudget(t *testing.T) {
	h := newTestRouter(&fakeSink{}, "sheet-1", 2)
	body := `{"data":{"dataType":"user-signup","email":"a@b.c"}}`

	fromClient := func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.9") }

	for i := 0; i < 2; i++ {
		w := doRequest(h, http.MethodPost, body, fromClient)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(h, http.MethodPost, body, fromClient)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// A different forwarded address still has budget.
	w = doRequest(h, http.MethodPost, body, func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "198.51.100.7")
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitBulkAssessment(t *testing.T) {
	fs := &fakeSink{}
	h := newTestRouter(fs, "", 10)

	body := `{"sheetId":"sheet-42","data":{
		"dataType":"bulk-assessment","name":"Ada","email":"ada@example.com",
		"phoneNumber":"555-0100","numberOfAssessments":25}}`
	w := doRequest(h, http.MethodPost, body)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["submissionId"])

	require.Len(t, fs.appends, 1)
	call := fs.appends[0]
	assert.Equal(t, "sheet-42", call.sheetID)
	assert.Equal(t, payload.TabBulkAssessments, call.tab)
	assert.Equal(t, payload.BulkAssessmentHeaders, call.headers)
	require.Len(t, call.values, len(call.headers))
	assert.Equal(t, "Ada", call.values[0])
	assert.Equal(t, "ada@example.com", call.values[1])
}

func TestSheetIDFallback(t *testing.T) {
	t.Run("server default used when request omits it", func(t *testing.T) {
		fs := &fakeSink{}
		h := newTestRouter(fs, "default-sheet", 10)

		w := doRequest(h, http.MethodPost, `{"data":{"dataType":"user-signup","email":"a@b.c"}}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, fs.appends, 1)
		assert.Equal(t, "default-sheet", fs.appends[0].sheetID)
	})

	t.Run("no sheet ID anywhere", func(t *testing.T) {
		h := newTestRouter(&fakeSink{}, "", 10)

		w := doRequest(h, http.MethodPost, `{"data":{"dataType":"user-signup","email":"a@b.c"}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "no sheet ID configured", decodeBody(t, w)["error"])
	})
}

func TestMissingDataListsReceivedKeys(t *testing.T) {
	h := newTestRouter(&fakeSink{}, "sheet-1", 10)

	w := doRequest(h, http.MethodPost, `{"sheetId":"s","payload":{},"extra":1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, "missing data property", resp["error"])
	assert.ElementsMatch(t, []any{"extra", "payload", "sheetId"}, resp["details"])
}

func TestUnknownDataType(t *testing.T) {
	h := newTestRouter(&fakeSink{}, "sheet-1", 10)

	w := doRequest(h, http.MethodPost, `{"data":{"dataType":"mystery"}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unknown data type", decodeBody(t, w)["error"])
}

func TestMissingRequiredFieldNamed(t *testing.T) {
	h := newTestRouter(&fakeSink{}, "sheet-1", 10)

	body := `{"data":{"dataType":"bulk-assessment","name":"Ada","email":"a@b.c","numberOfAssessments":5}}`
	w := doRequest(h, http.MethodPost, body)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "phoneNumber")
}

func TestInvalidJSONBody(t *testing.T) {
	h := newTestRouter(&fakeSink{}, "sheet-1", 10)

	w := doRequest(h, http.MethodPost, `{"data":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSinkFailureReturns500(t *testing.T) {
	fs := &fakeSink{err: httpx.SinkWrite(assert.AnError)}
	h := newTestRouter(fs, "sheet-1", 10)

	w := doRequest(h, http.MethodPost, `{"data":{"dataType":"user-signup","email":"a@b.c"}}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "could not write to spreadsheet", decodeBody(t, w)["error"])
}

func TestLegacyAppendObjects(t *testing.T) {
	fs := &fakeSink{}
	h := newTestRouter(fs, "", 10)

	body := `{"sheetId":"legacy-sheet","tabName":"Sheet1","values":[{"Name":"Ada"},{"Name":"Grace"}],"append":true}`
	w := doRequest(h, http.MethodPost, body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "2 rows appended to Sheet1")

	require.Len(t, fs.objects, 1)
	assert.Equal(t, "legacy-sheet", fs.objects[0].sheetID)
	assert.Equal(t, "Sheet1", fs.objects[0].tab)
	assert.Len(t, fs.objects[0].rows, 2)
	assert.Empty(t, fs.appends)
}

func TestLegacyUpdateCells(t *testing.T) {
	fs := &fakeSink{}
	h := newTestRouter(fs, "", 10)

	body := `{"sheetId":"legacy-sheet","tabName":"Sheet1","values":[[0,0,"Header"],[3,1,42]]}`
	w := doRequest(h, http.MethodPost, body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "2 cells updated in Sheet1")

	require.Len(t, fs.updates, 1)
	require.Len(t, fs.updates[0].updates, 2)
	assert.Equal(t, sink.CellUpdate{Row: 0, Col: 0, Value: "Header"}, fs.updates[0].updates[0])
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(&fakeSink{}, "", 10)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
