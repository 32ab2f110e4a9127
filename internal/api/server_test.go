package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/pbaille/wts/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const fixture = "STRING 1\n" +
	"// Units: H000 (Flag) (Hotkey)\n" +
	"{\n" +
	"Q\n" +
	"}\n" +
	"\n" +
	"STRING 3\n" +
	"{\n" +
	"plain\n" +
	"}\n" +
	"\n"

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "war3map.wts")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0644))

	f, err := store.OpenFile(path)
	require.NoError(t, err)
	return New(f, ":0", zap.NewNop()), path
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type entryBody struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Comment string `json:"comment"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetString(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, "GET", "/strings/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[entryBody](t, rec)
	assert.Equal(t, entryBody{ID: 1, Content: "Q\n", Comment: "// Units: H000 (Flag) (Hotkey)\n"}, got)

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/strings/2", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/strings/abc", "").Code)
}

func TestListStrings(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, "GET", "/strings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Strings []entryBody `json:"strings"`
		Total   int         `json:"total"`
		NextID  int         `json:"next_id"`
	}](t, rec)
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 4, body.NextID)
	require.Len(t, body.Strings, 2)
	assert.Equal(t, 1, body.Strings[0].ID)
	assert.Equal(t, 3, body.Strings[1].ID)

	rec = do(t, h, "GET", "/strings?offset=1&limit=5", "")
	body = decode[struct {
		Strings []entryBody `json:"strings"`
		Total   int         `json:"total"`
		NextID  int         `json:"next_id"`
	}](t, rec)
	require.Len(t, body.Strings, 1)
	assert.Equal(t, 3, body.Strings[0].ID)
}

func TestAddUpdateRemove(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, "POST", "/strings", `{"content":"new text","comment":"// Units: H000 (Flag) (Hotkey)"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	added := decode[entryBody](t, rec)
	assert.Equal(t, 4, added.ID)
	assert.Equal(t, "new text\n", added.Content)

	rec = do(t, h, "GET", "/find?category=Unit&entity=H000&field=Hotkey&level=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[entryBody](t, rec).ID)

	rec = do(t, h, "PUT", "/strings/4", `{"content":"edited\n"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited\n", decode[entryBody](t, rec).Content)

	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/strings/4", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/strings/4", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "PUT", "/strings/4", `{"content":"x"}`).Code)
}

func TestAddRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/strings", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/strings", `{"content":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/strings", `{"content":"a\n}b"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/strings", `{"content":"a","comment":"no prefix"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/strings", `{"content":"a","comment":"// note\nSTRING 77"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/strings", `{"content":"a","comment":"// note\n{"}`).Code)
}

func TestAddedStringsSurviveSave(t *testing.T) {
	s, path := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, "POST", "/strings", `{"content":"hello","comment":"// note\n// more"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 4, decode[entryBody](t, rec).ID)
	require.Equal(t, http.StatusOK, do(t, h, "PUT", "/strings/3", `{"content":"no newline"}`).Code)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/save", "").Code)

	reloaded, err := store.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Store().Len())

	added, err := reloaded.Store().Get(4)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", added.Content)
	assert.Equal(t, "// note\n// more\n", added.Comment())

	edited, err := reloaded.Store().Get(3)
	require.NoError(t, err)
	assert.Equal(t, "no newline\n", edited.Content)
}

func TestFind(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, "GET", "/find?category=Units&entity=H000&field=Hotkey", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[entryBody](t, rec).ID)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/find?category=Unit&entity=H000&field=Hotkey&level=2", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/find?category=Unit&entity=H001&field=Hotkey", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/find?category=Heroes&entity=H000&field=Hotkey", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/find?category=Unit&entity=H000&field=Armor", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/find?category=Unit&field=Hotkey", "").Code)
}

func TestKeys(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), "GET", "/keys", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"keys":[{"key":{"category":"Unit","entity":"H000","field":"Hotkey"},"levels":1}]}`,
		rec.Body.String())
}

func TestSave(t *testing.T) {
	s, path := newTestServer(t)
	h := s.Handler()

	require.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/strings/3", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/save", "").Code)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\xef\xbb\xbfSTRING 1\n// Units: H000 (Flag) (Hotkey)\n{\nQ\n}\n\n", string(data))
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), "OPTIONS", "/strings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
