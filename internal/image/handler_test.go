package image

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A minimal valid PNG header is enough for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestRouter(t *testing.T) (http.Handler, *Store) {
	t.Helper()
	store, _ := newTestStore(t)
	r := chi.NewRouter()
	r.Route("/images", NewHandler(store).Routes)
	return r, store
}

func TestHandler_Serve(t *testing.T) {
	router, store := newTestRouter(t)

	ref, err := store.Save(context.Background(), pngBytes, "cat.png")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ref, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestHandler_Serve_EscapedName(t *testing.T) {
	router, store := newTestRouter(t)

	ref, err := store.Save(context.Background(), pngBytes, "cat.p?n#g")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ref, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestHandler_Serve_Errors(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "missing file", path: "/images/unknown.png", want: http.StatusNotFound},
		{name: "dot dot", path: "/images/..", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path = tt.path
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
		})
	}
}
