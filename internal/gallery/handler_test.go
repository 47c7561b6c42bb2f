package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gallery/service/internal/image"
	"github.com/gallery/service/internal/storage"
)

type testEnv struct {
	router http.Handler
	repo   *MemoryRepository
	fs     afero.Fs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, 1<<20)
}

func newTestEnvWith(t *testing.T, saver ImageSaver, maxBytes int64) *testEnv {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if saver == nil {
		saver = image.NewStore(storage.NewLocalStorage(fsys, "images"))
	}
	repo := NewMemoryRepository()
	h := NewHandler(NewService(repo, repo), saver, maxBytes)

	r := chi.NewRouter()
	r.Route("/api/galleries", h.Routes)
	return &testEnv{router: r, repo: repo, fs: fsys}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// uploadRequest builds a multipart create request. An empty filename omits
// the image part; an empty data omits the data part.
func uploadRequest(t *testing.T, filename string, content []byte, data string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	if data != "" {
		require.NoError(t, mw.WriteField("data", data))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/galleries", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) storedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := afero.ReadDir(e.fs, "images")
	if errors.Is(err, afero.ErrFileNotFound) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestHandler_EndToEnd(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, uploadRequest(t, "cat.png", []byte("hello"), `{"title":"Cats","description":"cute"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[Response](t, rec).Data
	assert.Regexp(t, `^/images/[^/]+\.png$`, created.Image)

	stored, err := afero.ReadFile(env.fs, filepath.Join("images", strings.TrimPrefix(created.Image, image.PathPrefix)))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), stored)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/galleries", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]Response](t, rec).Data
	require.Len(t, list, 1)
	assert.Equal(t, "Cats", list[0].Title)
	assert.Equal(t, "cute", list[0].Description)
	assert.Equal(t, created.Image, list[0].Image)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/galleries/"+itoa(created.ID), nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/galleries", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]Response](t, rec).Data)

	// Deleting the gallery leaves the stored file in place.
	assert.Len(t, env.storedFiles(t), 1)
}

func TestHandler_Create_DataAsJSONFilePart(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "dog.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("woof"))
	fw, err = mw.CreateFormFile("data", "blob")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(`{"title":"Dogs","description":"loyal"}`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/galleries", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := env.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Dogs", decodeBody[Response](t, rec).Data.Title)
}

func TestHandler_Create_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		maxBytes int64
		want     int
	}{
		{
			name: "file name without extension",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "cat", []byte("hello"), `{"title":"Cats"}`)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "missing image part",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "", nil, `{"title":"Cats"}`)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "missing data part",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "cat.png", []byte("hello"), "")
			},
			want: http.StatusBadRequest,
		},
		{
			name: "malformed data part",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "cat.png", []byte("hello"), `{"title":`)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "title too long",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "cat.png", []byte("hello"), `{"title":"`+strings.Repeat("x", 256)+`"}`)
			},
			want: http.StatusBadRequest,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/galleries", strings.NewReader(`{"title":"Cats"}`))
			},
			want: http.StatusBadRequest,
		},
		{
			name: "body too large",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "cat.png", bytes.Repeat([]byte("x"), 4096), `{"title":"Cats"}`)
			},
			maxBytes: 1024,
			want:     http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxBytes := tt.maxBytes
			if maxBytes == 0 {
				maxBytes = 1 << 20
			}
			env := newTestEnvWith(t, nil, maxBytes)

			rec := env.do(t, tt.req(t))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.False(t, decodeBody[any](t, rec).Success)

			all, err := env.repo.FindAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Empty(t, env.storedFiles(t))
		})
	}
}

type failingSaver struct{}

func (failingSaver) Save(context.Context, []byte, string) (string, error) {
	return "", errors.New("disk full")
}

func TestHandler_Create_ImageWriteFails(t *testing.T) {
	env := newTestEnvWith(t, failingSaver{}, 1<<20)

	rec := env.do(t, uploadRequest(t, "cat.png", []byte("hello"), `{"title":"Cats"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	all, err := env.repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "no gallery may reference an image that was not written")
}

func TestHandler_GetAndUpdate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, uploadRequest(t, "cat.png", []byte("hello"), `{"title":"Cats","description":"cute"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[Response](t, rec).Data
	path := "/api/galleries/" + itoa(created.ID)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeBody[Response](t, rec).Data)

	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"title":"T2","description":"D2"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[Response](t, rec).Data
	assert.Equal(t, Response{ID: created.ID, Image: created.Image, Title: "T2", Description: "D2"}, updated)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, updated, decodeBody[Response](t, rec).Data)
}

func TestHandler_NotFoundAndBadID(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "get missing", method: http.MethodGet, path: "/api/galleries/7", want: http.StatusNotFound},
		{name: "update missing", method: http.MethodPut, path: "/api/galleries/7", body: `{"title":"x"}`, want: http.StatusNotFound},
		{name: "delete missing", method: http.MethodDelete, path: "/api/galleries/7", want: http.StatusNotFound},
		{name: "get bad id", method: http.MethodGet, path: "/api/galleries/abc", want: http.StatusBadRequest},
		{name: "update bad body", method: http.MethodPut, path: "/api/galleries/7", body: `nope`, want: http.StatusBadRequest},
		{name: "delete bad id", method: http.MethodDelete, path: "/api/galleries/1.5", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
			body := decodeBody[any](t, rec)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestHandler_Delete_MissingIsExplicitError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/galleries/99", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeBody[any](t, rec).Error, "does not exist")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
