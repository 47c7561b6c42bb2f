package image

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gallery/service/internal/response"
	"github.com/gallery/service/internal/storage"
)

// Handler serves stored images over HTTP.
type Handler struct {
	store *Store
}

// NewHandler creates a new image Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts the image routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{name}", h.Serve)
}

// Serve godoc
//
//	@Summary		Get stored image
//	@Description	Returns the bytes of an image previously stored through gallery creation.
//	@Tags			images
//	@Produce		octet-stream
//	@Param			name	path		string	true	"Stored file name"
//	@Success		200		{file}		binary
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/images/{name} [get]
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			response.BadRequest(w, "invalid image name")
			return
		}
		name = unescaped
	}

	rc, err := h.store.Open(r.Context(), name)
	if errors.Is(err, ErrInvalidInput) {
		response.BadRequest(w, "invalid image name")
		return
	}
	if errors.Is(err, storage.ErrNotExist) {
		response.NotFound(w, "image not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("open image")
		response.InternalError(w)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("read image")
		response.InternalError(w)
		return
	}

	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
