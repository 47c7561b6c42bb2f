package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/gallery/service/internal/image"
	"github.com/gallery/service/internal/response"
)

// ImageSaver stores an uploaded file and returns its public path.
type ImageSaver interface {
	Save(ctx context.Context, content []byte, originalName string) (string, error)
}

// multipartMemory is the part of a multipart body held in memory; the
// remainder spills to temporary files.
const multipartMemory = 8 << 20

// Handler holds HTTP handlers for gallery endpoints.
type Handler struct {
	svc      *Service
	images   ImageSaver
	validate *validator.Validate
	maxBytes int64
}

// NewHandler creates a new gallery Handler. Request bodies larger than
// maxUploadBytes are rejected.
func NewHandler(svc *Service, images ImageSaver, maxUploadBytes int64) *Handler {
	return &Handler{
		svc:      svc,
		images:   images,
		validate: validator.New(),
		maxBytes: maxUploadBytes,
	}
}

// Routes mounts the gallery routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{galleryID}", h.Get)
	r.Put("/{galleryID}", h.Update)
	r.Delete("/{galleryID}", h.Delete)
}

// List godoc
//
//	@Summary		List galleries
//	@Description	Returns every gallery.
//	@Tags			galleries
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=[]Response}
//	@Failure		500	{object}	response.Envelope
//	@Router			/api/galleries [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	galleries, err := h.svc.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list galleries")
		response.InternalError(w)
		return
	}
	response.OK(w, galleries)
}

// Create godoc
//
//	@Summary		Create gallery
//	@Description	Stores the uploaded image, then creates a gallery referencing it. The "data" part is JSON {"title","description"}.
//	@Tags			galleries
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file	true	"Image file; its name must have an extension"
//	@Param			data	formData	string	true	"Gallery JSON, e.g. {\"title\":\"Cats\",\"description\":\"cute\"}"
//	@Success		201		{object}	response.Envelope{data=Response}
//	@Failure		400		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/api/galleries [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(w, "upload too large")
			return
		}
		response.BadRequest(w, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	req, err := h.readDataPart(r.MultipartForm)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "image part is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Msg("read uploaded image")
		response.InternalError(w)
		return
	}

	// The image must be stored before the record that points at it.
	imagePath, err := h.images.Save(r.Context(), content, header.Filename)
	if errors.Is(err, image.ErrInvalidInput) {
		response.BadRequest(w, "image file name must have an extension")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("save image")
		response.InternalError(w)
		return
	}

	created, err := h.svc.Create(r.Context(), req, imagePath)
	if err != nil {
		// The stored file stays behind without a gallery; it is not cleaned up.
		log.Warn().Err(err).Str("image", imagePath).Msg("gallery not created, image left orphaned")
		response.InternalError(w)
		return
	}

	log.Info().Int64("gallery_id", created.ID).Str("image", imagePath).Msg("gallery created")
	response.Created(w, created)
}

// Get godoc
//
//	@Summary		Get gallery
//	@Description	Returns one gallery by id.
//	@Tags			galleries
//	@Produce		json
//	@Param			galleryID	path		int	true	"Gallery id"
//	@Success		200			{object}	response.Envelope{data=Response}
//	@Failure		400			{object}	response.Envelope
//	@Failure		404			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/api/galleries/{galleryID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := galleryID(w, r)
	if !ok {
		return
	}

	g, found, err := h.svc.Get(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("gallery_id", id).Msg("get gallery")
		response.InternalError(w)
		return
	}
	if !found {
		response.NotFound(w, "gallery not found")
		return
	}
	response.OK(w, g)
}

// Update godoc
//
//	@Summary		Update gallery
//	@Description	Replaces title and description. The image is never changed.
//	@Tags			galleries
//	@Accept			json
//	@Produce		json
//	@Param			galleryID	path		int		true	"Gallery id"
//	@Param			request		body		Request	true	"New title and description"
//	@Success		200			{object}	response.Envelope{data=Response}
//	@Failure		400			{object}	response.Envelope
//	@Failure		404			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/api/galleries/{galleryID} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := galleryID(w, r)
	if !ok {
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "title must be at most 255 characters")
		return
	}

	g, found, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		log.Error().Err(err).Int64("gallery_id", id).Msg("update gallery")
		response.InternalError(w)
		return
	}
	if !found {
		response.NotFound(w, "gallery not found")
		return
	}
	response.OK(w, g)
}

// Delete godoc
//
//	@Summary		Delete gallery
//	@Description	Deletes a gallery. Deleting a gallery that does not exist is an error. The stored image file is kept.
//	@Tags			galleries
//	@Param			galleryID	path	int	true	"Gallery id"
//	@Success		204
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/api/galleries/{galleryID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := galleryID(w, r)
	if !ok {
		return
	}

	err := h.svc.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("gallery_id", id).Msg("delete gallery")
		response.InternalError(w)
		return
	}
	response.NoContent(w)
}

// readDataPart decodes the "data" part, sent either as a plain form field
// or as a file part with a JSON body.
func (h *Handler) readDataPart(form *multipart.Form) (Request, error) {
	var req Request
	var raw []byte

	if vals := form.Value["data"]; len(vals) > 0 {
		raw = []byte(vals[0])
	} else if files := form.File["data"]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			return req, errors.New("data part is unreadable")
		}
		defer f.Close()
		if raw, err = io.ReadAll(f); err != nil {
			return req, errors.New("data part is unreadable")
		}
	} else {
		return req, errors.New("data part is required")
	}

	if err := json.Unmarshal(raw, &req); err != nil {
		return req, errors.New("data part must be JSON with title and description")
	}
	if err := h.validate.Struct(req); err != nil {
		return req, errors.New("title must be at most 255 characters")
	}
	return req, nil
}

// galleryID parses the id path parameter, writing a 400 when it is not a number.
func galleryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "galleryID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid gallery id")
		return 0, false
	}
	return id, true
}
