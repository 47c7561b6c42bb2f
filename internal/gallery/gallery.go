// Package gallery manages gallery posts: a title, a description and one
// stored image, together with their persistence and HTTP surface.
package gallery

import (
	"context"
	"errors"
	"time"
)

// Gallery is one persisted gallery post.
type Gallery struct {
	ID          int64
	Image       string
	Title       string
	Description string
	LastUpdate  time.Time
}

// Request carries the client-editable fields of a gallery.
type Request struct {
	Title       string `json:"title"       validate:"max=255" example:"Cats"`
	Description string `json:"description" example:"cute"`
}

// Response is the public shape of a gallery.
type Response struct {
	ID          int64  `json:"id"          example:"1"`
	Image       string `json:"image"       example:"/images/0b8c1c9e-3f0e-4a57-9d6c-6c1b8f0e9f21.png"`
	Title       string `json:"title"       example:"Cats"`
	Description string `json:"description" example:"cute"`
}

func newResponse(g *Gallery) *Response {
	return &Response{
		ID:          g.ID,
		Image:       g.Image,
		Title:       g.Title,
		Description: g.Description,
	}
}

// ErrNotFound is returned when a gallery does not exist.
var ErrNotFound = errors.New("gallery not found")

// ErrMissingImage is returned by Create when no stored image path is given.
var ErrMissingImage = errors.New("gallery image path is required")

// Repository is the persistence contract for galleries.
type Repository interface {
	// Insert stores g, assigning g.ID.
	Insert(ctx context.Context, g *Gallery) error
	// FindByID returns ErrNotFound when no gallery has the id.
	FindByID(ctx context.Context, id int64) (*Gallery, error)
	// FindAll returns every gallery ordered by id.
	FindAll(ctx context.Context) ([]*Gallery, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// Update writes title, description and last update of g. The image
	// column is never written.
	Update(ctx context.Context, g *Gallery) error
	// DeleteByID returns ErrNotFound when no gallery has the id.
	DeleteByID(ctx context.Context, id int64) error
}

// Transactor runs fn inside one write transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
