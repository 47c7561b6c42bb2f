package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service contains the business logic for galleries.
type Service struct {
	repo Repository
	tx   Transactor
	now  func() time.Time
}

// NewService creates a new gallery Service.
func NewService(repo Repository, tx Transactor) *Service {
	return &Service{
		repo: repo,
		tx:   tx,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// List returns every gallery in repository order.
func (s *Service) List(ctx context.Context) ([]*Response, error) {
	galleries, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list galleries: %w", err)
	}

	out := make([]*Response, 0, len(galleries))
	for _, g := range galleries {
		out = append(out, newResponse(g))
	}
	return out, nil
}

// Create persists a new gallery pointing at imagePath, which must be a path
// returned by the image store for a file that has already been written.
func (s *Service) Create(ctx context.Context, req Request, imagePath string) (*Response, error) {
	if imagePath == "" {
		return nil, ErrMissingImage
	}

	g := &Gallery{
		Image:       imagePath,
		Title:       req.Title,
		Description: req.Description,
		LastUpdate:  s.now(),
	}
	if err := s.repo.Insert(ctx, g); err != nil {
		return nil, fmt.Errorf("create gallery: %w", err)
	}
	return newResponse(g), nil
}

// Get returns the gallery with id. found is false when it does not exist;
// that case is not an error.
func (s *Service) Get(ctx context.Context, id int64) (resp *Response, found bool, err error) {
	g, err := s.find(ctx, id)
	if err != nil || g == nil {
		return nil, false, err
	}
	return newResponse(g), true, nil
}

// Update replaces title and description of the gallery with id and
// refreshes its last update time. The image is kept. found is false when
// the gallery does not exist; that case is not an error.
func (s *Service) Update(ctx context.Context, id int64, req Request) (resp *Response, found bool, err error) {
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		g, err := s.find(ctx, id)
		if err != nil || g == nil {
			return err
		}

		g.Title = req.Title
		g.Description = req.Description
		g.LastUpdate = s.now()
		err = s.repo.Update(ctx, g)
		if errors.Is(err, ErrNotFound) {
			// Deleted concurrently after the read.
			return nil
		}
		if err != nil {
			return fmt.Errorf("update gallery %d: %w", id, err)
		}

		resp, found = newResponse(g), true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return resp, found, nil
}

// Delete removes the gallery with id. Unlike Get and Update, a missing
// gallery is an error wrapping ErrNotFound. The stored image file is left
// in place.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByID(ctx, id)
		if err != nil {
			return fmt.Errorf("delete gallery %d: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("gallery with id %d does not exist: %w", id, ErrNotFound)
		}
		err = s.repo.DeleteByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("gallery with id %d does not exist: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("delete gallery %d: %w", id, err)
		}
		return nil
	})
}

// find maps the repository's ErrNotFound to a nil gallery.
func (s *Service) find(ctx context.Context, id int64) (*Gallery, error) {
	g, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get gallery %d: %w", id, err)
	}
	return g, nil
}
