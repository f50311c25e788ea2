package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ladleapp/ladle-server/internal/domain"
	domainerrors "github.com/ladleapp/ladle-server/internal/errors"
	"github.com/ladleapp/ladle-server/internal/id"
	"github.com/ladleapp/ladle-server/internal/store"
)

// TagService manages a user's private tags.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:  store,
		logger: logger,
	}
}

// TagRequest carries the writable tag fields.
type TagRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ListTags returns all of the user's tags, ordered by name descending.
func (s *TagService) ListTags(ctx context.Context, userID string) ([]*domain.Tag, error) {
	tags, err := s.store.ListTags(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// GetTag returns one of the user's tags by ID.
func (s *TagService) GetTag(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	tag, err := s.store.GetTag(ctx, userID, tagID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("tag not found")
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return tag, nil
}

// CreateTag creates a new tag for the user.
// Names are unique per user, compared case-insensitively.
func (s *TagService) CreateTag(ctx context.Context, userID string, req TagRequest) (*domain.Tag, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, fmt.Errorf("generate tag ID: %w", err)
	}

	now := time.Now()
	tag := &domain.Tag{
		ID:        tagID,
		UserID:    userID,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("tag with this name already exists")
		}
		return nil, fmt.Errorf("create tag: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Tag created", "tag_id", tagID, "user_id", userID)
	}

	return tag, nil
}

// UpdateTag renames one of the user's tags.
func (s *TagService) UpdateTag(ctx context.Context, userID, tagID string, req TagRequest) (*domain.Tag, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	tag, err := s.GetTag(ctx, userID, tagID)
	if err != nil {
		return nil, err
	}

	tag.Name = req.Name
	tag.Touch()

	if err := s.store.UpdateTag(ctx, tag); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("tag with this name already exists")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("tag not found")
		}
		return nil, fmt.Errorf("update tag: %w", err)
	}

	return tag, nil
}

// DeleteTag removes one of the user's tags. Recipes referencing the tag
// keep existing, the association is dropped.
func (s *TagService) DeleteTag(ctx context.Context, userID, tagID string) error {
	if err := s.store.DeleteTag(ctx, userID, tagID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("tag not found")
		}
		return fmt.Errorf("delete tag: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Tag deleted", "tag_id", tagID, "user_id", userID)
	}

	return nil
}
