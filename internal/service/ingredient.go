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

// IngredientService manages a user's private ingredients.
type IngredientService struct {
	store  store.Store
	logger *slog.Logger
}

// NewIngredientService creates a new ingredient service.
func NewIngredientService(store store.Store, logger *slog.Logger) *IngredientService {
	return &IngredientService{
		store:  store,
		logger: logger,
	}
}

// IngredientRequest carries the writable ingredient fields.
type IngredientRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ListIngredients returns all of the user's ingredients, ordered by name descending.
func (s *IngredientService) ListIngredients(ctx context.Context, userID string) ([]*domain.Ingredient, error) {
	ingredients, err := s.store.ListIngredients(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	return ingredients, nil
}

// GetIngredient returns one of the user's ingredients by ID.
func (s *IngredientService) GetIngredient(ctx context.Context, userID, ingredientID string) (*domain.Ingredient, error) {
	ingredient, err := s.store.GetIngredient(ctx, userID, ingredientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("ingredient not found")
		}
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return ingredient, nil
}

// CreateIngredient creates a new ingredient for the user.
// Names are unique per user, compared case-insensitively.
func (s *IngredientService) CreateIngredient(ctx context.Context, userID string, req IngredientRequest) (*domain.Ingredient, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	ingredientID, err := id.Generate("ingr")
	if err != nil {
		return nil, fmt.Errorf("generate ingredient ID: %w", err)
	}

	now := time.Now()
	ingredient := &domain.Ingredient{
		ID:        ingredientID,
		UserID:    userID,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateIngredient(ctx, ingredient); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("ingredient with this name already exists")
		}
		return nil, fmt.Errorf("create ingredient: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Ingredient created", "ingredient_id", ingredientID, "user_id", userID)
	}

	return ingredient, nil
}

// UpdateIngredient renames one of the user's ingredients.
func (s *IngredientService) UpdateIngredient(ctx context.Context, userID, ingredientID string, req IngredientRequest) (*domain.Ingredient, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	ingredient, err := s.GetIngredient(ctx, userID, ingredientID)
	if err != nil {
		return nil, err
	}

	ingredient.Name = req.Name
	ingredient.Touch()

	if err := s.store.UpdateIngredient(ctx, ingredient); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("ingredient with this name already exists")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("ingredient not found")
		}
		return nil, fmt.Errorf("update ingredient: %w", err)
	}

	return ingredient, nil
}

// DeleteIngredient removes one of the user's ingredients. Recipes referencing
// the ingredient keep existing, the association is dropped.
func (s *IngredientService) DeleteIngredient(ctx context.Context, userID, ingredientID string) error {
	if err := s.store.DeleteIngredient(ctx, userID, ingredientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("ingredient not found")
		}
		return fmt.Errorf("delete ingredient: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Ingredient deleted", "ingredient_id", ingredientID, "user_id", userID)
	}

	return nil
}
