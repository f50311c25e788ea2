package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ladleapp/ladle-server/internal/domain"
	domainerrors "github.com/ladleapp/ladle-server/internal/errors"
	"github.com/ladleapp/ladle-server/internal/id"
	"github.com/ladleapp/ladle-server/internal/media/images"
	"github.com/ladleapp/ladle-server/internal/store"
)

// RecipeService manages a user's recipes, their tag and ingredient
// attachments, and uploaded recipe images.
type RecipeService struct {
	store  store.Store
	images *images.Processor
	logger *slog.Logger
}

// NewRecipeService creates a new recipe service.
func NewRecipeService(store store.Store, images *images.Processor, logger *slog.Logger) *RecipeService {
	return &RecipeService{
		store:  store,
		images: images,
		logger: logger,
	}
}

// RecipeRequest carries the writable recipe fields for create and full
// replace. Omitted tag and ingredient lists clear the attachments.
type RecipeRequest struct {
	Title         string   `json:"title" validate:"required,max=255"`
	TimeMinutes   int      `json:"time_minutes" validate:"gte=0"`
	Price         float64  `json:"price" validate:"gte=0"`
	Description   string   `json:"description"`
	Link          string   `json:"link" validate:"max=255"`
	TagIDs        []string `json:"tag_ids"`
	IngredientIDs []string `json:"ingredient_ids"`
}

// PatchRecipeRequest carries partial recipe updates. Nil fields are left
// unchanged, including the attachment lists.
type PatchRecipeRequest struct {
	Title         *string   `json:"title,omitempty" validate:"omitempty,max=255"`
	TimeMinutes   *int      `json:"time_minutes,omitempty" validate:"omitempty,gte=0"`
	Price         *float64  `json:"price,omitempty" validate:"omitempty,gte=0"`
	Description   *string   `json:"description,omitempty"`
	Link          *string   `json:"link,omitempty" validate:"omitempty,max=255"`
	TagIDs        *[]string `json:"tag_ids,omitempty"`
	IngredientIDs *[]string `json:"ingredient_ids,omitempty"`
}

// ListRecipes returns the user's recipes, newest first, optionally narrowed
// by tag and ingredient filters.
func (s *RecipeService) ListRecipes(ctx context.Context, userID string, filter store.RecipeFilter) ([]*domain.Recipe, error) {
	recipes, err := s.store.ListRecipes(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// GetRecipe returns one of the user's recipes with tags and ingredients loaded.
func (s *RecipeService) GetRecipe(ctx context.Context, userID, recipeID string) (*domain.Recipe, error) {
	recipe, err := s.store.GetRecipe(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return recipe, nil
}

// CreateRecipe creates a new recipe for the user. Attached tag and
// ingredient IDs must belong to the same user.
func (s *RecipeService) CreateRecipe(ctx context.Context, userID string, req RecipeRequest) (*domain.Recipe, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	tags, err := s.resolveTags(ctx, userID, req.TagIDs)
	if err != nil {
		return nil, err
	}
	ingredients, err := s.resolveIngredients(ctx, userID, req.IngredientIDs)
	if err != nil {
		return nil, err
	}

	recipeID, err := id.Generate("recipe")
	if err != nil {
		return nil, fmt.Errorf("generate recipe ID: %w", err)
	}

	now := time.Now()
	recipe := &domain.Recipe{
		ID:          recipeID,
		UserID:      userID,
		Title:       req.Title,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Description: req.Description,
		Link:        req.Link,
		Tags:        tags,
		Ingredients: ingredients,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Recipe created", "recipe_id", recipeID, "user_id", userID)
	}

	return recipe, nil
}

// ReplaceRecipe overwrites all writable fields of one of the user's recipes.
// Attachment lists omitted from the request are cleared. The uploaded image
// is untouched.
func (s *RecipeService) ReplaceRecipe(ctx context.Context, userID, recipeID string, req RecipeRequest) (*domain.Recipe, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	recipe, err := s.GetRecipe(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}

	tags, err := s.resolveTags(ctx, userID, req.TagIDs)
	if err != nil {
		return nil, err
	}
	ingredients, err := s.resolveIngredients(ctx, userID, req.IngredientIDs)
	if err != nil {
		return nil, err
	}

	recipe.Title = req.Title
	recipe.TimeMinutes = req.TimeMinutes
	recipe.Price = req.Price
	recipe.Description = req.Description
	recipe.Link = req.Link
	recipe.Tags = tags
	recipe.Ingredients = ingredients
	recipe.Touch()

	if err := s.store.UpdateRecipe(ctx, recipe); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	return recipe, nil
}

// PatchRecipe applies the provided fields to one of the user's recipes.
// Attachment lists are only replaced when present in the request.
func (s *RecipeService) PatchRecipe(ctx context.Context, userID, recipeID string, req PatchRecipeRequest) (*domain.Recipe, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	recipe, err := s.GetRecipe(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, domainerrors.Validation("title cannot be empty")
		}
		recipe.Title = *req.Title
	}
	if req.TimeMinutes != nil {
		recipe.TimeMinutes = *req.TimeMinutes
	}
	if req.Price != nil {
		recipe.Price = *req.Price
	}
	if req.Description != nil {
		recipe.Description = *req.Description
	}
	if req.Link != nil {
		recipe.Link = *req.Link
	}
	if req.TagIDs != nil {
		tags, err := s.resolveTags(ctx, userID, *req.TagIDs)
		if err != nil {
			return nil, err
		}
		recipe.Tags = tags
	}
	if req.IngredientIDs != nil {
		ingredients, err := s.resolveIngredients(ctx, userID, *req.IngredientIDs)
		if err != nil {
			return nil, err
		}
		recipe.Ingredients = ingredients
	}
	recipe.Touch()

	if err := s.store.UpdateRecipe(ctx, recipe); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	return recipe, nil
}

// DeleteRecipe removes one of the user's recipes and its stored image.
func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, recipeID string) error {
	recipe, err := s.GetRecipe(ctx, userID, recipeID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteRecipe(ctx, userID, recipeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("recipe not found")
		}
		return fmt.Errorf("delete recipe: %w", err)
	}

	if recipe.HasImage() {
		if err := s.images.Remove(recipeID); err != nil && s.logger != nil {
			s.logger.Warn("Failed to remove recipe image",
				"recipe_id", recipeID,
				"error", err,
			)
		}
	}

	if s.logger != nil {
		s.logger.Info("Recipe deleted", "recipe_id", recipeID, "user_id", userID)
	}

	return nil
}

// UploadImage validates and stores an image for one of the user's recipes,
// replacing any previous upload. Nothing is persisted when the payload is
// not a decodable image.
func (s *RecipeService) UploadImage(ctx context.Context, userID, recipeID string, data []byte) (*domain.Recipe, error) {
	recipe, err := s.GetRecipe(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}

	imagePath, blurHash, err := s.images.Process(recipeID, data)
	if err != nil {
		return nil, domainerrors.Validation("uploaded file is not a valid image").WithCause(err)
	}

	if err := s.store.SetRecipeImage(ctx, userID, recipeID, imagePath, blurHash); err != nil {
		return nil, fmt.Errorf("set recipe image: %w", err)
	}

	recipe.ImagePath = imagePath
	recipe.ImageBlurHash = blurHash
	recipe.Touch()

	if s.logger != nil {
		s.logger.Info("Recipe image uploaded", "recipe_id", recipeID, "user_id", userID)
	}

	return recipe, nil
}

// DeleteImage removes the uploaded image from one of the user's recipes.
// Deleting when no image exists is not an error.
func (s *RecipeService) DeleteImage(ctx context.Context, userID, recipeID string) error {
	recipe, err := s.GetRecipe(ctx, userID, recipeID)
	if err != nil {
		return err
	}

	if !recipe.HasImage() {
		return nil
	}

	if err := s.images.Remove(recipeID); err != nil {
		return fmt.Errorf("remove image file: %w", err)
	}

	if err := s.store.SetRecipeImage(ctx, userID, recipeID, "", ""); err != nil {
		return fmt.Errorf("clear recipe image: %w", err)
	}

	return nil
}

// GetImage returns the stored image bytes for one of the user's recipes.
func (s *RecipeService) GetImage(ctx context.Context, userID, recipeID string) ([]byte, error) {
	recipe, err := s.GetRecipe(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}

	if !recipe.HasImage() {
		return nil, domainerrors.NotFound("recipe has no image")
	}

	data, err := s.images.Image(recipeID)
	if err != nil {
		return nil, domainerrors.NotFound("recipe image not found").WithCause(err)
	}

	return data, nil
}

// resolveTags loads the user's tags for the given IDs. IDs that don't
// exist, or that belong to another user, fail validation and are named
// in the error details.
func (s *RecipeService) resolveTags(ctx context.Context, userID string, ids []string) ([]domain.Tag, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []domain.Tag{}, nil
	}

	found, err := s.store.GetTagsByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve tags: %w", err)
	}

	byID := make(map[string]*domain.Tag, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	tags := make([]domain.Tag, 0, len(ids))
	var missing []string
	for _, tagID := range ids {
		t, ok := byID[tagID]
		if !ok {
			missing = append(missing, tagID)
			continue
		}
		tags = append(tags, *t)
	}
	if len(missing) > 0 {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"tag_ids": "unknown tag ids: " + strings.Join(missing, ", "),
		})
	}

	return tags, nil
}

// resolveIngredients is the ingredient counterpart of resolveTags.
func (s *RecipeService) resolveIngredients(ctx context.Context, userID string, ids []string) ([]domain.Ingredient, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []domain.Ingredient{}, nil
	}

	found, err := s.store.GetIngredientsByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve ingredients: %w", err)
	}

	byID := make(map[string]*domain.Ingredient, len(found))
	for _, ing := range found {
		byID[ing.ID] = ing
	}

	ingredients := make([]domain.Ingredient, 0, len(ids))
	var missing []string
	for _, ingredientID := range ids {
		ing, ok := byID[ingredientID]
		if !ok {
			missing = append(missing, ingredientID)
			continue
		}
		ingredients = append(ingredients, *ing)
	}
	if len(missing) > 0 {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"ingredient_ids": "unknown ingredient ids: " + strings.Join(missing, ", "),
		})
	}

	return ingredients, nil
}

// dedupe removes duplicate IDs while preserving order.
func dedupe(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
