// Package store defines the persistence interface for the Ladle server.
package store

import (
	"context"

	"github.com/ladleapp/ladle-server/internal/domain"
)

// RecipeFilter narrows ListRecipes results. Empty slices mean "no filter".
// Within either slice the match is an OR (any listed ID); when both slices
// are set a recipe must match both.
type RecipeFilter struct {
	TagIDs        []string
	IngredientIDs []string
}

// Store defines the interface for all persistence operations.
//
// Owned entities (tags, ingredients, recipes) are always scoped by userID;
// a lookup for an entity that exists but belongs to someone else returns
// ErrNotFound, the same as a missing one.
type Store interface {
	// Lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error

	// Auth Sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	DeleteAllUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)

	// Tags
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTag(ctx context.Context, userID, tagID string) (*domain.Tag, error)
	GetTagsByIDs(ctx context.Context, userID string, tagIDs []string) ([]*domain.Tag, error)
	ListTags(ctx context.Context, userID string) ([]*domain.Tag, error)
	UpdateTag(ctx context.Context, tag *domain.Tag) error
	DeleteTag(ctx context.Context, userID, tagID string) error

	// Ingredients
	CreateIngredient(ctx context.Context, ingredient *domain.Ingredient) error
	GetIngredient(ctx context.Context, userID, ingredientID string) (*domain.Ingredient, error)
	GetIngredientsByIDs(ctx context.Context, userID string, ingredientIDs []string) ([]*domain.Ingredient, error)
	ListIngredients(ctx context.Context, userID string) ([]*domain.Ingredient, error)
	UpdateIngredient(ctx context.Context, ingredient *domain.Ingredient) error
	DeleteIngredient(ctx context.Context, userID, ingredientID string) error

	// Recipes
	CreateRecipe(ctx context.Context, recipe *domain.Recipe) error
	GetRecipe(ctx context.Context, userID, recipeID string) (*domain.Recipe, error)
	ListRecipes(ctx context.Context, userID string, filter RecipeFilter) ([]*domain.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *domain.Recipe) error
	DeleteRecipe(ctx context.Context, userID, recipeID string) error
	SetRecipeImage(ctx context.Context, userID, recipeID, imagePath, blurHash string) error
}
