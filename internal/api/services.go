package api

import (
	"github.com/ladleapp/ladle-server/internal/media/images"
	"github.com/ladleapp/ladle-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth       *service.AuthService
	Session    *service.SessionService
	User       *service.UserService
	Tag        *service.TagService
	Ingredient *service.IngredientService
	Recipe     *service.RecipeService
}

// StorageServices groups file storage handlers used by the API server.
type StorageServices struct {
	RecipeImages *images.Storage // Uploaded recipe photos
}
