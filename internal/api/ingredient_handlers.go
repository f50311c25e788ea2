package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ladleapp/ladle-server/internal/domain"
	"github.com/ladleapp/ladle-server/internal/service"
)

func (s *Server) registerIngredientRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listIngredients",
		Method:      http.MethodGet,
		Path:        "/api/v1/ingredients",
		Summary:     "List ingredients",
		Description: "Returns all ingredients for the current user, ordered by name descending",
		Tags:        []string{"Ingredients"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListIngredients)

	huma.Register(s.api, huma.Operation{
		OperationID: "createIngredient",
		Method:      http.MethodPost,
		Path:        "/api/v1/ingredients",
		Summary:     "Create ingredient",
		Description: "Creates a new ingredient",
		Tags:        []string{"Ingredients"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateIngredient)

	huma.Register(s.api, huma.Operation{
		OperationID: "getIngredient",
		Method:      http.MethodGet,
		Path:        "/api/v1/ingredients/{id}",
		Summary:     "Get ingredient",
		Description: "Returns an ingredient by ID",
		Tags:        []string{"Ingredients"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetIngredient)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateIngredient",
		Method:      http.MethodPut,
		Path:        "/api/v1/ingredients/{id}",
		Summary:     "Update ingredient",
		Description: "Renames an ingredient",
		Tags:        []string{"Ingredients"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateIngredient)

	huma.Register(s.api, huma.Operation{
		OperationID: "patchIngredient",
		Method:      http.MethodPatch,
		Path:        "/api/v1/ingredients/{id}",
		Summary:     "Patch ingredient",
		Description: "Renames an ingredient",
		Tags:        []string{"Ingredients"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateIngredient)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteIngredient",
		Method:      http.MethodDelete,
		Path:        "/api/v1/ingredients/{id}",
		Summary:     "Delete ingredient",
		Description: "Deletes an ingredient. Recipes using it are kept, the association is removed.",
		Tags:        []string{"Ingredients"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteIngredient)
}

// === DTOs ===

// ListIngredientsInput contains parameters for listing ingredients.
type ListIngredientsInput struct {
	Authorization string `header:"Authorization"`
}

// IngredientResponse contains ingredient data in API responses.
type IngredientResponse struct {
	ID        string    `json:"id" doc:"Ingredient ID"`
	Name      string    `json:"name" doc:"Ingredient name"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// ListIngredientsResponse contains a list of ingredients.
type ListIngredientsResponse struct {
	Ingredients []IngredientResponse `json:"ingredients" doc:"List of ingredients"`
}

// ListIngredientsOutput wraps the list ingredients response for Huma.
type ListIngredientsOutput struct {
	Body ListIngredientsResponse
}

// IngredientRequest is the request body for creating or renaming an ingredient.
type IngredientRequest struct {
	Name string `json:"name" doc:"Ingredient name"`
}

// CreateIngredientInput wraps the create ingredient request for Huma.
type CreateIngredientInput struct {
	Authorization string `header:"Authorization"`
	Body          IngredientRequest
}

// IngredientOutput wraps the ingredient response for Huma.
type IngredientOutput struct {
	Body IngredientResponse
}

// CreatedIngredientOutput wraps the ingredient response with a 201 status.
type CreatedIngredientOutput struct {
	Status int
	Body   IngredientResponse
}

// StatusCode tells huma which status to write.
func (o *CreatedIngredientOutput) StatusCode() int {
	return o.Status
}

// GetIngredientInput contains parameters for getting an ingredient.
type GetIngredientInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Ingredient ID"`
}

// UpdateIngredientInput wraps the rename request for Huma.
type UpdateIngredientInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Ingredient ID"`
	Body          IngredientRequest
}

// === Handlers ===

func (s *Server) handleListIngredients(ctx context.Context, input *ListIngredientsInput) (*ListIngredientsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	ingredients, err := s.services.Ingredient.ListIngredients(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]IngredientResponse, len(ingredients))
	for i, ing := range ingredients {
		resp[i] = mapIngredientResponse(ing)
	}

	return &ListIngredientsOutput{Body: ListIngredientsResponse{Ingredients: resp}}, nil
}

func (s *Server) handleCreateIngredient(ctx context.Context, input *CreateIngredientInput) (*CreatedIngredientOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	ing, err := s.services.Ingredient.CreateIngredient(ctx, userID, service.IngredientRequest{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}

	return &CreatedIngredientOutput{
		Status: http.StatusCreated,
		Body:   mapIngredientResponse(ing),
	}, nil
}

func (s *Server) handleGetIngredient(ctx context.Context, input *GetIngredientInput) (*IngredientOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	ing, err := s.services.Ingredient.GetIngredient(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &IngredientOutput{Body: mapIngredientResponse(ing)}, nil
}

func (s *Server) handleUpdateIngredient(ctx context.Context, input *UpdateIngredientInput) (*IngredientOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	ing, err := s.services.Ingredient.UpdateIngredient(ctx, userID, input.ID, service.IngredientRequest{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}

	return &IngredientOutput{Body: mapIngredientResponse(ing)}, nil
}

func (s *Server) handleDeleteIngredient(ctx context.Context, input *GetIngredientInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Ingredient.DeleteIngredient(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Ingredient deleted"}}, nil
}

func mapIngredientResponse(ing *domain.Ingredient) IngredientResponse {
	return IngredientResponse{
		ID:        ing.ID,
		Name:      ing.Name,
		CreatedAt: ing.CreatedAt,
		UpdatedAt: ing.UpdatedAt,
	}
}
