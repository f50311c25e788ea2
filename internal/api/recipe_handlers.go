package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/ladleapp/ladle-server/internal/domain"
	"github.com/ladleapp/ladle-server/internal/http/response"
	"github.com/ladleapp/ladle-server/internal/service"
	"github.com/ladleapp/ladle-server/internal/store"
)

// maxImageUploadSize caps recipe image uploads at 10 MiB.
const maxImageUploadSize = 10 << 20

func (s *Server) registerRecipeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listRecipes",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes",
		Summary:     "List recipes",
		Description: "Returns the current user's recipes, newest first. Comma separated tag and ingredient ID filters narrow the result.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListRecipes)

	huma.Register(s.api, huma.Operation{
		OperationID: "createRecipe",
		Method:      http.MethodPost,
		Path:        "/api/v1/recipes",
		Summary:     "Create recipe",
		Description: "Creates a new recipe, optionally attaching existing tags and ingredients",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecipe",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Get recipe",
		Description: "Returns a recipe with its tags and ingredients",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "replaceRecipe",
		Method:      http.MethodPut,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Replace recipe",
		Description: "Overwrites all writable fields. Omitted tag and ingredient lists clear the attachments.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReplaceRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "patchRecipe",
		Method:      http.MethodPatch,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Patch recipe",
		Description: "Applies only the provided fields. Omitted tag and ingredient lists are left unchanged.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePatchRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteRecipe",
		Method:      http.MethodDelete,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Delete recipe",
		Description: "Deletes a recipe and its uploaded image",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteRecipeImage",
		Method:      http.MethodDelete,
		Path:        "/api/v1/recipes/{id}/image",
		Summary:     "Delete recipe image",
		Description: "Removes the uploaded image. Deleting when no image exists is a no-op.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteRecipeImage)

	// Binary image handling stays on plain chi routes. Huma's JSON
	// envelope is the wrong shape for multipart uploads and image
	// streaming.
	s.router.Post("/api/v1/recipes/{id}/image", s.handleUploadRecipeImage)
	s.router.Get("/api/v1/recipes/{id}/image", s.handleGetRecipeImage)
	s.router.Get("/images/recipes/{file}", s.handleServeRecipeImage)
}

// === DTOs ===

// ListRecipesInput contains parameters for listing recipes.
type ListRecipesInput struct {
	Authorization string `header:"Authorization"`
	Tags          string `query:"tags" doc:"Comma separated tag IDs to filter by"`
	Ingredients   string `query:"ingredients" doc:"Comma separated ingredient IDs to filter by"`
}

// RecipeSummaryResponse is the compact recipe shape used in lists. Tag and
// ingredient attachments are represented by their IDs only.
type RecipeSummaryResponse struct {
	ID            string    `json:"id" doc:"Recipe ID"`
	Title         string    `json:"title" doc:"Recipe title"`
	TimeMinutes   int       `json:"time_minutes" doc:"Preparation time in minutes"`
	Price         float64   `json:"price" doc:"Approximate price"`
	Link          string    `json:"link,omitempty" doc:"External link"`
	TagIDs        []string  `json:"tag_ids" doc:"Attached tag IDs"`
	IngredientIDs []string  `json:"ingredient_ids" doc:"Attached ingredient IDs"`
	ImageURL      string    `json:"image_url,omitempty" doc:"URL of the uploaded image"`
	ImageBlurHash string    `json:"image_blurhash,omitempty" doc:"BlurHash placeholder for the image"`
	CreatedAt     time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt     time.Time `json:"updated_at" doc:"Last update time"`
}

// RecipeDetailResponse is the full recipe shape with nested tag and
// ingredient objects.
type RecipeDetailResponse struct {
	ID            string               `json:"id" doc:"Recipe ID"`
	Title         string               `json:"title" doc:"Recipe title"`
	TimeMinutes   int                  `json:"time_minutes" doc:"Preparation time in minutes"`
	Price         float64              `json:"price" doc:"Approximate price"`
	Description   string               `json:"description,omitempty" doc:"Recipe description"`
	Link          string               `json:"link,omitempty" doc:"External link"`
	Tags          []TagResponse        `json:"tags" doc:"Attached tags"`
	Ingredients   []IngredientResponse `json:"ingredients" doc:"Attached ingredients"`
	ImageURL      string               `json:"image_url,omitempty" doc:"URL of the uploaded image"`
	ImageBlurHash string               `json:"image_blurhash,omitempty" doc:"BlurHash placeholder for the image"`
	CreatedAt     time.Time            `json:"created_at" doc:"Creation time"`
	UpdatedAt     time.Time            `json:"updated_at" doc:"Last update time"`
}

// ListRecipesResponse contains a list of recipe summaries.
type ListRecipesResponse struct {
	Recipes []RecipeSummaryResponse `json:"recipes" doc:"List of recipes"`
}

// ListRecipesOutput wraps the list recipes response for Huma.
type ListRecipesOutput struct {
	Body ListRecipesResponse
}

// RecipeRequest is the request body for creating or replacing a recipe.
type RecipeRequest struct {
	Title         string   `json:"title" doc:"Recipe title"`
	TimeMinutes   int      `json:"time_minutes,omitempty" doc:"Preparation time in minutes"`
	Price         float64  `json:"price,omitempty" doc:"Approximate price"`
	Description   string   `json:"description,omitempty" doc:"Recipe description"`
	Link          string   `json:"link,omitempty" doc:"External link"`
	TagIDs        []string `json:"tag_ids,omitempty" doc:"Tag IDs to attach"`
	IngredientIDs []string `json:"ingredient_ids,omitempty" doc:"Ingredient IDs to attach"`
}

// PatchRecipeRequest is the request body for partial recipe updates. Absent
// fields are left unchanged.
type PatchRecipeRequest struct {
	Title         *string   `json:"title,omitempty" doc:"Recipe title"`
	TimeMinutes   *int      `json:"time_minutes,omitempty" doc:"Preparation time in minutes"`
	Price         *float64  `json:"price,omitempty" doc:"Approximate price"`
	Description   *string   `json:"description,omitempty" doc:"Recipe description"`
	Link          *string   `json:"link,omitempty" doc:"External link"`
	TagIDs        *[]string `json:"tag_ids,omitempty" doc:"Tag IDs to attach, replaces the current set"`
	IngredientIDs *[]string `json:"ingredient_ids,omitempty" doc:"Ingredient IDs to attach, replaces the current set"`
}

// CreateRecipeInput wraps the create recipe request for Huma.
type CreateRecipeInput struct {
	Authorization string `header:"Authorization"`
	Body          RecipeRequest
}

// GetRecipeInput contains parameters for operating on a single recipe.
type GetRecipeInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
}

// ReplaceRecipeInput wraps the replace request for Huma.
type ReplaceRecipeInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
	Body          RecipeRequest
}

// PatchRecipeInput wraps the patch request for Huma.
type PatchRecipeInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
	Body          PatchRecipeRequest
}

// RecipeOutput wraps the recipe detail response for Huma.
type RecipeOutput struct {
	Body RecipeDetailResponse
}

// CreatedRecipeOutput wraps the recipe detail response with a 201 status.
type CreatedRecipeOutput struct {
	Status int
	Body   RecipeDetailResponse
}

// StatusCode tells huma which status to write.
func (o *CreatedRecipeOutput) StatusCode() int {
	return o.Status
}

// === Handlers ===

func (s *Server) handleListRecipes(ctx context.Context, input *ListRecipesInput) (*ListRecipesOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	filter := store.RecipeFilter{
		TagIDs:        splitFilterParam(input.Tags),
		IngredientIDs: splitFilterParam(input.Ingredients),
	}

	recipes, err := s.services.Recipe.ListRecipes(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]RecipeSummaryResponse, len(recipes))
	for i, r := range recipes {
		resp[i] = mapRecipeSummaryResponse(r)
	}

	return &ListRecipesOutput{Body: ListRecipesResponse{Recipes: resp}}, nil
}

func (s *Server) handleCreateRecipe(ctx context.Context, input *CreateRecipeInput) (*CreatedRecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	recipe, err := s.services.Recipe.CreateRecipe(ctx, userID, mapRecipeRequest(input.Body))
	if err != nil {
		return nil, err
	}

	return &CreatedRecipeOutput{
		Status: http.StatusCreated,
		Body:   mapRecipeDetailResponse(recipe),
	}, nil
}

func (s *Server) handleGetRecipe(ctx context.Context, input *GetRecipeInput) (*RecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	recipe, err := s.services.Recipe.GetRecipe(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &RecipeOutput{Body: mapRecipeDetailResponse(recipe)}, nil
}

func (s *Server) handleReplaceRecipe(ctx context.Context, input *ReplaceRecipeInput) (*RecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	recipe, err := s.services.Recipe.ReplaceRecipe(ctx, userID, input.ID, mapRecipeRequest(input.Body))
	if err != nil {
		return nil, err
	}

	return &RecipeOutput{Body: mapRecipeDetailResponse(recipe)}, nil
}

func (s *Server) handlePatchRecipe(ctx context.Context, input *PatchRecipeInput) (*RecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	recipe, err := s.services.Recipe.PatchRecipe(ctx, userID, input.ID, service.PatchRecipeRequest{
		Title:         input.Body.Title,
		TimeMinutes:   input.Body.TimeMinutes,
		Price:         input.Body.Price,
		Description:   input.Body.Description,
		Link:          input.Body.Link,
		TagIDs:        input.Body.TagIDs,
		IngredientIDs: input.Body.IngredientIDs,
	})
	if err != nil {
		return nil, err
	}

	return &RecipeOutput{Body: mapRecipeDetailResponse(recipe)}, nil
}

func (s *Server) handleDeleteRecipe(ctx context.Context, input *GetRecipeInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Recipe.DeleteRecipe(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Recipe deleted"}}, nil
}

func (s *Server) handleDeleteRecipeImage(ctx context.Context, input *GetRecipeInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Recipe.DeleteImage(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Recipe image deleted"}}, nil
}

// handleUploadRecipeImage accepts a multipart upload under the "image" form
// field, re-encodes it, and attaches it to the recipe.
func (s *Server) handleUploadRecipeImage(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticateRequest(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		response.Unauthorized(w, "Invalid or expired token", s.logger)
		return
	}
	recipeID := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadSize)
	if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
		response.BadRequest(w, "Invalid multipart form data", s.logger)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "Missing image file in form field 'image'", s.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "Failed to read uploaded file", s.logger)
		return
	}

	recipe, err := s.services.Recipe.UploadImage(r.Context(), userID, recipeID, data)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, mapRecipeDetailResponse(recipe), s.logger)
}

// handleGetRecipeImage streams the current user's recipe image.
func (s *Server) handleGetRecipeImage(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticateRequest(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		response.Unauthorized(w, "Invalid or expired token", s.logger)
		return
	}
	recipeID := chi.URLParam(r, "id")

	data, err := s.services.Recipe.GetImage(r.Context(), userID, recipeID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	writeImage(w, data)
}

// handleServeRecipeImage streams a stored image by filename. Filenames are
// random nanoid-based recipe IDs, so the URL itself is the capability.
func (s *Server) handleServeRecipeImage(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	if strings.ContainsAny(file, `/\`) || strings.Contains(file, "..") {
		response.NotFound(w, "Image not found", s.logger)
		return
	}
	recipeID := strings.TrimSuffix(file, ".jpg")
	if recipeID == "" || recipeID == file {
		response.NotFound(w, "Image not found", s.logger)
		return
	}

	data, err := s.storage.RecipeImages.Get(recipeID)
	if err != nil {
		response.NotFound(w, "Image not found", s.logger)
		return
	}

	writeImage(w, data)
}

func writeImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// === Mappers ===

func mapRecipeRequest(req RecipeRequest) service.RecipeRequest {
	return service.RecipeRequest{
		Title:         req.Title,
		TimeMinutes:   req.TimeMinutes,
		Price:         req.Price,
		Description:   req.Description,
		Link:          req.Link,
		TagIDs:        req.TagIDs,
		IngredientIDs: req.IngredientIDs,
	}
}

func mapRecipeSummaryResponse(r *domain.Recipe) RecipeSummaryResponse {
	return RecipeSummaryResponse{
		ID:            r.ID,
		Title:         r.Title,
		TimeMinutes:   r.TimeMinutes,
		Price:         r.Price,
		Link:          r.Link,
		TagIDs:        r.TagIDs(),
		IngredientIDs: r.IngredientIDs(),
		ImageURL:      recipeImageURL(r),
		ImageBlurHash: r.ImageBlurHash,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func mapRecipeDetailResponse(r *domain.Recipe) RecipeDetailResponse {
	tags := make([]TagResponse, len(r.Tags))
	for i := range r.Tags {
		tags[i] = mapTagResponse(&r.Tags[i])
	}
	ingredients := make([]IngredientResponse, len(r.Ingredients))
	for i := range r.Ingredients {
		ingredients[i] = mapIngredientResponse(&r.Ingredients[i])
	}

	return RecipeDetailResponse{
		ID:            r.ID,
		Title:         r.Title,
		TimeMinutes:   r.TimeMinutes,
		Price:         r.Price,
		Description:   r.Description,
		Link:          r.Link,
		Tags:          tags,
		Ingredients:   ingredients,
		ImageURL:      recipeImageURL(r),
		ImageBlurHash: r.ImageBlurHash,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func recipeImageURL(r *domain.Recipe) string {
	if !r.HasImage() {
		return ""
	}
	return "/images/recipes/" + r.ImagePath
}
