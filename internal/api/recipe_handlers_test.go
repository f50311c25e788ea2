package api

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createRecipe creates a recipe through the API and returns its ID.
func (ts *testServer) createRecipe(t *testing.T, token string, body map[string]any) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/recipes", "Authorization: Bearer "+token, body)
	require.Equal(t, http.StatusCreated, resp.Code, "create recipe failed: %s", resp.Body.String())

	envelope := decodeEnvelope[RecipeDetailResponse](t, resp.Body.Bytes())
	return envelope.Data.ID
}

// testPNG renders a small gradient PNG so image decoding and BlurHash have
// real color data to work with.
func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 48, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 7), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// uploadImage posts a multipart image upload for a recipe and returns the
// recorded response.
func (ts *testServer) uploadImage(t *testing.T, token, recipeID string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes/"+recipeID+"/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)
	return w
}

func TestRecipes_CreateWithAttachments(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	tagID := ts.createTag(t, token, "dinner")
	ingredientID := ts.createIngredient(t, token, "garlic")

	resp := ts.api.Post("/api/v1/recipes",
		"Authorization: Bearer "+token,
		map[string]any{
			"title":          "Garlic Pasta",
			"time_minutes":   25,
			"price":          7.50,
			"description":    "Weeknight staple.",
			"link":           "https://example.com/garlic-pasta",
			"tag_ids":        []string{tagID},
			"ingredient_ids": []string{ingredientID},
		})

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[RecipeDetailResponse](t, resp.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.ID)
	assert.Equal(t, "Garlic Pasta", envelope.Data.Title)
	assert.Equal(t, 25, envelope.Data.TimeMinutes)
	assert.InDelta(t, 7.50, envelope.Data.Price, 0.001)
	require.Len(t, envelope.Data.Tags, 1)
	assert.Equal(t, "dinner", envelope.Data.Tags[0].Name)
	require.Len(t, envelope.Data.Ingredients, 1)
	assert.Equal(t, "garlic", envelope.Data.Ingredients[0].Name)
	assert.Empty(t, envelope.Data.ImageURL)
}

func TestRecipes_CreateValidation(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "missing title",
			body:       map[string]any{"time_minutes": 10},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty title",
			body:       map[string]any{"title": ""},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative time",
			body:       map[string]any{"title": "Soup", "time_minutes": -5},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative price",
			body:       map[string]any{"title": "Soup", "price": -1.0},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/recipes", "Authorization: Bearer "+token, tt.body)
			assert.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
		})
	}
}

func TestRecipes_UnknownAttachmentIDs(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")
	otherToken, _ := ts.registerAndLogin(t, "other@example.com")

	// Another user's tag counts as unknown.
	foreignTagID := ts.createTag(t, otherToken, "theirs")

	resp := ts.api.Post("/api/v1/recipes",
		"Authorization: Bearer "+token,
		map[string]any{
			"title":   "Borrowed Recipe",
			"tag_ids": []string{foreignTagID},
		})

	require.Equal(t, http.StatusBadRequest, resp.Code)

	envelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.False(t, envelope.Success)
	details, ok := envelope.Details.(map[string]any)
	require.True(t, ok, "details: %v", envelope.Details)
	assert.Contains(t, details["tag_ids"], foreignTagID)

	resp = ts.api.Post("/api/v1/recipes",
		"Authorization: Bearer "+token,
		map[string]any{
			"title":          "Mystery Recipe",
			"ingredient_ids": []string{"ingr-does-not-exist"},
		})

	require.Equal(t, http.StatusBadRequest, resp.Code)
	envelope = decodeEnvelope[struct{}](t, resp.Body.Bytes())
	details, ok = envelope.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details["ingredient_ids"], "ingr-does-not-exist")
}

func TestRecipes_ListAndFilter(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	veganID := ts.createTag(t, token, "vegan")
	quickID := ts.createTag(t, token, "quick")
	tofuID := ts.createIngredient(t, token, "tofu")

	saladID := ts.createRecipe(t, token, map[string]any{
		"title":          "Tofu Salad",
		"tag_ids":        []string{veganID},
		"ingredient_ids": []string{tofuID},
	})
	time.Sleep(5 * time.Millisecond)
	stirFryID := ts.createRecipe(t, token, map[string]any{
		"title":   "Stir Fry",
		"tag_ids": []string{veganID, quickID},
	})
	time.Sleep(5 * time.Millisecond)
	toastID := ts.createRecipe(t, token, map[string]any{
		"title": "Plain Toast",
	})

	// Unfiltered, newest first.
	resp := ts.api.Get("/api/v1/recipes", "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)
	list := decodeEnvelope[ListRecipesResponse](t, resp.Body.Bytes())
	require.Len(t, list.Data.Recipes, 3)
	assert.Equal(t, toastID, list.Data.Recipes[0].ID)
	assert.Equal(t, stirFryID, list.Data.Recipes[1].ID)
	assert.Equal(t, saladID, list.Data.Recipes[2].ID)
	// List entries carry attachment IDs, not nested objects.
	assert.ElementsMatch(t, []string{veganID, quickID}, list.Data.Recipes[1].TagIDs)

	// Single tag filter.
	resp = ts.api.Get("/api/v1/recipes?tags="+quickID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)
	list = decodeEnvelope[ListRecipesResponse](t, resp.Body.Bytes())
	require.Len(t, list.Data.Recipes, 1)
	assert.Equal(t, stirFryID, list.Data.Recipes[0].ID)

	// Multiple tag IDs are OR'd.
	resp = ts.api.Get("/api/v1/recipes?tags="+veganID+","+quickID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)
	list = decodeEnvelope[ListRecipesResponse](t, resp.Body.Bytes())
	assert.Len(t, list.Data.Recipes, 2)

	// Tag and ingredient filters are AND'd.
	resp = ts.api.Get("/api/v1/recipes?tags="+quickID+"&ingredients="+tofuID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)
	list = decodeEnvelope[ListRecipesResponse](t, resp.Body.Bytes())
	assert.Empty(t, list.Data.Recipes)

	resp = ts.api.Get("/api/v1/recipes?tags="+veganID+"&ingredients="+tofuID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)
	list = decodeEnvelope[ListRecipesResponse](t, resp.Body.Bytes())
	require.Len(t, list.Data.Recipes, 1)
	assert.Equal(t, saladID, list.Data.Recipes[0].ID)
}

func TestRecipes_ReplaceClearsOmittedAttachments(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	tagID := ts.createTag(t, token, "dinner")
	recipeID := ts.createRecipe(t, token, map[string]any{
		"title":   "Curry",
		"tag_ids": []string{tagID},
	})

	resp := ts.api.Put("/api/v1/recipes/"+recipeID,
		"Authorization: Bearer "+token,
		map[string]any{
			"title":        "Green Curry",
			"time_minutes": 40,
		})

	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[RecipeDetailResponse](t, resp.Body.Bytes())
	assert.Equal(t, "Green Curry", envelope.Data.Title)
	assert.Equal(t, 40, envelope.Data.TimeMinutes)
	assert.Empty(t, envelope.Data.Tags)

	// The tag itself survives.
	resp = ts.api.Get("/api/v1/tags/"+tagID, "Authorization: Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRecipes_PatchMergesFields(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	tagID := ts.createTag(t, token, "dinner")
	recipeID := ts.createRecipe(t, token, map[string]any{
		"title":        "Curry",
		"time_minutes": 30,
		"tag_ids":      []string{tagID},
	})

	// Patching the title leaves everything else alone.
	resp := ts.api.Patch("/api/v1/recipes/"+recipeID,
		"Authorization: Bearer "+token,
		map[string]any{"title": "Red Curry"})
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[RecipeDetailResponse](t, resp.Body.Bytes())
	assert.Equal(t, "Red Curry", envelope.Data.Title)
	assert.Equal(t, 30, envelope.Data.TimeMinutes)
	require.Len(t, envelope.Data.Tags, 1)

	// An explicit empty list clears the attachments.
	resp = ts.api.Patch("/api/v1/recipes/"+recipeID,
		"Authorization: Bearer "+token,
		map[string]any{"tag_ids": []string{}})
	require.Equal(t, http.StatusOK, resp.Code)

	envelope = decodeEnvelope[RecipeDetailResponse](t, resp.Body.Bytes())
	assert.Empty(t, envelope.Data.Tags)
	assert.Equal(t, "Red Curry", envelope.Data.Title)

	// A blank title is rejected.
	resp = ts.api.Patch("/api/v1/recipes/"+recipeID,
		"Authorization: Bearer "+token,
		map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRecipes_OwnershipIsolation(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.registerAndLogin(t, "owner@example.com")
	otherToken, _ := ts.registerAndLogin(t, "other@example.com")

	recipeID := ts.createRecipe(t, ownerToken, map[string]any{"title": "Family Secret"})

	resp := ts.api.Get("/api/v1/recipes/"+recipeID, "Authorization: Bearer "+otherToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Put("/api/v1/recipes/"+recipeID,
		"Authorization: Bearer "+otherToken,
		map[string]any{"title": "Stolen"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Delete("/api/v1/recipes/"+recipeID, "Authorization: Bearer "+otherToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/recipes", "Authorization: Bearer "+otherToken)
	require.Equal(t, http.StatusOK, resp.Code)
	list := decodeEnvelope[ListRecipesResponse](t, resp.Body.Bytes())
	assert.Empty(t, list.Data.Recipes)
}

func TestRecipes_Delete(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	recipeID := ts.createRecipe(t, token, map[string]any{"title": "Toast"})

	resp := ts.api.Delete("/api/v1/recipes/"+recipeID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/recipes/"+recipeID, "Authorization: Bearer "+token)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRecipeImages_UploadFetchDelete(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	recipeID := ts.createRecipe(t, token, map[string]any{"title": "Pancakes"})

	// Upload.
	w := ts.uploadImage(t, token, recipeID, testPNG(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	uploaded := decodeEnvelope[RecipeDetailResponse](t, w.Body.Bytes())
	assert.True(t, uploaded.Success)
	assert.Equal(t, "/images/recipes/"+recipeID+".jpg", uploaded.Data.ImageURL)
	assert.NotEmpty(t, uploaded.Data.ImageBlurHash)

	// Authenticated fetch streams the re-encoded JPEG.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recipes/"+recipeID+"/image", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	ts.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "max-age=86400")
	_, format, err := image.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	// The public image URL serves the same bytes without auth.
	req = httptest.NewRequest(http.MethodGet, uploaded.Data.ImageURL, http.NoBody)
	w = httptest.NewRecorder()
	ts.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	// Delete the image.
	resp := ts.api.Delete("/api/v1/recipes/"+recipeID+"/image", "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	// Metadata and file are gone.
	resp = ts.api.Get("/api/v1/recipes/"+recipeID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)
	detail := decodeEnvelope[RecipeDetailResponse](t, resp.Body.Bytes())
	assert.Empty(t, detail.Data.ImageURL)

	req = httptest.NewRequest(http.MethodGet, uploaded.Data.ImageURL, http.NoBody)
	w = httptest.NewRecorder()
	ts.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeImages_InvalidPayload(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	recipeID := ts.createRecipe(t, token, map[string]any{"title": "Pancakes"})

	w := ts.uploadImage(t, token, recipeID, []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing was attached to the recipe.
	resp := ts.api.Get("/api/v1/recipes/"+recipeID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)
	detail := decodeEnvelope[RecipeDetailResponse](t, resp.Body.Bytes())
	assert.Empty(t, detail.Data.ImageURL)
}

func TestRecipeImages_Ownership(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.registerAndLogin(t, "owner@example.com")
	otherToken, _ := ts.registerAndLogin(t, "other@example.com")

	recipeID := ts.createRecipe(t, ownerToken, map[string]any{"title": "Family Secret"})

	// Another user cannot upload to it.
	w := ts.uploadImage(t, otherToken, recipeID, testPNG(t))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Fetching a recipe with no image is a 404.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recipes/"+recipeID+"/image", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecipeImages_PublicRouteRejectsTraversal(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	recipeID := ts.createRecipe(t, token, map[string]any{"title": "Pancakes"})
	w := ts.uploadImage(t, token, recipeID, testPNG(t))
	require.Equal(t, http.StatusOK, w.Code)

	targets := []string{
		"/images/recipes/..%2F" + recipeID + ".jpg",
		"/images/recipes/%2e%2e%2f%2e%2e%2fladle.db.jpg",
		"/images/recipes/..%5Csecret.jpg",
		"/images/recipes/...jpg",
	}
	for _, target := range targets {
		req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
		rec := httptest.NewRecorder()
		ts.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestRecipeImages_UploadRequiresAuth(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	recipeID := ts.createRecipe(t, token, map[string]any{"title": "Pancakes"})

	w := ts.uploadImage(t, "invalid-token", recipeID, testPNG(t))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
