package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createIngredient creates an ingredient through the API and returns its ID.
func (ts *testServer) createIngredient(t *testing.T, token, name string) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/ingredients",
		"Authorization: Bearer "+token,
		map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, resp.Code, "create ingredient failed: %s", resp.Body.String())

	envelope := decodeEnvelope[IngredientResponse](t, resp.Body.Bytes())
	return envelope.Data.ID
}

func TestIngredients_CRUD(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	resp := ts.api.Post("/api/v1/ingredients",
		"Authorization: Bearer "+token,
		map[string]any{"name": "basil"})
	require.Equal(t, http.StatusCreated, resp.Code)
	created := decodeEnvelope[IngredientResponse](t, resp.Body.Bytes())
	assert.NotEmpty(t, created.Data.ID)
	assert.Equal(t, "basil", created.Data.Name)

	resp = ts.api.Put("/api/v1/ingredients/"+created.Data.ID,
		"Authorization: Bearer "+token,
		map[string]any{"name": "fresh basil"})
	require.Equal(t, http.StatusOK, resp.Code)
	renamed := decodeEnvelope[IngredientResponse](t, resp.Body.Bytes())
	assert.Equal(t, "fresh basil", renamed.Data.Name)

	resp = ts.api.Delete("/api/v1/ingredients/"+created.Data.ID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/ingredients/"+created.Data.ID, "Authorization: Bearer "+token)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestIngredients_ListOrderedByNameDesc(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	for _, name := range []string{"flour", "zucchini", "basil"} {
		ts.createIngredient(t, token, name)
	}

	resp := ts.api.Get("/api/v1/ingredients", "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[ListIngredientsResponse](t, resp.Body.Bytes())
	require.Len(t, envelope.Data.Ingredients, 3)
	assert.Equal(t, "zucchini", envelope.Data.Ingredients[0].Name)
	assert.Equal(t, "flour", envelope.Data.Ingredients[1].Name)
	assert.Equal(t, "basil", envelope.Data.Ingredients[2].Name)
}

func TestIngredients_DuplicateName(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	ts.createIngredient(t, token, "Kale")

	resp := ts.api.Post("/api/v1/ingredients",
		"Authorization: Bearer "+token,
		map[string]any{"name": "kale"})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestIngredients_OwnershipIsolation(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.registerAndLogin(t, "owner@example.com")
	otherToken, _ := ts.registerAndLogin(t, "other@example.com")

	ingredientID := ts.createIngredient(t, ownerToken, "saffron")

	resp := ts.api.Get("/api/v1/ingredients/"+ingredientID, "Authorization: Bearer "+otherToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Delete("/api/v1/ingredients/"+ingredientID, "Authorization: Bearer "+otherToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
