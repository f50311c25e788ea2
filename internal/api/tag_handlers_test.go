package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTag creates a tag through the API and returns its ID.
func (ts *testServer) createTag(t *testing.T, token, name string) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/tags",
		"Authorization: Bearer "+token,
		map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, resp.Code, "create tag failed: %s", resp.Body.String())

	envelope := decodeEnvelope[TagResponse](t, resp.Body.Bytes())
	return envelope.Data.ID
}

func TestTags_CRUD(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	// Create.
	resp := ts.api.Post("/api/v1/tags",
		"Authorization: Bearer "+token,
		map[string]any{"name": "dessert"})
	require.Equal(t, http.StatusCreated, resp.Code)
	created := decodeEnvelope[TagResponse](t, resp.Body.Bytes())
	assert.NotEmpty(t, created.Data.ID)
	assert.Equal(t, "dessert", created.Data.Name)

	// Get.
	resp = ts.api.Get("/api/v1/tags/"+created.Data.ID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeEnvelope[TagResponse](t, resp.Body.Bytes())
	assert.Equal(t, created.Data.ID, got.Data.ID)

	// Rename via PUT.
	resp = ts.api.Put("/api/v1/tags/"+created.Data.ID,
		"Authorization: Bearer "+token,
		map[string]any{"name": "desserts"})
	require.Equal(t, http.StatusOK, resp.Code)
	renamed := decodeEnvelope[TagResponse](t, resp.Body.Bytes())
	assert.Equal(t, "desserts", renamed.Data.Name)

	// PATCH shares the rename semantics.
	resp = ts.api.Patch("/api/v1/tags/"+created.Data.ID,
		"Authorization: Bearer "+token,
		map[string]any{"name": "sweets"})
	require.Equal(t, http.StatusOK, resp.Code)

	// Delete.
	resp = ts.api.Delete("/api/v1/tags/"+created.Data.ID, "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/tags/"+created.Data.ID, "Authorization: Bearer "+token)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTags_ListOrderedByNameDesc(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	for _, name := range []string{"breakfast", "vegan", "dessert"} {
		ts.createTag(t, token, name)
	}

	resp := ts.api.Get("/api/v1/tags", "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[ListTagsResponse](t, resp.Body.Bytes())
	require.Len(t, envelope.Data.Tags, 3)
	assert.Equal(t, "vegan", envelope.Data.Tags[0].Name)
	assert.Equal(t, "dessert", envelope.Data.Tags[1].Name)
	assert.Equal(t, "breakfast", envelope.Data.Tags[2].Name)
}

func TestTags_DuplicateName(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	ts.createTag(t, token, "Dessert")

	// Case-insensitive duplicate within the same user.
	resp := ts.api.Post("/api/v1/tags",
		"Authorization: Bearer "+token,
		map[string]any{"name": "dessert"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	// A different user can reuse the name.
	otherToken, _ := ts.registerAndLogin(t, "other@example.com")
	resp = ts.api.Post("/api/v1/tags",
		"Authorization: Bearer "+otherToken,
		map[string]any{"name": "dessert"})
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestTags_EmptyNameRejected(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.registerAndLogin(t, "cook@example.com")

	resp := ts.api.Post("/api/v1/tags",
		"Authorization: Bearer "+token,
		map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTags_OwnershipIsolation(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken, _ := ts.registerAndLogin(t, "owner@example.com")
	otherToken, _ := ts.registerAndLogin(t, "other@example.com")

	tagID := ts.createTag(t, ownerToken, "secret-sauce")

	// Another user sees 404 on every operation.
	resp := ts.api.Get("/api/v1/tags/"+tagID, "Authorization: Bearer "+otherToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Put("/api/v1/tags/"+tagID,
		"Authorization: Bearer "+otherToken,
		map[string]any{"name": "stolen"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Delete("/api/v1/tags/"+tagID, "Authorization: Bearer "+otherToken)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// And an empty list.
	resp = ts.api.Get("/api/v1/tags", "Authorization: Bearer "+otherToken)
	require.Equal(t, http.StatusOK, resp.Code)
	envelope := decodeEnvelope[ListTagsResponse](t, resp.Body.Bytes())
	assert.Empty(t, envelope.Data.Tags)
}
