package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flexora/internal/models"
)

func TestListProductsHidesInactive(t *testing.T) {
	app, db, _ := setupTestApp(t, new(mockGateway))
	createProduct(t, db, "Visible", 10, 5)
	hidden := createProduct(t, db, "Hidden", 20, 5)
	require.NoError(t, db.Model(hidden).Update("is_active", false).Error)

	resp := doJSON(t, app, http.MethodGet, "/api/products/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	products := payload["products"].([]any)
	require.Len(t, products, 1)
	first := products[0].(map[string]any)
	assert.Equal(t, "Visible", first["name"])

	// jsonb columns render as JSON values, not base64 strings.
	_, ok := first["images"].([]any)
	assert.True(t, ok, "images should decode as an array, got %T", first["images"])
	_, ok = first["specifications"].(map[string]any)
	assert.True(t, ok, "specifications should decode as an object, got %T", first["specifications"])

	pagination := payload["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pagination["totalCount"])
	assert.Equal(t, float64(1), pagination["currentPage"])
}

func TestListProductsFiltersAndPaginates(t *testing.T) {
	app, db, _ := setupTestApp(t, new(mockGateway))
	for i := 0; i < 3; i++ {
		createProduct(t, db, "Phone", 100, 5)
	}
	other := createProduct(t, db, "Sofa", 300, 5)
	require.NoError(t, db.Model(other).Update("category", "furniture").Error)

	resp := doJSON(t, app, http.MethodGet, "/api/products/?category=electronics&limit=2&page=2", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	products := payload["products"].([]any)
	assert.Len(t, products, 1)

	pagination := payload["pagination"].(map[string]any)
	assert.Equal(t, float64(3), pagination["totalCount"])
	assert.Equal(t, float64(2), pagination["totalPages"])
	assert.Equal(t, float64(2), pagination["currentPage"])
	assert.Equal(t, float64(2), pagination["limit"])
}

func TestSearchRanksNamePrefixFirst(t *testing.T) {
	app, db, _ := setupTestApp(t, new(mockGateway))
	createProduct(t, db, "Case for Phone", 15, 5)
	createProduct(t, db, "Phone X", 500, 5)

	resp := doJSON(t, app, http.MethodGet, "/api/products/search/Phone", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	products := payload["products"].([]any)
	require.Len(t, products, 2)
	first := products[0].(map[string]any)
	assert.Equal(t, "Phone X", first["name"])
}

func TestCategoriesListGroupsSubcategories(t *testing.T) {
	app, db, _ := setupTestApp(t, new(mockGateway))
	a := createProduct(t, db, "Laptop", 900, 5)
	require.NoError(t, db.Model(a).Update("subcategory", "laptops").Error)
	b := createProduct(t, db, "Mouse", 25, 5)
	require.NoError(t, db.Model(b).Update("subcategory", "accessories").Error)
	c := createProduct(t, db, "Chair", 120, 5)
	require.NoError(t, db.Model(c).Updates(map[string]any{
		"category": "furniture", "subcategory": "",
	}).Error)

	resp := doJSON(t, app, http.MethodGet, "/api/products/categories/list", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	categories := payload["categories"].(map[string]any)
	require.Contains(t, categories, "electronics")
	require.Contains(t, categories, "furniture")
	assert.ElementsMatch(t, []any{"accessories", "laptops"}, categories["electronics"].([]any))
	assert.Empty(t, categories["furniture"].([]any))
}

func TestGetProductNotFoundForInactive(t *testing.T) {
	app, db, _ := setupTestApp(t, new(mockGateway))
	product := createProduct(t, db, "Ghost", 10, 5)
	require.NoError(t, db.Model(product).Update("is_active", false).Error)

	resp := doJSON(t, app, http.MethodGet, "/api/products/"+product.ID.String(), nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
