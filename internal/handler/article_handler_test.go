package handler

import (
	"net/http"
	"strings"
	"testing"

	"authenticity-product/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateArticle(t *testing.T) {
	e, _, _ := setupTestServer(t)
	ownerID := registerUser(t, e, "owner@example.com", "0550123456", "secret99", model.RoleUser)
	token := loginToken(t, e, "owner@example.com", "secret99")

	rec := doJSON(e, http.MethodPost, "/products/create-product", `{"name":"Perfume","description":"50ml"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/unites/", `{"status":"stock","created_by_email":"owner@example.com","product_id":1}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var article ArticleRead
	decodeBody(t, rec, &article)
	assert.NotEmpty(t, article.ID)
	assert.Equal(t, "stock", article.Status)
	assert.Equal(t, "1", article.ProductID)
	assert.Equal(t, ownerID, article.CreatedByID)
}

func TestCreateArticleUnknownOwner(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "owner@example.com", "0550123456", "secret99", model.RoleUser)
	token := loginToken(t, e, "owner@example.com", "secret99")

	doJSON(e, http.MethodPost, "/products/create-product", `{"name":"Perfume","description":"50ml"}`, token)

	rec := doJSON(e, http.MethodPost, "/unites/", `{"status":"stock","created_by_email":"ghost@example.com","product_id":1}`, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateArticleInvalidTag(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "owner@example.com", "0550123456", "secret99", model.RoleUser)
	token := loginToken(t, e, "owner@example.com", "secret99")

	doJSON(e, http.MethodPost, "/products/create-product", `{"name":"Perfume","description":"50ml"}`, token)

	rec := doJSON(e, http.MethodPost, "/unites/", `{"status":"teleported","created_by_email":"owner@example.com","product_id":1}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGenerateArticles(t *testing.T) {
	e, db, _ := setupTestServer(t)
	ownerID := registerUser(t, e, "owner@example.com", "0550123456", "secret99", model.RoleUser)
	token := loginToken(t, e, "owner@example.com", "secret99")

	doJSON(e, http.MethodPost, "/products/create-product", `{"name":"Perfume","description":"50ml"}`, token)

	rec := doJSON(e, http.MethodPost, "/unites/generate_articles",
		`{"product_id":1,"created_by_email":"owner@example.com","nbr_unites":5,"status":"stock"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Articles []ArticleRead `json:"articles"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Articles, 5)
	for _, a := range resp.Articles {
		assert.Equal(t, "1", a.ProductID)
		assert.Equal(t, ownerID, a.CreatedByID)
		assert.Equal(t, "stock", a.Status)
	}

	var count int64
	db.Model(&model.Article{}).Count(&count)
	assert.EqualValues(t, 5, count)
}

func TestArticleUpdateAllowsAnyTransition(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "owner@example.com", "0550123456", "secret99", model.RoleUser)
	token := loginToken(t, e, "owner@example.com", "secret99")

	doJSON(e, http.MethodPost, "/products/create-product", `{"name":"Perfume","description":"50ml"}`, token)
	rec := doJSON(e, http.MethodPost, "/unites/", `{"status":"sold","created_by_email":"owner@example.com","product_id":1}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var article ArticleRead
	decodeBody(t, rec, &article)

	// Tags carry no transition rules: sold may go back to stock.
	rec = doJSON(e, http.MethodPut, "/unites/"+article.ID, `{"status":"stock","created_by_email":"owner@example.com","product_id":1}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &article)
	assert.Equal(t, "stock", article.Status)
}

func TestArticleListPagination(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "owner@example.com", "0550123456", "secret99", model.RoleUser)
	token := loginToken(t, e, "owner@example.com", "secret99")

	doJSON(e, http.MethodPost, "/products/create-product", `{"name":"Perfume","description":"50ml"}`, token)
	doJSON(e, http.MethodPost, "/unites/generate_articles",
		`{"product_id":1,"created_by_email":"owner@example.com","nbr_unites":15}`, token)

	rec := doJSON(e, http.MethodGet, "/unites/", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Articles []ArticleRead `json:"articles"`
	}
	decodeBody(t, rec, &page)
	assert.Len(t, page.Articles, 10) // default limit

	rec = doJSON(e, http.MethodGet, "/unites/?skip=10&limit=10", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	assert.Len(t, page.Articles, 5)
}

func TestArticleDeleteAndNotFound(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "owner@example.com", "0550123456", "secret99", model.RoleUser)
	token := loginToken(t, e, "owner@example.com", "secret99")

	doJSON(e, http.MethodPost, "/products/create-product", `{"name":"Perfume","description":"50ml"}`, token)
	rec := doJSON(e, http.MethodPost, "/unites/", `{"status":"stock","created_by_email":"owner@example.com","product_id":1}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var article ArticleRead
	decodeBody(t, rec, &article)

	rec = doJSON(e, http.MethodDelete, "/unites/"+article.ID, "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/unites/"+article.ID, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/unites/"+article.ID, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLabelRendering(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "owner@example.com", "0550123456", "secret99", model.RoleUser)
	token := loginToken(t, e, "owner@example.com", "secret99")

	doJSON(e, http.MethodPost, "/products/create-product", `{"name":"Perfume","description":"50ml"}`, token)
	rec := doJSON(e, http.MethodPost, "/unites/", `{"status":"stock","created_by_email":"owner@example.com","product_id":1}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var article ArticleRead
	decodeBody(t, rec, &article)

	rec = doJSON(e, http.MethodGet, "/get-etiquettes-thermiques/"+article.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"), "label response is not a PDF")
}

func TestLabelNotFound(t *testing.T) {
	e, _, _ := setupTestServer(t)

	rec := doJSON(e, http.MethodGet, "/get-etiquettes-thermiques/00000000-0000-0000-0000-000000000000", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
