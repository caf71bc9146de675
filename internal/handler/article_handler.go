package handler

import (
	"net/http"
	"strconv"
	"time"

	"authenticity-product/internal/apierror"
	"authenticity-product/internal/label"
	"authenticity-product/internal/model"
	"authenticity-product/pkg/logger"
	"authenticity-product/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ArticleHandler serves the article lifecycle endpoints and the thermal
// label rendering.
type ArticleHandler struct {
	db         *gorm.DB
	labelPrice string
}

func NewArticleHandler(db *gorm.DB, labelPrice string) *ArticleHandler {
	return &ArticleHandler{db: db, labelPrice: labelPrice}
}

// ArticleCreate is the article creation/update request body. The owner is
// referenced by email and resolved to a user id.
type ArticleCreate struct {
	Status         string `json:"status" validate:"required"`
	CreatedByEmail string `json:"created_by_email" validate:"required,email"`
	ProductID      uint   `json:"product_id" validate:"required"`
}

// ArticleRead is the public representation of an article
type ArticleRead struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ProductID   string `json:"product_id"`
	CreatedByID string `json:"created_by_id"`
}

func articleRead(a *model.Article) ArticleRead {
	createdBy := ""
	if a.OwnerManufacturerID != nil {
		createdBy = *a.OwnerManufacturerID
	}
	return ArticleRead{
		ID:          a.ID,
		Status:      string(a.Tag),
		ProductID:   strconv.FormatUint(uint64(a.ProductID), 10),
		CreatedByID: createdBy,
	}
}

func (h *ArticleHandler) resolveOwner(email string) (*model.User, error) {
	var user model.User
	if err := h.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, apierror.NotFound("user not found")
	}
	return &user, nil
}

func (h *ArticleHandler) checkProduct(id uint) error {
	var product model.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		return apierror.FromDB(err, "product not found with id "+strconv.FormatUint(uint64(id), 10))
	}
	return nil
}

// CreateArticle inserts one article bound to a product and an owner
func (h *ArticleHandler) CreateArticle(c echo.Context) error {
	log := logger.FromContext(c)

	var req ArticleCreate
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tag := model.Tag(req.Status)
	if !tag.Valid() {
		return apierror.Validation(map[string]string{"status": "must be one of stock, delivered, blocked, sold"})
	}

	owner, err := h.resolveOwner(req.CreatedByEmail)
	if err != nil {
		return err
	}
	if err := h.checkProduct(req.ProductID); err != nil {
		return err
	}

	article := model.Article{
		Tag:                 tag,
		OwnerManufacturerID: &owner.ID,
		ProductID:           req.ProductID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.Create(&article).Error; err != nil {
		log.Error("Failed to create article", zap.Error(err))
		return apierror.FromDB(err, "")
	}

	prometheus.RecordEntityOperation("article", "create")
	log.Info("Article created",
		zap.String("article_id", article.ID),
		zap.Uint("product_id", article.ProductID))
	return c.JSON(http.StatusCreated, articleRead(&article))
}

// ListArticles returns a page of articles
func (h *ArticleHandler) ListArticles(c echo.Context) error {
	log := logger.FromContext(c)

	skip := 0
	limit := 10
	if v, err := strconv.Atoi(c.QueryParam("skip")); err == nil && v >= 0 {
		skip = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}

	var articles []model.Article
	if err := h.db.Offset(skip).Limit(limit).Find(&articles).Error; err != nil {
		log.Error("Failed to list articles", zap.Error(err))
		return apierror.FromDB(err, "")
	}

	out := make([]ArticleRead, 0, len(articles))
	for i := range articles {
		out = append(out, articleRead(&articles[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"articles": out})
}

// GetArticle returns a single article by id
func (h *ArticleHandler) GetArticle(c echo.Context) error {
	id := c.Param("id")

	var article model.Article
	if err := h.db.First(&article, "id = ?", id).Error; err != nil {
		return apierror.FromDB(err, "article not found")
	}
	return c.JSON(http.StatusOK, articleRead(&article))
}

// UpdateArticle replaces the tag, owner and product of an article. Any tag
// may be set to any other.
func (h *ArticleHandler) UpdateArticle(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req ArticleCreate
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tag := model.Tag(req.Status)
	if !tag.Valid() {
		return apierror.Validation(map[string]string{"status": "must be one of stock, delivered, blocked, sold"})
	}

	var article model.Article
	if err := h.db.First(&article, "id = ?", id).Error; err != nil {
		return apierror.FromDB(err, "article not found")
	}

	owner, err := h.resolveOwner(req.CreatedByEmail)
	if err != nil {
		return err
	}
	if err := h.checkProduct(req.ProductID); err != nil {
		return err
	}

	article.Tag = tag
	article.OwnerManufacturerID = &owner.ID
	article.ProductID = req.ProductID

	if err := h.db.Save(&article).Error; err != nil {
		log.Error("Failed to update article", zap.String("article_id", id), zap.Error(err))
		return apierror.FromDB(err, "")
	}

	prometheus.RecordEntityOperation("article", "update")
	return c.JSON(http.StatusOK, articleRead(&article))
}

// DeleteArticle removes an article and returns its prior values
func (h *ArticleHandler) DeleteArticle(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var article model.Article
	if err := h.db.First(&article, "id = ?", id).Error; err != nil {
		return apierror.FromDB(err, "article not found")
	}

	if err := h.db.Delete(&article).Error; err != nil {
		log.Error("Failed to delete article", zap.String("article_id", id), zap.Error(err))
		return apierror.FromDB(err, "")
	}

	prometheus.RecordEntityOperation("article", "delete")
	log.Info("Article deleted", zap.String("article_id", id))
	return c.JSON(http.StatusOK, articleRead(&article))
}

// GenerateArticlesRequest asks for a batch of identical articles
type GenerateArticlesRequest struct {
	ProductID      uint   `json:"product_id" validate:"required"`
	CreatedByEmail string `json:"created_by_email" validate:"required,email"`
	NbrUnites      int    `json:"nbr_unites" validate:"required,gt=0"`
	Status         string `json:"status"`
}

// GenerateArticles creates nbr_unites articles sharing one product, owner
// and tag in a single batch insert.
func (h *ArticleHandler) GenerateArticles(c echo.Context) error {
	log := logger.FromContext(c)

	var req GenerateArticlesRequest
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tag := model.TagStock
	if req.Status != "" {
		tag = model.Tag(req.Status)
		if !tag.Valid() {
			return apierror.Validation(map[string]string{"status": "must be one of stock, delivered, blocked, sold"})
		}
	}

	owner, err := h.resolveOwner(req.CreatedByEmail)
	if err != nil {
		return err
	}
	if err := h.checkProduct(req.ProductID); err != nil {
		return err
	}

	articles := make([]model.Article, req.NbrUnites)
	for i := range articles {
		articles[i] = model.Article{
			Tag:                 tag,
			OwnerManufacturerID: &owner.ID,
			ProductID:           req.ProductID,
		}
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.Create(&articles).Error; err != nil {
		log.Error("Failed to generate articles", zap.Error(err))
		return apierror.FromDB(err, "")
	}

	prometheus.RecordEntityOperation("article", "generate")
	log.Info("Articles generated",
		zap.Int("count", len(articles)),
		zap.Uint("product_id", req.ProductID))

	out := make([]ArticleRead, 0, len(articles))
	for i := range articles {
		out = append(out, articleRead(&articles[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"articles": out})
}

// GetLabel renders the thermal label of an article as a PDF attachment
func (h *ArticleHandler) GetLabel(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var article model.Article
	if err := h.db.Preload("Product").First(&article, "id = ?", id).Error; err != nil {
		return apierror.FromDB(err, "article not found")
	}

	productName := ""
	if article.Product != nil {
		productName = article.Product.Name
	}

	pdf, err := label.Render(article.ID, productName, h.labelPrice)
	if err != nil {
		log.Error("Failed to render label", zap.String("article_id", id), zap.Error(err))
		return err
	}

	prometheus.LabelRenderCounter.Inc()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=etiquette-`+article.ID+`.pdf`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
