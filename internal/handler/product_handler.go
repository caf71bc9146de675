package handler

import (
	"net/http"
	"strconv"
	"time"

	"authenticity-product/internal/apierror"
	"authenticity-product/internal/model"
	"authenticity-product/pkg/logger"
	"authenticity-product/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductHandler serves CRUD operations over the product master data.
type ProductHandler struct {
	db *gorm.DB
}

func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// ProductResponse is the public representation of a product
type ProductResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func productResponse(p *model.Product) ProductResponse {
	return ProductResponse{ID: p.ID, Name: p.Name, Description: p.Description}
}

func parseUintParam(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, apierror.BadRequest("invalid " + name + " parameter")
	}
	return uint(v), nil
}

// CreateProduct handles creating a new product. Creation is idempotent by
// name: an existing product with the same name is returned unchanged.
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.Product
	if err := h.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		log.Info("Product already exists, returning existing record",
			zap.Uint("product_id", existing.ID),
			zap.String("name", existing.Name))
		return c.JSON(http.StatusCreated, productResponse(&existing))
	}

	product := model.Product{
		Name:        req.Name,
		Description: req.Description,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.Create(&product).Error; err != nil {
		// A racing create with the same name loses to the unique index;
		// fall back to the row that won.
		if err := h.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
			return c.JSON(http.StatusCreated, productResponse(&existing))
		}
		log.Error("Failed to create product", zap.String("name", req.Name), zap.Error(err))
		return apierror.FromDB(err, "")
	}

	prometheus.RecordEntityOperation("product", "create")
	log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name))
	return c.JSON(http.StatusCreated, productResponse(&product))
}

// UpdateProduct overwrites the name and description of an existing product
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var product model.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		return apierror.FromDB(err, "product not found with id "+c.Param("id"))
	}

	product.Name = req.Name
	product.Description = req.Description

	if err := h.db.Save(&product).Error; err != nil {
		log.Error("Failed to update product", zap.Uint("product_id", id), zap.Error(err))
		return apierror.FromDB(err, "")
	}

	prometheus.RecordEntityOperation("product", "update")
	log.Info("Product updated", zap.Uint("product_id", product.ID), zap.String("name", product.Name))
	return c.JSON(http.StatusOK, productResponse(&product))
}

// DeleteProduct removes a product and returns its prior values
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var product model.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		return apierror.FromDB(err, "product not found with id "+c.Param("id"))
	}

	if err := h.db.Delete(&product).Error; err != nil {
		log.Error("Failed to delete product", zap.Uint("product_id", id), zap.Error(err))
		return apierror.FromDB(err, "")
	}

	prometheus.RecordEntityOperation("product", "delete")
	log.Info("Product deleted", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, productResponse(&product))
}

// ListProducts returns all products
func (h *ProductHandler) ListProducts(c echo.Context) error {
	log := logger.FromContext(c)

	var products []model.Product
	if err := h.db.Find(&products).Error; err != nil {
		log.Error("Failed to list products", zap.Error(err))
		return apierror.FromDB(err, "")
	}

	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, productResponse(&products[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"products": out})
}

// GetProduct returns a single product by id
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var product model.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		return apierror.FromDB(err, "product not found with id "+c.Param("id"))
	}
	return c.JSON(http.StatusOK, productResponse(&product))
}
