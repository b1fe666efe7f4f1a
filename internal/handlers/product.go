package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/flexora/internal/models"
	"github.com/example/flexora/internal/utils"
)

// ProductHandler serves the public catalog endpoints.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// Sortable columns for the catalog listing. Anything else falls back to
// created_at so user input never reaches the ORDER BY clause directly.
var sortableColumns = map[string]bool{
	"created_at": true,
	"price":      true,
	"name":       true,
}

// ListProducts returns the active catalog with filtering, sorting, and
// pagination.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Product{}).Where("is_active = ?", true)

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if subcategory := c.Query("subcategory"); subcategory != "" {
		query = query.Where("subcategory = ?", subcategory)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}

	sort := c.Query("sort", "created_at")
	if !sortableColumns[sort] {
		sort = "created_at"
	}
	direction := "desc"
	if strings.EqualFold(c.Query("order"), "asc") {
		direction = "asc"
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Order(sort + " " + direction).
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"products":   products,
		"pagination": pg.Meta(total),
	})
}

// GetProduct returns a single active product.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ? AND is_active = ?", id, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "product": product})
}

// ListCategories groups the distinct category/subcategory pairs of active
// products into a map of category to its subcategories.
func (h *ProductHandler) ListCategories(c *fiber.Ctx) error {
	type pair struct {
		Category    string
		Subcategory string
	}

	var rows []pair
	if err := h.db.Model(&models.Product{}).
		Distinct("category", "subcategory").
		Where("is_active = ?", true).
		Order("category, subcategory").
		Find(&rows).Error; err != nil {
		return err
	}

	categories := make(map[string][]string)
	for _, row := range rows {
		if _, ok := categories[row.Category]; !ok {
			categories[row.Category] = []string{}
		}
		if row.Subcategory != "" {
			categories[row.Category] = append(categories[row.Category], row.Subcategory)
		}
	}

	return c.JSON(fiber.Map{"success": true, "categories": categories})
}

// SearchProducts matches the query against name, description, and category,
// ranking exact-prefix name matches above substring matches.
func (h *ProductHandler) SearchProducts(c *fiber.Ctx) error {
	term := c.Params("query")
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}

	contains := "%" + term + "%"
	prefix := term + "%"

	var products []models.Product
	err := h.db.Model(&models.Product{}).
		Select("*, CASE WHEN name LIKE ? THEN 1 WHEN name LIKE ? THEN 2 ELSE 3 END AS search_rank", prefix, contains).
		Where("is_active = ?", true).
		Where("name LIKE ? OR description LIKE ? OR category LIKE ?", contains, contains, contains).
		Order("search_rank, created_at desc").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "products": products})
}

// FeaturedProducts returns the newest active products.
func (h *ProductHandler) FeaturedProducts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 6)
	if limit < 1 || limit > 50 {
		limit = 6
	}

	var products []models.Product
	if err := h.db.Where("is_active = ?", true).
		Order("created_at desc").
		Limit(limit).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "products": products})
}

// ProductsByCategory returns active products for a category, optionally
// narrowed to a subcategory.
func (h *ProductHandler) ProductsByCategory(c *fiber.Ctx) error {
	category := c.Params("category")
	pg := utils.ParsePagination(c)

	query := h.db.Model(&models.Product{}).
		Where("is_active = ? AND category = ?", true, category)

	if subcategory := c.Query("subcategory"); subcategory != "" {
		query = query.Where("subcategory = ?", subcategory)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"products":   products,
		"pagination": pg.Meta(total),
	})
}
