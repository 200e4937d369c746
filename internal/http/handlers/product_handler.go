package handlers

import (
	applog "buttergolf/internal/log"
	"buttergolf/internal/services"
	"buttergolf/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// GET /api/products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	q := services.ProductQuery{
		Category:  c.Query("category"),
		Brand:     c.Query("brand"),
		Condition: c.Query("condition"),
		MinPrice:  validate.Amount(c.Query("minPrice")),
		MaxPrice:  validate.Amount(c.Query("maxPrice")),
		Sort:      c.Query("sort"),
		Page:      validate.Int(c.Query("page"), 1, 500),
		PageSize:  validate.Int(c.Query("pageSize"), 24, 60),
	}
	products, err := h.Catalog.ListProducts(q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"products": products, "page": q.Page, "pageSize": q.PageSize})
}

// GET /api/products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	}
	p, err := h.Catalog.GetProduct(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

// POST /api/products
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in services.ListingInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	p, err := h.Catalog.CreateListing(currentUser(c), in)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "listing.create", map[string]any{"product_id": p.ID, "price": p.Price})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PATCH /api/products/:id
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var in services.ListingInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	p, err := h.Catalog.UpdateListing(currentUser(c), c.Params("id"), in)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "listing.update", map[string]any{"product_id": p.ID})
	return c.JSON(p)
}

// DELETE /api/products/:id
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Catalog.DeleteListing(currentUser(c), id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "listing.delete", map[string]any{"product_id": id})
	return c.JSON(fiber.Map{"deleted": true})
}
