package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rico-rbls/smart-budget-tracker/constants"
	"github.com/rico-rbls/smart-budget-tracker/internal/common"
)

func (s *Server) handleListCategories(c *fiber.Ctx) error {
	rows, err := s.categories.ListByUser(c.Context(), currentUserID(c))
	if err != nil {
		return err
	}

	type categoryView struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	views := make([]categoryView, 0, len(rows))
	for _, cat := range rows {
		views = append(views, categoryView{ID: cat.ID.String(), Name: cat.Name})
	}
	return c.JSON(fiber.Map{"categories": views})
}

// handleCategorySuggestions scores the keyword table against ?merchant=.
func (s *Server) handleCategorySuggestions(c *fiber.Ctx) error {
	merchant := c.Query("merchant")
	if merchant == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter 'merchant' is required")
	}

	suggestions := s.categorizer.Suggestions(merchant)
	best := s.categorizer.Categorize(merchant)
	return c.JSON(fiber.Map{
		"merchant":    merchant,
		"category":    best,
		"suggestions": suggestions,
	})
}

type addKeywordRequest struct {
	Category string `json:"category" validate:"required"`
	Keyword  string `json:"keyword" validate:"required,min=1,max=64"`
}

func (s *Server) handleAddKeyword(c *fiber.Ctx) error {
	req := new(addKeywordRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := s.validator.Struct(req); err != nil {
		return common.NewAppError("VALIDATION", err.Error(), common.ErrInvalidInput)
	}

	category, ok := constants.Canonicalize(req.Category)
	if !ok {
		return common.NewAppError("UNKNOWN_CATEGORY", "category does not exist", common.ErrInvalidInput)
	}
	if err := s.categorizer.AddKeyword(category, req.Keyword); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"category": category,
		"keywords": s.categorizer.Keywords(category),
	})
}
