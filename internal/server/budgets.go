package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/entity"
	"github.com/rico-rbls/smart-budget-tracker/internal/repository"
)

type createBudgetRequest struct {
	CategoryID string  `json:"category_id" validate:"required,uuid"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Period     string  `json:"period" validate:"required,oneof=weekly monthly yearly"`
	StartDate  string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

type updateBudgetRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type budgetView struct {
	ID         string  `json:"id"`
	CategoryID string  `json:"category_id"`
	Amount     float64 `json:"amount"`
	Period     string  `json:"period"`
	StartDate  string  `json:"start_date"`
}

func toBudgetView(b *entity.Budget) budgetView {
	return budgetView{
		ID:         b.ID.String(),
		CategoryID: b.CategoryID.String(),
		Amount:     b.Amount,
		Period:     b.Period,
		StartDate:  b.StartDate.Format("2006-01-02"),
	}
}

func (s *Server) handleCreateBudget(c *fiber.Ctx) error {
	req := new(createBudgetRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := s.validator.Struct(req); err != nil {
		return common.NewAppError("VALIDATION", err.Error(), common.ErrInvalidInput)
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid category id")
	}

	startDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.StartDate != "" {
		startDate, _ = time.Parse("2006-01-02", req.StartDate)
	}

	budget, err := s.budgets.Create(c.Context(), repository.CreateBudgetRequest{
		UserID:     currentUserID(c),
		CategoryID: categoryID,
		Amount:     req.Amount,
		Period:     req.Period,
		StartDate:  startDate,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toBudgetView(budget))
}

func (s *Server) handleListBudgets(c *fiber.Ctx) error {
	rows, err := s.budgets.ListByUser(c.Context(), currentUserID(c))
	if err != nil {
		return err
	}
	views := make([]budgetView, 0, len(rows))
	for _, b := range rows {
		views = append(views, toBudgetView(b))
	}
	return c.JSON(fiber.Map{"budgets": views})
}

func (s *Server) handleUpdateBudget(c *fiber.Ctx) error {
	budget, err := s.userBudget(c)
	if err != nil {
		return err
	}

	req := new(updateBudgetRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := s.validator.Struct(req); err != nil {
		return common.NewAppError("VALIDATION", err.Error(), common.ErrInvalidInput)
	}

	if err := s.budgets.UpdateAmount(c.Context(), budget.ID, req.Amount); err != nil {
		return err
	}
	budget.Amount = req.Amount
	return c.JSON(toBudgetView(budget))
}

func (s *Server) handleDeleteBudget(c *fiber.Ctx) error {
	budget, err := s.userBudget(c)
	if err != nil {
		return err
	}
	if err := s.budgets.Delete(c.Context(), budget.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) userBudget(c *fiber.Ctx) (*entity.Budget, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid budget id")
	}
	budget, err := s.budgets.GetByID(c.Context(), id)
	if err != nil {
		return nil, err
	}
	if budget.UserID != currentUserID(c) {
		return nil, common.ErrNotFound
	}
	return budget, nil
}
