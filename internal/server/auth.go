package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/repository"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	req := new(registerRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := s.validator.Struct(req); err != nil {
		return common.NewAppError("VALIDATION", err.Error(), common.ErrInvalidInput)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.GetByEmail(c.Context(), email); err == nil {
		return common.NewAppError("EMAIL_TAKEN", "email is already registered", common.ErrDuplicate)
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user, err := s.users.Create(c.Context(), repository.CreateUserRequest{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
	})
	if err != nil {
		return err
	}

	// Every account starts with the stock category set.
	if err := s.categories.CreateDefaults(c.Context(), user.ID); err != nil {
		s.logger.Error("failed to seed default categories", "user_id", user.ID, "error", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return err
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return c.Status(fiber.StatusCreated).JSON(authResponse{
		Token: token,
		User:  userView{ID: user.ID.String(), Email: user.Email, Name: user.Name},
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	req := new(loginRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := s.validator.Struct(req); err != nil {
		return common.NewAppError("VALIDATION", err.Error(), common.ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewAppError("BAD_CREDENTIALS", "invalid email or password", common.ErrUnauthorized)
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return common.NewAppError("BAD_CREDENTIALS", "invalid email or password", common.ErrUnauthorized)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(authResponse{
		Token: token,
		User:  userView{ID: user.ID.String(), Email: user.Email, Name: user.Name},
	})
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	user, err := s.users.GetByID(c.Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(userView{ID: user.ID.String(), Email: user.Email, Name: user.Name})
}
