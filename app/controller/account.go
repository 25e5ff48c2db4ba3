package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	dto "github.com/safestats/ms-account/app/dto/http"
	"github.com/safestats/ms-account/app/entity"
	"github.com/safestats/ms-account/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type accountService interface {
	Register(ctx context.Context, in *service.RegisterInput) (*entity.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	RequestRecovery(ctx context.Context, email string) error
	CompleteRecovery(ctx context.Context, token, newPassword, confirmation string) error
}

// AccountController handles the unauthenticated surface: registration,
// login and the password recovery flow.
type AccountController struct {
	accounts accountService
}

func NewAccountController(accounts accountService) *AccountController {
	return &AccountController{accounts: accounts}
}

func (c *AccountController) Register(ctx echo.Context) error {
	var req dto.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "name, email and password are required"})
	}

	in := &service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Phone:           req.Phone,
	}
	if req.Birthdate != "" {
		birthdate, err := parseDate(req.Birthdate)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid birthdate"})
		}
		in.Birthdate = &birthdate
	}

	_, err := c.accounts.Register(ctx.Request().Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid e-mail", Code: "ERR_INVALID_EMAIL"})
		case errors.Is(err, service.ErrPasswordMismatch):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Password and confirmation must be equal", Code: "ERR_INVALID_PASS"})
		case errors.Is(err, service.ErrEmailAlreadyUsed):
			logrus.WithField("email", req.Email).Warn("Register failed: email already in use")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Email already in use", Code: "ERR_EMAIL_ALREADY_USED"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("User registered")
	return ctx.JSON(http.StatusCreated, dto.MessageResponse{Message: "User created"})
}

func (c *AccountController) Login(ctx echo.Context) error {
	var req dto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email and password are required"})
	}

	token, err := c.accounts.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
		}
		if errors.Is(err, service.ErrUserDeleted) {
			logrus.WithField("email", req.Email).Warn("Login failed: user deleted")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "User deleted"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("Login successful")
	return ctx.JSON(http.StatusOK, dto.TokenResponse{Token: token})
}

func (c *AccountController) RecoverPassword(ctx echo.Context) error {
	var req dto.RecoverPasswordRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
	}

	if err := c.accounts.RequestRecovery(ctx.Request().Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("email", req.Email).Warn("Recovery requested for unknown email")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Recovery request failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("Recovery link sent")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Recovery link sent"})
}

func (c *AccountController) UpdatePassword(ctx echo.Context) error {
	var req dto.UpdatePasswordRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Token == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "token and password are required"})
	}

	err := c.accounts.CompleteRecovery(ctx.Request().Context(), req.Token, req.Password, req.PasswordConfirmation)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Password and confirmation must be equal"})
		case errors.Is(err, service.ErrTokenNotFound):
			logrus.Warn("Recovery completion failed: token not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Token not found"})
		case errors.Is(err, service.ErrTokenExpired):
			logrus.Warn("Recovery completion failed: expired token")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Expired token"})
		case errors.Is(err, service.ErrUserNotFound):
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
		}
		logrus.WithError(err).Error("Recovery completion failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.Info("Password updated via recovery token")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Password updated"})
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
