package controller

import (
	"context"
	"errors"
	"net/http"

	dto "github.com/safestats/ms-account/app/dto/http"
	"github.com/safestats/ms-account/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type profileService interface {
	SoftDelete(ctx context.Context, userID, password, confirmation string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirmation string) error
	UpdatePreferredLanguage(ctx context.Context, userID, lang string) error
	UpdateBloodDonation(ctx context.Context, userID string, in *service.BloodDonationInput) error
	UpdateTrustedContact(ctx context.Context, userID string, in *service.TrustedContactInput) error
	UpdateHealthPlan(ctx context.Context, userID string, in *service.HealthPlanInput) error
}

// ProfileController handles the bearer-protected surface. The auth
// middleware resolves the caller's identity into the echo context before
// any of these run.
type ProfileController struct {
	accounts profileService
}

func NewProfileController(accounts profileService) *ProfileController {
	return &ProfileController{accounts: accounts}
}

func (c *ProfileController) DeleteUser(ctx echo.Context) error {
	var req dto.DeleteUserRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	userID, ok := ctx.Get("user_id").(string)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	err := c.accounts.SoftDelete(ctx.Request().Context(), userID, req.Password, req.PasswordConfirmation)
	if err != nil {
		if errors.Is(err, service.ErrPasswordMismatch) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Password and confirmation must be equal"})
		}
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("user_id", userID).Warn("Delete failed: user not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "User not found."})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Delete failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", userID).Info("User soft-deleted")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "User deleted."})
}

func (c *ProfileController) ChangePassword(ctx echo.Context) error {
	var req dto.ChangePasswordRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "oldPassword and newPassword are required"})
	}

	userID, ok := ctx.Get("user_id").(string)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	err := c.accounts.ChangePassword(ctx.Request().Context(), userID, req.OldPassword, req.NewPassword, req.PasswordConfirmation)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Password and confirmation must be equal"})
		case errors.Is(err, service.ErrInvalidPassword):
			logrus.WithField("user_id", userID).Warn("Change password failed: invalid password")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid password"})
		case errors.Is(err, service.ErrUserNotFound):
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Change password failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", userID).Info("Password changed")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Password updated"})
}

func (c *ProfileController) UpdatePreferredLanguage(ctx echo.Context) error {
	var req dto.PreferredLanguageRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	userID, ok := ctx.Get("user_id").(string)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	err := c.accounts.UpdatePreferredLanguage(ctx.Request().Context(), userID, req.PreferredLanguage)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLanguage) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid preferred language"})
		}
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Preferred language update failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{"user_id": userID, "language": req.PreferredLanguage}).Info("Preferred language updated")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Preferrable language updated"})
}

func (c *ProfileController) UpdateBloodDonation(ctx echo.Context) error {
	var req dto.BloodDonationRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.BloodType == "" || req.DonationLocation == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "bloodType and donationLocation are required"})
	}

	userID, ok := ctx.Get("user_id").(string)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	err := c.accounts.UpdateBloodDonation(ctx.Request().Context(), userID, &service.BloodDonationInput{
		BloodType:        req.BloodType,
		DonationLocation: req.DonationLocation,
		DidDonate:        req.DidDonate,
	})
	if err != nil {
		return c.profileError(ctx, userID, "Blood donation update failed", err)
	}

	logrus.WithField("user_id", userID).Info("Blood donation updated")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Blood donation updated"})
}

func (c *ProfileController) UpdateTrustedContact(ctx echo.Context) error {
	var req dto.TrustedContactRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Name == "" || req.Email == "" || req.Phone == "" || req.Address == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "name, email, phone and address are required"})
	}

	birthdate, err := parseDate(req.Birthdate)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid birthdate"})
	}

	userID, ok := ctx.Get("user_id").(string)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	err = c.accounts.UpdateTrustedContact(ctx.Request().Context(), userID, &service.TrustedContactInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Birthdate: birthdate,
		Address:   req.Address,
	})
	if err != nil {
		return c.profileError(ctx, userID, "Trusted contact update failed", err)
	}

	logrus.WithField("user_id", userID).Info("Trusted contact updated")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Trusted contact updated"})
}

func (c *ProfileController) UpdateHealthPlan(ctx echo.Context) error {
	var req dto.HealthPlanRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Institution == "" || req.Type == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "institution and type are required"})
	}

	userID, ok := ctx.Get("user_id").(string)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	err := c.accounts.UpdateHealthPlan(ctx.Request().Context(), userID, &service.HealthPlanInput{
		Institution:   req.Institution,
		Type:          req.Type,
		Accommodation: req.Accommodation,
	})
	if err != nil {
		return c.profileError(ctx, userID, "Health plan update failed", err)
	}

	logrus.WithField("user_id", userID).Info("Health plan updated")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Health plan updated"})
}

func (c *ProfileController) profileError(ctx echo.Context, userID, message string, err error) error {
	if errors.Is(err, service.ErrUserNotFound) {
		logrus.WithField("user_id", userID).Warn(message + ": user not found")
		return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
	}
	logrus.WithError(err).WithField("user_id", userID).Error(message)
	return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
}
