package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusphere/db"
	"campusphere/models"
	"campusphere/storage"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

func (h *handlers) lookupUser(c *fiber.Ctx) error {
	var req models.LookupUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.UserResponse{Error: "invalid request body"})
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.UserResponse{Error: "Email is required"})
	}

	user, err := h.users.GetUserByEmail(requestContext(c), email)
	switch {
	case errors.Is(err, db.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(models.UserResponse{Error: "User not found with this email"})
	case errors.Is(err, db.ErrUnavailable):
		log.WithFields(log.Fields{"error": err}).Error("Database unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.UserResponse{Error: "Database connection refused"})
	case err != nil:
		log.WithFields(log.Fields{"error": err}).Error("Error looking up user")
		return c.Status(fiber.StatusInternalServerError).JSON(models.UserResponse{
			Error:   "Failed to authenticate user",
			Details: err.Error(),
		})
	}

	return c.JSON(models.UserResponse{
		Success: true,
		User:    &user,
		Message: "User authenticated successfully",
	})
}

func (h *handlers) createUser(c *fiber.Ctx) error {
	var req models.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.UserResponse{Error: "invalid request body"})
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.UserResponse{Error: "Name and email are required"})
	}

	user, err := h.users.CreateUser(requestContext(c), models.User{Name: name, Email: email, Image: req.Image})
	switch {
	case errors.Is(err, db.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(models.UserResponse{Error: "User with this email already exists"})
	case errors.Is(err, db.ErrUnavailable):
		log.WithFields(log.Fields{"error": err}).Error("Database unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.UserResponse{Error: "Database connection refused"})
	case err != nil:
		log.WithFields(log.Fields{"error": err}).Error("Error creating user")
		return c.Status(fiber.StatusInternalServerError).JSON(models.UserResponse{
			Error:   "Failed to create user",
			Details: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.UserResponse{
		Success: true,
		User:    &user,
		Message: "User created successfully",
	})
}

func (h *handlers) uploadProfileImage(c *fiber.Ctx) error {
	ctx := requestContext(c)

	var req models.UploadImageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.UploadImageResponse{Error: "invalid request body"})
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.ImageBase64 == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.UploadImageResponse{Error: "Email and image are required"})
	}

	data, err := decodeImage(req.ImageBase64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.UploadImageResponse{Error: "Invalid image data"})
	}
	if h.store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.UploadImageResponse{Error: "Image storage is not configured"})
	}

	url, err := h.store.Put(ctx, storage.ProfileImageKey(h.prefix, email, time.Now()), data, storage.ContentTypeJPEG)
	if err != nil {
		imageUploadFailures.WithLabelValues("profile").Inc()
		log.WithFields(log.Fields{"email": email, "error": err}).Error("Error uploading profile image")
		return c.Status(fiber.StatusBadGateway).JSON(models.UploadImageResponse{Error: "Failed to upload image"})
	}

	// During sign-up the image is uploaded before the user record exists
	if err := h.users.SetUserImage(ctx, email, url); err != nil && !errors.Is(err, db.ErrUserNotFound) {
		log.WithFields(log.Fields{"email": email, "error": err}).Warn("Failed to attach image to user")
	}

	return c.JSON(models.UploadImageResponse{Success: true, URL: url})
}

func (h *handlers) uploadImage(ctx context.Context, key, encoded string) (string, error) {
	if h.store == nil {
		return "", errors.New("no image storage configured")
	}
	data, err := decodeImage(encoded)
	if err != nil {
		return "", err
	}
	return h.store.Put(ctx, key, data, storage.ContentTypeJPEG)
}

// decodeImage accepts plain base64 or a data URL
func decodeImage(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	encoded = strings.TrimSpace(encoded)

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("decode image: empty image")
	}
	return data, nil
}
