package server

import (
	"strings"

	"campusphere/identity"
	"campusphere/models"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const viewerKey = "viewer"

// TokenVerifier turns a bearer token into a viewer
type TokenVerifier interface {
	Verify(token string) (identity.Viewer, error)
}

// authenticate attaches the token's viewer to the request. Requests without
// a bearer token stay anonymous. Invalid tokens are rejected.
func authenticate(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "Invalid authorization header"})
		}

		viewer, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("Rejected token")
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "Invalid or expired token"})
		}

		c.Locals(viewerKey, viewer)
		return c.Next()
	}
}

// viewerFrom returns the authenticated viewer of the request, if any
func viewerFrom(c *fiber.Ctx) (identity.Viewer, bool) {
	viewer, ok := c.Locals(viewerKey).(identity.Viewer)
	return viewer, ok && viewer.Authenticated()
}
