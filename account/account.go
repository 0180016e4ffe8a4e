// Package account registers new users and signs existing ones in.
//
// Registration is a sequence of independent steps. A failed profile image
// upload or user record write does not undo the account; it is reported as a
// warning on the Result instead.
package account

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"campusphere/client"
	"campusphere/compose"
	"campusphere/identity"
	"campusphere/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	WarnImageUpload = "Account created but failed to upload profile image"
	WarnSaveUser    = "Account created but failed to save user data"
)

// ErrNoAccount is returned by SignIn when the email has no user record
var ErrNoAccount = errors.New("No account found with this email address")

// ValidationError is a missing or malformed field
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Directory is the user API. client.Client implements it.
type Directory interface {
	LookupUser(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error)
	UploadProfileImage(ctx context.Context, email, imageBase64 string) (string, error)
}

type RegisterRequest struct {
	Name      string
	Email     string
	ImagePath string
}

// Result describes what registration achieved
type Result struct {
	User     models.User
	ImageURL string
	Warnings []string
}

// Service runs account flows against a Directory and records the outcome in
// the session.
type Service struct {
	dir      Directory
	session  *identity.Session
	readFile func(string) ([]byte, error)
}

func NewService(dir Directory, session *identity.Session) *Service {
	return &Service{dir: dir, session: session, readFile: os.ReadFile}
}

// Register creates the user record and uploads the optional profile image.
// Only validation failures return an error.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Result, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" {
		return nil, &ValidationError{Message: "Please enter all details!"}
	}
	if !strings.Contains(email, "@") {
		return nil, &ValidationError{Message: "Invalid email address"}
	}

	logger := log.WithFields(log.Fields{"email": email})
	result := &Result{User: models.User{Name: name, Email: email}}

	if req.ImagePath != "" {
		url, err := s.uploadImage(ctx, email, req.ImagePath)
		if err != nil {
			logger.WithFields(log.Fields{"error": err}).Warn("Failed to upload profile image")
			result.Warnings = append(result.Warnings, WarnImageUpload)
		} else {
			result.ImageURL = url
		}
	}

	s.signIn(identity.Viewer{
		Email:       email,
		DisplayName: &name,
		AvatarURL:   lo.EmptyableToPtr(result.ImageURL),
	})

	user, err := s.dir.CreateUser(ctx, models.CreateUserRequest{
		Name:  name,
		Email: email,
		Image: lo.ToPtr(result.ImageURL),
	})
	if err != nil {
		logger.WithFields(log.Fields{"error": err}).Warn("Failed to save user")
		result.Warnings = append(result.Warnings, WarnSaveUser)
		if result.ImageURL != "" {
			result.User.Image = &result.ImageURL
		}
		return result, nil
	}

	result.User = user
	logger.Info("Account created")
	return result, nil
}

// SignIn looks up the user record for email and signs the session in with
// its profile.
func (s *Service) SignIn(ctx context.Context, email string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.User{}, &ValidationError{Message: "Please enter email and password!"}
	}

	user, err := s.dir.LookupUser(ctx, email)
	if err != nil {
		if client.StatusCode(err) == http.StatusNotFound {
			return models.User{}, ErrNoAccount
		}
		return models.User{}, err
	}

	s.signIn(identity.Viewer{
		Email:       lo.CoalesceOrEmpty(user.Email, email),
		DisplayName: lo.EmptyableToPtr(user.Name),
		AvatarURL:   user.Image,
	})
	log.WithFields(log.Fields{"email": email}).Info("Signed in")
	return user, nil
}

func (s *Service) signIn(v identity.Viewer) {
	if s.session != nil {
		s.session.SignIn(v)
	}
}

func (s *Service) uploadImage(ctx context.Context, email, path string) (string, error) {
	data, err := s.readFile(path)
	if err != nil {
		return "", &compose.EncodingError{Path: path, Err: err}
	}
	return s.dir.UploadProfileImage(ctx, email, compose.EncodeImage(data))
}
