package account_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"campusphere/account"
	"campusphere/client"
	"campusphere/identity"
	"campusphere/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	users     map[string]models.User
	lookupErr error
	createErr error
	uploadErr error

	created  []models.CreateUserRequest
	uploaded []string
}

func (f *fakeDirectory) LookupUser(ctx context.Context, email string) (models.User, error) {
	if f.lookupErr != nil {
		return models.User{}, f.lookupErr
	}
	u, ok := f.users[email]
	if !ok {
		return models.User{}, &client.ServerError{Status: 404, Message: "User not found with this email"}
	}
	return u, nil
}

func (f *fakeDirectory) CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return models.User{}, f.createErr
	}
	return models.User{Name: req.Name, Email: req.Email, Image: req.Image}, nil
}

func (f *fakeDirectory) UploadProfileImage(ctx context.Context, email, imageBase64 string) (string, error) {
	f.uploaded = append(f.uploaded, imageBase64)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "http://localhost:3000/uploads/CampuSphere/profile_images/alice_1.jpg", nil
}

func imageFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "me.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))
	return path
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		req  account.RegisterRequest
	}{
		{name: "missing name", req: account.RegisterRequest{Email: "alice@campus.edu"}},
		{name: "missing email", req: account.RegisterRequest{Name: "Alice"}},
		{name: "blank name", req: account.RegisterRequest{Name: "  ", Email: "alice@campus.edu"}},
		{name: "not an email", req: account.RegisterRequest{Name: "Alice", Email: "alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &fakeDirectory{}
			session := identity.NewSession()
			svc := account.NewService(dir, session)

			_, err := svc.Register(context.Background(), tt.req)
			var verr *account.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Empty(t, dir.created)
			assert.False(t, session.Viewer().Authenticated())
		})
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name          string
		dir           *fakeDirectory
		imagePath     func(t *testing.T) string
		wantWarnings  []string
		wantImageURL  string
		wantUploads   int
		wantAvatarSet bool
	}{
		{
			name:      "without image",
			dir:       &fakeDirectory{},
			imagePath: func(t *testing.T) string { return "" },
		},
		{
			name:          "with image",
			dir:           &fakeDirectory{},
			imagePath:     imageFile,
			wantImageURL:  "http://localhost:3000/uploads/CampuSphere/profile_images/alice_1.jpg",
			wantUploads:   1,
			wantAvatarSet: true,
		},
		{
			name:         "image upload fails",
			dir:          &fakeDirectory{uploadErr: &client.ServerError{Status: 502, Message: "Failed to upload image"}},
			imagePath:    imageFile,
			wantWarnings: []string{account.WarnImageUpload},
			wantUploads:  1,
		},
		{
			name:         "image unreadable",
			dir:          &fakeDirectory{},
			imagePath:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.jpg") },
			wantWarnings: []string{account.WarnImageUpload},
		},
		{
			name:         "user record fails",
			dir:          &fakeDirectory{createErr: &client.TransportError{Err: errors.New("connection refused")}},
			imagePath:    func(t *testing.T) string { return "" },
			wantWarnings: []string{account.WarnSaveUser},
		},
		{
			name: "both fail",
			dir: &fakeDirectory{
				uploadErr: errors.New("boom"),
				createErr: &client.ServerError{Status: 500, Message: "Failed to create user"},
			},
			imagePath:    imageFile,
			wantWarnings: []string{account.WarnImageUpload, account.WarnSaveUser},
			wantUploads:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := identity.NewSession()
			svc := account.NewService(tt.dir, session)

			result, err := svc.Register(context.Background(), account.RegisterRequest{
				Name:      "Alice",
				Email:     " alice@campus.edu ",
				ImagePath: tt.imagePath(t),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantWarnings, result.Warnings)
			assert.Equal(t, tt.wantImageURL, result.ImageURL)
			assert.Len(t, tt.dir.uploaded, tt.wantUploads)
			assert.Equal(t, "alice@campus.edu", result.User.Email)

			// the user record is always attempted
			require.Len(t, tt.dir.created, 1)
			assert.Equal(t, "Alice", tt.dir.created[0].Name)

			viewer := session.Viewer()
			assert.Equal(t, "alice@campus.edu", viewer.Email)
			require.NotNil(t, viewer.DisplayName)
			assert.Equal(t, "Alice", *viewer.DisplayName)
			assert.Equal(t, tt.wantAvatarSet, viewer.AvatarURL != nil)
			assert.Equal(t, identity.RouteHome, session.Route())
		})
	}
}

func TestSignIn(t *testing.T) {
	image := "https://cdn/bob.jpg"
	dir := &fakeDirectory{users: map[string]models.User{
		"bob@campus.edu": {Name: "Bob", Email: "bob@campus.edu", Image: &image},
	}}

	t.Run("known user", func(t *testing.T) {
		session := identity.NewSession()
		svc := account.NewService(dir, session)

		user, err := svc.SignIn(context.Background(), "bob@campus.edu")
		require.NoError(t, err)
		assert.Equal(t, "Bob", user.Name)

		viewer := session.Viewer()
		assert.Equal(t, "bob@campus.edu", viewer.Email)
		assert.Equal(t, "Bob", *viewer.DisplayName)
		assert.Equal(t, image, *viewer.AvatarURL)
	})

	t.Run("unknown user", func(t *testing.T) {
		session := identity.NewSession()
		svc := account.NewService(dir, session)

		_, err := svc.SignIn(context.Background(), "nobody@campus.edu")
		assert.ErrorIs(t, err, account.ErrNoAccount)
		assert.Equal(t, "No account found with this email address", err.Error())
		assert.False(t, session.Viewer().Authenticated())
	})

	t.Run("server unavailable", func(t *testing.T) {
		unavailable := &client.ServerError{Status: 503, Message: "Database connection refused"}
		svc := account.NewService(&fakeDirectory{lookupErr: unavailable}, identity.NewSession())

		_, err := svc.SignIn(context.Background(), "bob@campus.edu")
		assert.Equal(t, "Database connection refused", err.Error())
		assert.NotErrorIs(t, err, account.ErrNoAccount)
	})

	t.Run("blank email", func(t *testing.T) {
		svc := account.NewService(dir, identity.NewSession())
		_, err := svc.SignIn(context.Background(), " ")
		var verr *account.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}
