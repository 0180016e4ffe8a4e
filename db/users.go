package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campusphere/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

func selectUserQuery(email string) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "email", "image", "created_at").From("users")
	sb.Where(sb.Equal("email", email))
	sb.Limit(1)
	return sb.Build()
}

// GetUserByEmail looks up a user profile record
func (db *DB) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sql, args := selectUserQuery(email)
	user, err := scanUser(db.db.QueryRowContext(ctx, sql, args...))
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// CreateUser stores a user record. Returns ErrEmailTaken when the email is
// already registered.
func (db *DB) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	log.WithFields(log.Fields{
		"email":    user.Email,
		"hasImage": user.Image != nil,
	}).Info("Creating user")

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("users")
	ib.Cols("name", "email", "image")
	ib.Values(user.Name, user.Email, normaliseURL(user.Image))
	query, args := ib.Build()
	query += " RETURNING id, name, email, image, created_at"

	created, err := scanUser(db.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return models.User{}, err
	}
	return created, nil
}

// SetUserImage updates the profile image of an existing user
func (db *DB) SetUserImage(ctx context.Context, email string, imageURL string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("users")
	ub.Set(ub.Assign("image", imageURL))
	ub.Where(ub.Equal("email", email))
	query, args := ub.Build()

	res, err := db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(fmt.Errorf("update error: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (models.User, error) {
	var (
		user  models.User
		image sql.NullString
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &image, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, classify(fmt.Errorf("user query error: %w", err))
	}
	if image.Valid && image.String != "" {
		user.Image = &image.String
	}
	return user, nil
}
