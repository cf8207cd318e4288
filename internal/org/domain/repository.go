package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
}

var ErrUserNotFound = errors.New("user_not_found")
