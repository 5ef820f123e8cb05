package user_service

import (
	"github.com/FloatCTF/cdm/internal/database"
)

type UserRole string

const (
	RolePlayer UserRole = "player"
	RoleAdmin  UserRole = "admin"
)

type UserService struct {
	DB database.Querier
}
