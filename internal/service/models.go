package service

import (
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type UserCredentialClaims struct {
	UserName string    `json:"user_name"`
	UserId   uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}
