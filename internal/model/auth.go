package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are JWT claims carried by every authenticated request
type UserClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}
