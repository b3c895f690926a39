package utils

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID int
	Email  string
	Role   string
}

var errInvalidToken = errors.New("invalid token")

func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, errInvalidToken
	}

	c := &Claims{UserID: int(userID)}
	if email, ok := claims["email"].(string); ok {
		c.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		c.Role = role
	} else {
		c.Role = "customer"
	}
	return c, nil
}
