package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtSecretKey signs our tokens. It comes from the environment in real
// deployments; the fallback exists so local development works out of the box.
var jwtSecretKey = []byte(secretFromEnv())

func secretFromEnv() string {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return s
	}
	return "A_VERY_SECURE_SECRET_KEY_REPLACE_LATER"
}

// GenerateToken creates a new JWT for a given admin ID.
func GenerateToken(adminID int64) (string, error) {
	// 1. Create the "claims" (the data inside the token).
	// We also set an expiration time (72 hours).
	claims := jwt.MapClaims{
		"sub": adminID,                               // "sub" (Subject) is the standard claim for the admin ID
		"exp": time.Now().Add(time.Hour * 72).Unix(), // Expires in 3 days
		"iat": time.Now().Unix(),                     // "iat" (Issued At)
	}

	// 2. Create the token object, signed with HS256.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// 3. Sign the token with our secret key.
	tokenString, err := token.SignedString(jwtSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken parses and validates a JWT token string.
// It returns the admin ID (subject) if the token is valid.
func ValidateToken(tokenString string) (int64, error) {
	// 1. Parse the token string.
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 2. Check the signing method.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}

		// 3. Return our secret key for validation.
		return jwtSecretKey, nil
	})
	if err != nil {
		return 0, err // Token parsing failed (e.g., expired, malformed)
	}

	// 4. Check if the token is valid and get the claims.
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		// 5. Get the admin ID ("sub") from the claims.
		adminIDFloat, ok := claims["sub"].(float64)
		if !ok {
			return 0, errors.New("invalid subject claim")
		}
		// Convert the float64 (JSON's number type) to int64
		return int64(adminIDFloat), nil
	}

	return 0, errors.New("invalid token")
}
