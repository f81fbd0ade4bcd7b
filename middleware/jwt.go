package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lms/config"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// GenerateJWT generates a JWT token for the user
func GenerateJWT(userID uint, name, role, email string) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"name":   name,
		"role":   role,
		"email":  email,
		"iat":    time.Now().Unix(),                     // issued at
		"exp":    time.Now().Add(24 * time.Hour).Unix(), // expiry 24h
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	jwtSecret := []byte(config.AppConfig.JWTKey)

	return token.SignedString(jwtSecret)
}

// JWTMiddleware is a middleware to check for valid JWT token in the request
func JWTMiddleware(c *fiber.Ctx) error {
	// Get the token from the Authorization header
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  false,
			"message": "Missing or invalid Authorization header",
		})
	}

	// The token should be prefixed with "Bearer "
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  false,
			"message": "Invalid Authorization header format",
		})
	}

	// Extract the token part
	tokenString := authHeader[len("Bearer "):]

	// Parse and validate the token
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Check if the token method is valid
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		jwtSecret := []byte(config.AppConfig.JWTKey)
		return jwtSecret, nil
	})

	// If there's an error parsing the token
	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  false,
			"message": "Invalid or expired token",
		})
	}

	// Extract user ID from the token claims
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["userId"] == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  false,
			"message": "Invalid token payload",
		})
	}

	// Set identity in the request context
	userID := claims["userId"].(float64) // JWT numeric claims decode as float64
	c.Locals("userId", uint(userID))
	if role, ok := claims["role"].(string); ok {
		c.Locals("role", role)
	}

	// If valid, continue to the next handler
	return c.Next()
}

// ResolveUserID resolves the effective user identity for a request. The
// authenticated token identity is authoritative; an explicit requested id is
// honoured only when it matches the token or the caller is an ADMIN. A zero
// requested id means "the authenticated user".
func ResolveUserID(c *fiber.Ctx, requested uint) (uint, error) {
	tokenID, ok := c.Locals("userId").(uint)
	if !ok {
		return 0, errors.New("missing authenticated identity")
	}
	if requested == 0 || requested == tokenID {
		return tokenID, nil
	}
	if role, _ := c.Locals("role").(string); role == "ADMIN" {
		return requested, nil
	}
	return 0, errors.New("user id does not match authenticated identity")
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}

// ErrorResponse maps the typed error taxonomy onto the JSON envelope.
func ErrorResponse(c *fiber.Ctx, err error) error {
	var (
		validationErr *utils.ValidationError
		notFoundErr   *utils.NotFoundError
		conflictErr   *utils.ConflictError
		incompleteErr *utils.IncompleteError
		storageErr    *utils.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		return JsonResponse(c, fiber.StatusUnprocessableEntity, false, validationErr.Error(), nil)
	case errors.As(err, &notFoundErr):
		return JsonResponse(c, fiber.StatusNotFound, false, notFoundErr.Error()+"!", nil)
	case errors.As(err, &conflictErr):
		return JsonResponse(c, fiber.StatusConflict, false, conflictErr.Error(), nil)
	case errors.As(err, &incompleteErr):
		return JsonResponse(c, fiber.StatusBadRequest, false, incompleteErr.Error(), nil)
	case errors.As(err, &storageErr):
		return JsonResponse(c, fiber.StatusServiceUnavailable, false, "Storage temporarily unavailable, please retry.", nil)
	default:
		return JsonResponse(c, fiber.StatusInternalServerError, false, "Internal server error!", nil)
	}
}
