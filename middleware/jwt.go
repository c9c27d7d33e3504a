package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/storage"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/utils"
)

// JWTMiddleware authenticates the request and stores the caller's identity
// snapshot in the echo context under user_* keys.
func JWTMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"message": "Authorization header is required",
				})
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"message": "Invalid authorization header format",
				})
			}

			claims, err := utils.ValidateJWT(tokenParts[1])
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"message": "Invalid token",
				})
			}

			c.Set("user_uid", claims.UID)
			c.Set("user_email", claims.Email)
			c.Set("user_name", claims.Name)
			c.Set("user_photo", claims.PhotoURL)
			c.Set("user_role", claims.Role)
			c.Set("user_verified", claims.Verified)

			return next(c)
		}
	}
}

// AdminOnly re-checks the caller's role against the users collection, so a
// stale token cannot keep admin rights after a demotion.
func AdminOnly(db *mongo.Database) echo.MiddlewareFunc {
	users := db.Collection(storage.CollectionName("MONGODB_COLLECTION_USER", "users"))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			email, _ := c.Get("user_email").(string)
			var user models.User
			err := users.FindOne(context.Background(), bson.M{"email": email}).Decode(&user)
			if err != nil || user.Role != "admin" {
				return c.JSON(http.StatusForbidden, map[string]string{"message": "Admins only"})
			}
			return next(c)
		}
	}
}
