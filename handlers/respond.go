package handlers

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/negotiation"
)

// actorFrom rebuilds the authenticated caller from the context keys the JWT
// middleware populated.
func actorFrom(c echo.Context) negotiation.Actor {
	uid, _ := c.Get("user_uid").(string)
	email, _ := c.Get("user_email").(string)
	name, _ := c.Get("user_name").(string)
	photo, _ := c.Get("user_photo").(string)
	role, _ := c.Get("user_role").(string)
	verified, _ := c.Get("user_verified").(bool)
	return negotiation.Actor{
		UID:      uid,
		Name:     name,
		Email:    email,
		PhotoURL: photo,
		Role:     role,
		Verified: verified,
	}
}

// negotiationError maps an engine error to the HTTP response contract:
// validation and invalid transitions are 400, missing documents 404,
// authorization failures 403, everything else a logged 500 with a generic
// message.
func negotiationError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch negotiation.KindOf(err) {
	case negotiation.KindValidation, negotiation.KindInvalidTransition:
		status = http.StatusBadRequest
	case negotiation.KindNotFound:
		status = http.StatusNotFound
	case negotiation.KindAuthorization:
		status = http.StatusForbidden
	default:
		log.Printf("%s %s error: %v", c.Request().Method, c.Request().URL.Path, err)
	}
	return c.JSON(status, map[string]string{"message": negotiation.Message(err)})
}
