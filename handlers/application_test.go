package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/negotiation"
)

// as returns a middleware that injects an authenticated identity the way
// the JWT middleware would.
func as(actor negotiation.Actor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_uid", actor.UID)
			c.Set("user_email", actor.Email)
			c.Set("user_name", actor.Name)
			c.Set("user_photo", actor.PhotoURL)
			c.Set("user_role", actor.Role)
			c.Set("user_verified", actor.Verified)
			return next(c)
		}
	}
}

func buildTestApp(t *testing.T, actor negotiation.Actor) (*echo.Echo, *negotiation.MemStore, *models.Property) {
	t.Helper()
	store := negotiation.NewMemStore()
	property := &models.Property{
		ID:          primitive.NewObjectID(),
		Title:       "City Building",
		ListingType: models.ListingSale,
		Price:       2000000,
		Status:      models.PropertyActive,
		Visibility:  models.VisibilityVisible,
		Owner:       models.PartySnapshot{UID: "u-owner", Name: "Owner", Email: "owner@example.com"},
	}
	store.Properties[property.ID] = property

	ac := &ApplicationController{engine: negotiation.NewEngine(store)}

	e := echo.New()
	auth := as(actor)
	e.POST("/application", ac.CreateApplication, auth)
	e.PATCH("/application/:id", ac.UpdateApplicationStatus, auth)
	e.PATCH("/application/:id/withdraw", ac.WithdrawApplication, auth)
	e.PATCH("/application/:id/revise", ac.ReviseApplication, auth)
	e.PATCH("/application/:id/accept-counter", ac.AcceptCounterOffer, auth)
	e.PATCH("/property/:propertyId/deal", ac.UpdateDealStatus, auth)
	return e, store, property
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateApplicationEndpoint(t *testing.T) {
	seeker := negotiation.Actor{UID: "u-seeker", Name: "Seeker", Email: "seeker@example.com"}
	e, _, property := buildTestApp(t, seeker)

	rec := doJSON(e, http.MethodPost, "/application",
		`{"propertyId":"`+property.ID.Hex()+`","proposedPrice":100000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["success"] != true || body["id"] == nil {
		t.Errorf("body = %v", body)
	}
}

func TestCreateApplicationBadRequests(t *testing.T) {
	seeker := negotiation.Actor{Email: "seeker@example.com"}
	e, _, property := buildTestApp(t, seeker)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing propertyId", `{"proposedPrice":100}`, http.StatusBadRequest},
		{"malformed propertyId", `{"propertyId":"nope","proposedPrice":100}`, http.StatusBadRequest},
		{"unknown property", `{"propertyId":"` + primitive.NewObjectID().Hex() + `","proposedPrice":100}`, http.StatusNotFound},
		{"zero price", `{"propertyId":"` + property.ID.Hex() + `","proposedPrice":0}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := doJSON(e, http.MethodPost, "/application", tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d (body %s)", tc.name, rec.Code, tc.want, rec.Body.String())
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["message"] == "" {
			t.Errorf("%s: missing message in body %s", tc.name, rec.Body.String())
		}
	}
}

func TestOwnerActionEndpoint(t *testing.T) {
	seekerActor := negotiation.Actor{UID: "u-seeker", Name: "Seeker", Email: "seeker@example.com"}
	ownerActor := negotiation.Actor{UID: "u-owner", Name: "Owner", Email: "owner@example.com"}

	e, store, property := buildTestApp(t, ownerActor)
	engine := negotiation.NewEngine(store)
	app, err := engine.Submit(httptest.NewRequest(http.MethodGet, "/", nil).Context(), seekerActor, property.ID, 100000, "")
	if err != nil {
		t.Fatalf("seed application: %v", err)
	}

	rec := doJSON(e, http.MethodPatch, "/application/"+app.ID.Hex(),
		`{"status":"counter","proposedPrice":120000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("counter: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := store.Applications[app.ID].Status; got != models.AppCounter {
		t.Errorf("application status = %q, want counter", got)
	}

	rec = doJSON(e, http.MethodPatch, "/application/"+app.ID.Hex(), `{"status":"bogus"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus status: code = %d, want 400", rec.Code)
	}

	// Owner accepting their own counter is rejected by the engine.
	rec = doJSON(e, http.MethodPatch, "/application/"+app.ID.Hex(), `{"status":"deal-in-progress"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("accept own counter: code = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestForbiddenAndDealEndpoints(t *testing.T) {
	seekerActor := negotiation.Actor{UID: "u-seeker", Name: "Seeker", Email: "seeker@example.com"}
	stranger := negotiation.Actor{UID: "u-eve", Name: "Eve", Email: "eve@example.com"}

	e, store, property := buildTestApp(t, stranger)
	engine := negotiation.NewEngine(store)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	app, err := engine.Submit(ctx, seekerActor, property.ID, 100000, "")
	if err != nil {
		t.Fatalf("seed application: %v", err)
	}

	rec := doJSON(e, http.MethodPatch, "/application/"+app.ID.Hex()+"/withdraw", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("withdraw by stranger: code = %d, want 403", rec.Code)
	}

	ownerActor := negotiation.Actor{UID: "u-owner", Name: "Owner", Email: "owner@example.com"}
	if err := engine.Accept(ctx, ownerActor, app.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	rec = doJSON(e, http.MethodPatch, "/property/"+property.ID.Hex()+"/deal", `{"dealStatus":"completed"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("complete by stranger: code = %d, want 403 (body %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPatch, "/property/"+property.ID.Hex()+"/deal", `{"dealStatus":"paused"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad dealStatus: code = %d, want 400", rec.Code)
	}
}
