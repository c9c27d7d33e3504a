package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/negotiation"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/storage"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/utils"
)

// ApplicationController exposes the negotiation engine over HTTP. All
// mutations go through the engine; the controller only touches collections
// for read-side listing queries.
type ApplicationController struct {
	engine       *negotiation.Engine
	applications *mongo.Collection
	properties   *mongo.Collection
}

func NewApplicationController(db *mongo.Database, engine *negotiation.Engine) *ApplicationController {
	return &ApplicationController{
		engine:       engine,
		applications: db.Collection(storage.CollectionName("MONGODB_COLLECTION_APPLICATIONS", "applications")),
		properties:   db.Collection(storage.CollectionName("MONGODB_COLLECTION_PROPERTIES", "properties")),
	}
}

type createApplicationRequest struct {
	PropertyID    string  `json:"propertyId"`
	ProposedPrice float64 `json:"proposedPrice"`
	Message       string  `json:"message"`
}

// CreateApplication submits a new offer on a property.
func (ac *ApplicationController) CreateApplication(c echo.Context) error {
	var req createApplicationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if req.PropertyID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Property ID is required"})
	}
	propertyID, ok := utils.ParseObjectID(req.PropertyID)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid property ID format"})
	}

	app, err := ac.engine.Submit(c.Request().Context(), actorFrom(c), propertyID, req.ProposedPrice, req.Message)
	if err != nil {
		return negotiationError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"id":      app.ID,
		"message": "Application submitted successfully",
	})
}

// MyApplications lists the caller's applications as seeker, each populated
// with its current property document.
func (ac *ApplicationController) MyApplications(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Email is required"})
	}
	if actor := actorFrom(c); actor.Email != email {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "You can only view your own applications"})
	}

	ctx := context.Background()
	cursor, err := ac.applications.Find(ctx,
		bson.M{"seeker.email": email},
		options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch applications"})
	}
	defer cursor.Close(ctx)

	type applicationWithProperty struct {
		models.Application `bson:",inline"`
		Property           *models.Property `json:"property"`
	}

	results := []applicationWithProperty{}
	for cursor.Next(ctx) {
		var app models.Application
		if err := cursor.Decode(&app); err != nil {
			continue
		}
		entry := applicationWithProperty{Application: app}
		var property models.Property
		if err := ac.properties.FindOne(ctx, bson.M{"_id": app.PropertyID}).Decode(&property); err == nil {
			entry.Property = &property
		}
		results = append(results, entry)
	}
	return c.JSON(http.StatusOK, results)
}

// PropertyApplications lists every application on one of the caller's
// properties.
func (ac *ApplicationController) PropertyApplications(c echo.Context) error {
	actor := actorFrom(c)
	propertyID, ok := utils.ParseObjectID(c.Param("propertyId"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid property ID format"})
	}

	ctx := context.Background()
	var property models.Property
	err := ac.properties.FindOne(ctx, bson.M{"_id": propertyID}).Decode(&property)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Property not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch property"})
	}
	if property.Owner.Email != actor.Email {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "You don't have permission to view applications for this property"})
	}

	cursor, err := ac.applications.Find(ctx,
		bson.M{"propertyId": propertyID},
		options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch applications"})
	}
	defer cursor.Close(ctx)

	applications := []models.Application{}
	for cursor.Next(ctx) {
		var app models.Application
		if err := cursor.Decode(&app); err != nil {
			continue
		}
		applications = append(applications, app)
	}
	return c.JSON(http.StatusOK, applications)
}

type updateApplicationRequest struct {
	Status        string  `json:"status"`
	ProposedPrice float64 `json:"proposedPrice"`
}

// UpdateApplicationStatus is the owner acting on an offer: accept
// (deal-in-progress), reject, or counter.
func (ac *ApplicationController) UpdateApplicationStatus(c echo.Context) error {
	applicationID, ok := utils.ParseObjectID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid application ID format"})
	}

	var req updateApplicationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	actor := actorFrom(c)
	ctx := c.Request().Context()

	var err error
	switch req.Status {
	case models.AppDealInProgress:
		err = ac.engine.Accept(ctx, actor, applicationID)
	case models.AppRejected:
		err = ac.engine.Reject(ctx, actor, applicationID)
	case models.AppCounter:
		err = ac.engine.Counter(ctx, actor, applicationID, req.ProposedPrice)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{
			"message": "Invalid status. Must be one of: deal-in-progress, rejected, counter",
		})
	}
	if err != nil {
		return negotiationError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Application " + req.Status + " successfully",
	})
}

func (ac *ApplicationController) WithdrawApplication(c echo.Context) error {
	applicationID, ok := utils.ParseObjectID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid application ID format"})
	}

	if err := ac.engine.Withdraw(c.Request().Context(), actorFrom(c), applicationID); err != nil {
		return negotiationError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Application withdrawn successfully",
	})
}

type reviseApplicationRequest struct {
	ProposedPrice float64 `json:"proposedPrice"`
	Message       *string `json:"message"`
}

func (ac *ApplicationController) ReviseApplication(c echo.Context) error {
	applicationID, ok := utils.ParseObjectID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid application ID format"})
	}

	var req reviseApplicationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	if err := ac.engine.Revise(c.Request().Context(), actorFrom(c), applicationID, req.ProposedPrice, req.Message); err != nil {
		return negotiationError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Offer revised successfully",
	})
}

func (ac *ApplicationController) AcceptCounterOffer(c echo.Context) error {
	applicationID, ok := utils.ParseObjectID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid application ID format"})
	}

	if err := ac.engine.AcceptCounter(c.Request().Context(), actorFrom(c), applicationID); err != nil {
		return negotiationError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Counter offer accepted successfully! Deal is now in progress.",
	})
}

type dealStatusRequest struct {
	DealStatus string `json:"dealStatus"`
}

// UpdateDealStatus completes or cancels the active deal on a property.
func (ac *ApplicationController) UpdateDealStatus(c echo.Context) error {
	propertyID, ok := utils.ParseObjectID(c.Param("propertyId"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid property ID format"})
	}

	var req dealStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	actor := actorFrom(c)
	ctx := c.Request().Context()

	var err error
	switch req.DealStatus {
	case models.AppCompleted:
		err = ac.engine.CompleteDeal(ctx, actor, propertyID)
	case models.AppCancelled:
		err = ac.engine.CancelDeal(ctx, actor, propertyID)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "dealStatus must be 'completed' or 'cancelled'"})
	}
	if err != nil {
		return negotiationError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Deal " + req.DealStatus + " successfully",
		"propertyId": propertyID,
	})
}
