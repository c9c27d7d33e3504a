package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/negotiation"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/storage"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/utils"
)

const listCacheTTL = 2 * time.Minute

type PropertyController struct {
	collection *mongo.Collection
}

func NewPropertyController(db *mongo.Database) *PropertyController {
	return &PropertyController{
		collection: db.Collection(storage.CollectionName("MONGODB_COLLECTION_PROPERTIES", "properties")),
	}
}

type createPropertyRequest struct {
	Title        string                  `json:"title" validate:"required"`
	ListingType  string                  `json:"listingType" validate:"required,oneof=rent sale"`
	PropertyType string                  `json:"propertyType" validate:"required,oneof=flat building"`
	Price        float64                 `json:"price" validate:"required,gt=0"`
	AreaSqFt     float64                 `json:"areaSqFt" validate:"required,gt=0"`
	Address      string                  `json:"address" validate:"required"`
	Overview     string                  `json:"overview"`
	Images       []string                `json:"images"`
	Amenities    []string                `json:"amenities"`
	Location     models.Location         `json:"location"`
	Flat         *models.FlatDetails     `json:"flat"`
	Building     *models.BuildingDetails `json:"building"`
}

// CreateProperty lists a new property. The listing starts as pending and
// becomes visible once an admin approves it.
func (pc *PropertyController) CreateProperty(c echo.Context) error {
	actor := actorFrom(c)
	if !actor.Verified {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "NID verification required"})
	}

	var req createPropertyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := utils.Validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Validation failed: " + err.Error()})
	}

	// The detail variant must match the property type.
	switch req.PropertyType {
	case models.PropertyFlat:
		if req.Flat == nil || req.Building != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Flat listings require roomCount and bathrooms"})
		}
	case models.PropertyBuilding:
		if req.Building == nil || req.Flat != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Building listings require floorCount and totalUnits"})
		}
	}

	now := time.Now()
	property := models.Property{
		Title:        req.Title,
		ListingType:  req.ListingType,
		PropertyType: req.PropertyType,
		Price:        req.Price,
		AreaSqFt:     req.AreaSqFt,
		Address:      req.Address,
		Overview:     req.Overview,
		Images:       req.Images,
		Amenities:    req.Amenities,
		Location:     req.Location,
		Status:       models.PropertyPending,
		Visibility:   models.VisibilityVisible,
		Owner: models.PartySnapshot{
			UID:      actor.UID,
			Name:     actor.Name,
			Email:    actor.Email,
			PhotoURL: actor.PhotoURL,
		},
		Flat:      req.Flat,
		Building:  req.Building,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := pc.collection.InsertOne(context.Background(), property)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to create property"})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"id":      res.InsertedID,
		"message": "Property listed successfully",
	})
}

func (pc *PropertyController) GetProperty(c echo.Context) error {
	id, ok := utils.ParseObjectID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid property ID format"})
	}

	var property models.Property
	err := pc.collection.FindOne(context.Background(), bson.M{"_id": id}).Decode(&property)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Property not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch property"})
	}
	return c.JSON(http.StatusOK, property)
}

// ListProperties is the public browse endpoint. Results are cached in redis
// under a hash of the query parameters; writes rely on the short TTL for
// staleness rather than explicit invalidation.
func (pc *PropertyController) ListProperties(c echo.Context) error {
	query := bson.M{"status": models.PropertyActive, "visibility": models.VisibilityVisible}

	params := map[string]string{}
	if listingType := c.QueryParam("listing_type"); listingType != "" {
		query["listingType"] = listingType
		params["listing_type"] = listingType
	}
	if propertyType := c.QueryParam("property_type"); propertyType != "" {
		query["propertyType"] = propertyType
		params["property_type"] = propertyType
	}
	if city := c.QueryParam("city"); city != "" {
		query["location.city"] = city
		params["city"] = city
	}
	if title := c.QueryParam("title"); title != "" {
		query["title"] = bson.M{"$regex": title, "$options": "i"}
		params["title"] = title
	}
	if priceMin := c.QueryParam("price_min"); priceMin != "" {
		if min, err := strconv.ParseFloat(priceMin, 64); err == nil {
			query["price"] = bson.M{"$gte": min}
			params["price_min"] = priceMin
		}
	}
	if priceMax := c.QueryParam("price_max"); priceMax != "" {
		if max, err := strconv.ParseFloat(priceMax, 64); err == nil {
			if existing, ok := query["price"].(bson.M); ok {
				existing["$lte"] = max
			} else {
				query["price"] = bson.M{"$lte": max}
			}
			params["price_max"] = priceMax
		}
	}

	page := 1
	limit := 10
	if p := c.QueryParam("page"); p != "" {
		if num, err := strconv.Atoi(p); err == nil && num > 0 {
			page = num
		}
	}
	if l := c.QueryParam("limit"); l != "" {
		if num, err := strconv.Atoi(l); err == nil && num > 0 {
			limit = num
		}
	}
	params["page"] = strconv.Itoa(page)
	params["limit"] = strconv.Itoa(limit)

	ctx := context.Background()
	cacheKey := utils.QueryCacheKey("properties", params)
	var cached []models.Property
	if hit, err := utils.GetCached(ctx, cacheKey, &cached); err == nil && hit {
		return c.JSON(http.StatusOK, cached)
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})
	cursor, err := pc.collection.Find(ctx, query, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch properties"})
	}
	defer cursor.Close(ctx)

	properties := []models.Property{}
	for cursor.Next(ctx) {
		var property models.Property
		if err := cursor.Decode(&property); err != nil {
			continue
		}
		properties = append(properties, property)
	}

	_ = utils.SetCached(ctx, cacheKey, properties, listCacheTTL)
	return c.JSON(http.StatusOK, properties)
}

func (pc *PropertyController) MyProperties(c echo.Context) error {
	actor := actorFrom(c)

	cursor, err := pc.collection.Find(context.Background(),
		bson.M{"owner.email": actor.Email},
		options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch properties"})
	}
	defer cursor.Close(context.Background())

	properties := []models.Property{}
	for cursor.Next(context.Background()) {
		var property models.Property
		if err := cursor.Decode(&property); err != nil {
			continue
		}
		properties = append(properties, property)
	}
	return c.JSON(http.StatusOK, properties)
}

type updatePropertyRequest struct {
	Title     *string                 `json:"title"`
	Price     *float64                `json:"price"`
	AreaSqFt  *float64                `json:"areaSqFt"`
	Address   *string                 `json:"address"`
	Overview  *string                 `json:"overview"`
	Images    []string                `json:"images"`
	Amenities []string                `json:"amenities"`
	Location  *models.Location        `json:"location"`
	Flat      *models.FlatDetails     `json:"flat"`
	Building  *models.BuildingDetails `json:"building"`
}

// UpdateProperty edits listing fields. listingType and propertyType are
// immutable, and the detail variant cannot switch sides.
func (pc *PropertyController) UpdateProperty(c echo.Context) error {
	actor := actorFrom(c)
	id, ok := utils.ParseObjectID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid property ID format"})
	}

	property, err := pc.ownedProperty(c, id, actor)
	if property == nil {
		return err
	}

	var req updatePropertyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if req.Price != nil && *req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Price must be a positive number"})
	}
	if req.Flat != nil && property.PropertyType != models.PropertyFlat {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Flat details are only valid on flat listings"})
	}
	if req.Building != nil && property.PropertyType != models.PropertyBuilding {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Building details are only valid on building listings"})
	}

	update := bson.M{"updatedAt": time.Now()}
	if req.Title != nil {
		update["title"] = *req.Title
	}
	if req.Price != nil {
		update["price"] = *req.Price
	}
	if req.AreaSqFt != nil {
		update["areaSqFt"] = *req.AreaSqFt
	}
	if req.Address != nil {
		update["address"] = *req.Address
	}
	if req.Overview != nil {
		update["overview"] = *req.Overview
	}
	if req.Images != nil {
		update["images"] = req.Images
	}
	if req.Amenities != nil {
		update["amenities"] = req.Amenities
	}
	if req.Location != nil {
		update["location"] = *req.Location
	}
	if req.Flat != nil {
		update["flat"] = *req.Flat
	}
	if req.Building != nil {
		update["building"] = *req.Building
	}

	_, err = pc.collection.UpdateOne(context.Background(), bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to update property"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Property updated successfully",
	})
}

func (pc *PropertyController) DeleteProperty(c echo.Context) error {
	actor := actorFrom(c)
	id, ok := utils.ParseObjectID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid property ID format"})
	}

	var property models.Property
	err := pc.collection.FindOne(context.Background(), bson.M{"_id": id}).Decode(&property)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Property not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch property"})
	}

	if property.Owner.Email != actor.Email && actor.Role != "admin" {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "You are not authorized to delete this property"})
	}

	_, err = pc.collection.DeleteOne(context.Background(), bson.M{"_id": id})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to delete property"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Property deleted successfully",
	})
}

// ToggleVisibility flips an owner's listing between active and hidden.
func (pc *PropertyController) ToggleVisibility(c echo.Context) error {
	actor := actorFrom(c)
	id, ok := utils.ParseObjectID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid property ID format"})
	}

	property, err := pc.ownedProperty(c, id, actor)
	if property == nil {
		return err
	}

	next, terr := negotiation.ToggleVisibility(property)
	if terr != nil {
		return negotiationError(c, terr)
	}

	_, err = pc.collection.UpdateOne(context.Background(),
		bson.M{"_id": id, "status": property.Status},
		bson.M{"$set": bson.M{"status": next, "updatedAt": time.Now()}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to update property"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  next,
		"message": "Property visibility updated",
	})
}

type approvalRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// SetApproval is the admin moderation action on a listing.
func (pc *PropertyController) SetApproval(c echo.Context) error {
	id, ok := utils.ParseObjectID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid property ID format"})
	}

	var req approvalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := utils.Validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "decision must be 'approve' or 'reject'"})
	}

	var property models.Property
	err := pc.collection.FindOne(context.Background(), bson.M{"_id": id}).Decode(&property)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Property not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch property"})
	}

	var next string
	var terr error
	if req.Decision == "approve" {
		next, terr = negotiation.Approve(&property)
	} else {
		next, terr = negotiation.RejectListing(&property)
	}
	if terr != nil {
		return negotiationError(c, terr)
	}

	_, err = pc.collection.UpdateOne(context.Background(),
		bson.M{"_id": id, "status": property.Status},
		bson.M{"$set": bson.M{"status": next, "updatedAt": time.Now()}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to update property"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  next,
		"message": "Property " + next,
	})
}

// ownedProperty loads a property and enforces ownership. On failure it
// writes the response and returns a nil property.
func (pc *PropertyController) ownedProperty(c echo.Context, id primitive.ObjectID, actor negotiation.Actor) (*models.Property, error) {
	var property models.Property
	err := pc.collection.FindOne(context.Background(), bson.M{"_id": id}).Decode(&property)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, c.JSON(http.StatusNotFound, map[string]string{"message": "Property not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch property"})
	}
	if property.Owner.Email != actor.Email {
		return nil, c.JSON(http.StatusForbidden, map[string]string{"message": "Forbidden: You don't own this property"})
	}
	return &property, nil
}
