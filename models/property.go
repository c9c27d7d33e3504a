package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Listing types. Immutable after creation.
const (
	ListingRent = "rent"
	ListingSale = "sale"
)

// Property types. Determines which detail variant is present.
const (
	PropertyFlat     = "flat"
	PropertyBuilding = "building"
)

// Property statuses.
const (
	PropertyPending        = "pending"
	PropertyActive         = "active"
	PropertyHidden         = "hidden"
	PropertyDealInProgress = "deal-in-progress"
	PropertyRejected       = "rejected"
	PropertyRented         = "rented"
	PropertySold           = "sold"
	PropertyRemoved        = "removed"
)

// Visibility is set to hidden when a deal completes, independent of status.
const (
	VisibilityVisible = "visible"
	VisibilityHidden  = "hidden"
)

type Location struct {
	City string  `bson:"city" json:"city"`
	Area string  `bson:"area" json:"area"`
	Lat  float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng  float64 `bson:"lng,omitempty" json:"lng,omitempty"`
}

// PartySnapshot is the owner identity embedded on a property. The email is
// the authorization key for every owner-only operation.
type PartySnapshot struct {
	UID      string `bson:"uid" json:"uid"`
	Name     string `bson:"name" json:"name"`
	Email    string `bson:"email" json:"email"`
	PhotoURL string `bson:"photoURL" json:"photoURL"`
}

// FlatDetails is present iff PropertyType == "flat".
type FlatDetails struct {
	RoomCount int `bson:"roomCount" json:"roomCount" validate:"required,min=1"`
	Bathrooms int `bson:"bathrooms" json:"bathrooms" validate:"required,min=1"`
}

// BuildingDetails is present iff PropertyType == "building".
type BuildingDetails struct {
	FloorCount int `bson:"floorCount" json:"floorCount" validate:"required,min=1"`
	TotalUnits int `bson:"totalUnits" json:"totalUnits" validate:"required,min=1"`
}

type Property struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string             `bson:"title" json:"title"`
	ListingType  string             `bson:"listingType" json:"listingType"`
	PropertyType string             `bson:"propertyType" json:"propertyType"`
	Price        float64            `bson:"price" json:"price"`
	AreaSqFt     float64            `bson:"areaSqFt" json:"areaSqFt"`
	Address      string             `bson:"address" json:"address"`
	Overview     string             `bson:"overview" json:"overview"`
	Images       []string           `bson:"images" json:"images"`
	Amenities    []string           `bson:"amenities" json:"amenities"`
	Location     Location           `bson:"location" json:"location"`

	Status         string  `bson:"status" json:"status"`
	PreviousStatus *string `bson:"previousStatus,omitempty" json:"previousStatus,omitempty"`

	// ActiveProposalID is non-nil iff exactly one application on this
	// property is deal-in-progress.
	ActiveProposalID *primitive.ObjectID `bson:"active_proposal_id,omitempty" json:"activeProposalId,omitempty"`

	Visibility string        `bson:"visibility" json:"visibility"`
	Owner      PartySnapshot `bson:"owner" json:"owner"`

	// Exactly one of these is set, keyed by PropertyType.
	Flat     *FlatDetails     `bson:"flat,omitempty" json:"flat,omitempty"`
	Building *BuildingDetails `bson:"building,omitempty" json:"building,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
