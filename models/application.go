package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Application statuses.
const (
	AppPending        = "pending"
	AppCounter        = "counter"
	AppDealInProgress = "deal-in-progress"
	AppRejected       = "rejected"
	AppWithdrawn      = "withdrawn"
	AppCancelled      = "cancelled"
	AppCompleted      = "completed"
)

// Actors recorded in history entries.
const (
	ActorSeeker = "seeker"
	ActorOwner  = "owner"
	ActorAdmin  = "admin"
	ActorSystem = "system"
)

// BlockingStatuses are the application statuses that prevent a seeker from
// submitting another application on the same property. Rejected, withdrawn
// and cancelled applications allow reapplying.
var BlockingStatuses = []string{AppPending, AppCounter, AppDealInProgress, AppCompleted}

// OpenStatuses are the statuses auto-rejected when a deal on the same
// property is finalized.
var OpenStatuses = []string{AppPending, AppCounter, AppDealInProgress}

// PartyProfile embeds a full identity snapshot of one side of a negotiation,
// enriched from the users collection at submission time.
type PartyProfile struct {
	UID         string     `bson:"uid" json:"uid"`
	Name        string     `bson:"name" json:"name"`
	Email       string     `bson:"email" json:"email"`
	PhotoURL    string     `bson:"photoURL" json:"photoURL"`
	Phone       string     `bson:"phone" json:"phone"`
	Role        string     `bson:"role" json:"role"`
	NidVerified bool       `bson:"nidVerified" json:"nidVerified"`
	Rating      Rating     `bson:"rating" json:"rating"`
	CreatedAt   *time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// PropertySnapshot freezes the property as it looked when the application
// was submitted.
type PropertySnapshot struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
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
	Status       string             `bson:"status" json:"status"`
	Flat         *FlatDetails       `bson:"flat,omitempty" json:"flat,omitempty"`
	Building     *BuildingDetails   `bson:"building,omitempty" json:"building,omitempty"`
}

// NegotiationEvent is one entry of the negotiation audit trail.
type NegotiationEvent struct {
	Action        string    `bson:"action" json:"action"`
	Actor         string    `bson:"actor" json:"actor"`
	ActorEmail    string    `bson:"actorEmail" json:"actorEmail"`
	ProposedPrice *float64  `bson:"proposedPrice,omitempty" json:"proposedPrice,omitempty"`
	Status        string    `bson:"status" json:"status"`
	Message       string    `bson:"message,omitempty" json:"message,omitempty"`
	Note          string    `bson:"note,omitempty" json:"note,omitempty"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
}

type PriceEvent struct {
	Price      float64   `bson:"price" json:"price"`
	SetBy      string    `bson:"setBy" json:"setBy"`
	SetByEmail string    `bson:"setByEmail" json:"setByEmail"`
	Note       string    `bson:"note,omitempty" json:"note,omitempty"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

type StatusEvent struct {
	Status         string    `bson:"status" json:"status"`
	ChangedBy      string    `bson:"changedBy" json:"changedBy"`
	ChangedByEmail string    `bson:"changedByEmail" json:"changedByEmail"`
	Note           string    `bson:"note,omitempty" json:"note,omitempty"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
}

// Application is one negotiation thread between a seeker and the owner of a
// property. It is never deleted; terminal statuses are kept as history.
type Application struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PropertyID       primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	PropertySnapshot PropertySnapshot   `bson:"propertySnapshot" json:"propertySnapshot"`

	Owner  PartyProfile `bson:"owner" json:"owner"`
	Seeker PartyProfile `bson:"seeker" json:"seeker"`

	Status               string   `bson:"status" json:"status"`
	OriginalListingPrice float64  `bson:"originalListingPrice" json:"originalListingPrice"`
	ProposedPrice        float64  `bson:"proposedPrice" json:"proposedPrice"`
	FinalPrice           *float64 `bson:"finalPrice,omitempty" json:"finalPrice,omitempty"`
	Message              string   `bson:"message" json:"message"`

	// Append-only audit trails, ordered by operation wall-clock time.
	NegotiationHistory []NegotiationEvent `bson:"negotiationHistory" json:"negotiationHistory"`
	PriceHistory       []PriceEvent       `bson:"priceHistory" json:"priceHistory"`
	StatusHistory      []StatusEvent      `bson:"statusHistory" json:"statusHistory"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Denormalized cache of the most recent history entry.
	LastActionAt      time.Time `bson:"lastActionAt" json:"lastActionAt"`
	LastActionBy      string    `bson:"lastActionBy" json:"lastActionBy"`
	LastActionByEmail string    `bson:"lastActionByEmail" json:"lastActionByEmail"`
}
