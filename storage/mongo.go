package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/negotiation"
)

// Mongo implements negotiation.Store on top of the properties, applications
// and users collections. Every method is a single Mongo call; conditional
// filters carry the transition guards so check-then-act races cannot
// double-assign a property's active proposal.
type Mongo struct {
	properties   *mongo.Collection
	applications *mongo.Collection
	users        *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		properties:   db.Collection(CollectionName("MONGODB_COLLECTION_PROPERTIES", "properties")),
		applications: db.Collection(CollectionName("MONGODB_COLLECTION_APPLICATIONS", "applications")),
		users:        db.Collection(CollectionName("MONGODB_COLLECTION_USER", "users")),
	}
}

func (m *Mongo) Property(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	var property models.Property
	err := m.properties.FindOne(ctx, bson.M{"_id": id}).Decode(&property)
	if err == mongo.ErrNoDocuments {
		return nil, negotiation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &property, nil
}

func (m *Mongo) Application(ctx context.Context, id primitive.ObjectID) (*models.Application, error) {
	var app models.Application
	err := m.applications.FindOne(ctx, bson.M{"_id": id}).Decode(&app)
	if err == mongo.ErrNoDocuments {
		return nil, negotiation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (m *Mongo) BlockingApplication(ctx context.Context, propertyID primitive.ObjectID, seekerEmail string) (*models.Application, error) {
	var app models.Application
	err := m.applications.FindOne(ctx, bson.M{
		"propertyId":   propertyID,
		"seeker.email": seekerEmail,
		"status":       bson.M{"$in": models.BlockingStatuses},
	}).Decode(&app)
	if err == mongo.ErrNoDocuments {
		return nil, negotiation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (m *Mongo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := m.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, negotiation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *Mongo) InsertApplication(ctx context.Context, app *models.Application) (primitive.ObjectID, error) {
	res, err := m.applications.InsertOne(ctx, app)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (m *Mongo) UpdateApplication(ctx context.Context, id primitive.ObjectID, upd negotiation.ApplicationUpdate) error {
	res, err := m.applications.UpdateOne(ctx, bson.M{"_id": id}, applicationUpdateDoc(upd))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return negotiation.ErrNotFound
	}
	return nil
}

func (m *Mongo) RejectOpenApplications(ctx context.Context, propertyID, except primitive.ObjectID, upd negotiation.ApplicationUpdate) (int64, error) {
	res, err := m.applications.UpdateMany(ctx, bson.M{
		"propertyId": propertyID,
		"_id":        bson.M{"$ne": except},
		"status":     bson.M{"$in": models.OpenStatuses},
	}, applicationUpdateDoc(upd))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (m *Mongo) ClaimProperty(ctx context.Context, propertyID, proposalID primitive.ObjectID, previousStatus string) error {
	res, err := m.properties.UpdateOne(ctx, bson.M{
		"_id":                propertyID,
		"active_proposal_id": nil,
		"status":             bson.M{"$in": []string{models.PropertyActive, models.PropertyPending}},
	}, bson.M{"$set": bson.M{
		"status":             models.PropertyDealInProgress,
		"active_proposal_id": proposalID,
		"previousStatus":     previousStatus,
		"updatedAt":          time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return negotiation.ErrProposalConflict
	}
	return nil
}

func (m *Mongo) ReassignProposal(ctx context.Context, propertyID, from, to primitive.ObjectID) error {
	res, err := m.properties.UpdateOne(ctx, bson.M{
		"_id":                propertyID,
		"active_proposal_id": from,
		"status":             models.PropertyDealInProgress,
	}, bson.M{"$set": bson.M{
		"active_proposal_id": to,
		"updatedAt":          time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return negotiation.ErrProposalConflict
	}
	return nil
}

func (m *Mongo) FinalizeProperty(ctx context.Context, propertyID primitive.ObjectID, finalStatus string) error {
	res, err := m.properties.UpdateOne(ctx, bson.M{
		"_id":    propertyID,
		"status": models.PropertyDealInProgress,
	}, bson.M{"$set": bson.M{
		"status":             finalStatus,
		"visibility":         models.VisibilityHidden,
		"active_proposal_id": nil,
		"previousStatus":     nil,
		"updatedAt":          time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return negotiation.ErrProposalConflict
	}
	return nil
}

func (m *Mongo) RestoreProperty(ctx context.Context, propertyID primitive.ObjectID, restoredStatus string) error {
	res, err := m.properties.UpdateOne(ctx, bson.M{
		"_id":    propertyID,
		"status": models.PropertyDealInProgress,
	}, bson.M{"$set": bson.M{
		"status":             restoredStatus,
		"active_proposal_id": nil,
		"previousStatus":     nil,
		"updatedAt":          time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return negotiation.ErrProposalConflict
	}
	return nil
}

// applicationUpdateDoc translates an ApplicationUpdate into one $set/$push
// document so the status change, history appends and lastAction refresh land
// in a single atomic write.
func applicationUpdateDoc(upd negotiation.ApplicationUpdate) bson.M {
	set := bson.M{
		"status":            upd.Status,
		"updatedAt":         upd.ActionAt,
		"lastActionAt":      upd.ActionAt,
		"lastActionBy":      upd.ActionBy,
		"lastActionByEmail": upd.ActionByEmail,
	}
	if upd.ProposedPrice != nil {
		set["proposedPrice"] = *upd.ProposedPrice
	}
	if upd.FinalPrice != nil {
		set["finalPrice"] = *upd.FinalPrice
	}
	if upd.Message != nil {
		set["message"] = *upd.Message
	}

	push := bson.M{}
	if upd.Negotiation != nil {
		push["negotiationHistory"] = *upd.Negotiation
	}
	if upd.StatusEvent != nil {
		push["statusHistory"] = *upd.StatusEvent
	}
	if upd.PriceEvent != nil {
		push["priceHistory"] = *upd.PriceEvent
	}

	doc := bson.M{"$set": set}
	if len(push) > 0 {
		doc["$push"] = push
	}
	return doc
}
