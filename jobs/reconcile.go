// Package jobs hosts scheduled maintenance tasks. The negotiation engine
// orders its writes but runs no multi-document transaction, so a crash
// between two writes can leave a property and its active application
// disagreeing. The reconciler sweeps those pairs back into agreement.
package jobs

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/negotiation"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/storage"
)

type Reconciler struct {
	properties   *mongo.Collection
	applications *mongo.Collection
}

func NewReconciler(db *mongo.Database) *Reconciler {
	return &Reconciler{
		properties:   db.Collection(storage.CollectionName("MONGODB_COLLECTION_PROPERTIES", "properties")),
		applications: db.Collection(storage.CollectionName("MONGODB_COLLECTION_APPLICATIONS", "applications")),
	}
}

// Start schedules the reconciliation pass. The schedule is configurable via
// RECONCILE_CRON and defaults to every ten minutes.
func (r *Reconciler) Start() *cron.Cron {
	schedule := os.Getenv("RECONCILE_CRON")
	if schedule == "" {
		schedule = "@every 10m"
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := r.Run(ctx); err != nil {
			log.Printf("reconcile: %v", err)
		}
	}); err != nil {
		log.Printf("reconcile: bad schedule %q: %v", schedule, err)
		return c
	}
	c.Start()
	log.Printf("reconcile: scheduled (%s)", schedule)
	return c
}

// Run scans properties that claim an active proposal and restores any whose
// referenced application is no longer deal-in-progress, then cancels
// applications stuck in deal-in-progress whose property does not point back
// at them.
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.sweepProperties(ctx); err != nil {
		return err
	}
	return r.sweepApplications(ctx)
}

func (r *Reconciler) sweepProperties(ctx context.Context) error {
	cursor, err := r.properties.Find(ctx, bson.M{"active_proposal_id": bson.M{"$ne": nil}})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	repaired := 0
	for cursor.Next(ctx) {
		var property models.Property
		if err := cursor.Decode(&property); err != nil {
			continue
		}
		if property.ActiveProposalID == nil {
			continue
		}

		var app models.Application
		err := r.applications.FindOne(ctx, bson.M{"_id": *property.ActiveProposalID}).Decode(&app)
		stale := err == mongo.ErrNoDocuments || (err == nil && app.Status != models.AppDealInProgress)
		if err != nil && err != mongo.ErrNoDocuments {
			return err
		}
		if !stale && property.Status == models.PropertyDealInProgress {
			continue
		}

		restored := models.PropertyActive
		if property.PreviousStatus != nil && *property.PreviousStatus != "" {
			restored = *property.PreviousStatus
		}
		// Terminal properties keep their status, only the pointer is dropped.
		set := bson.M{"active_proposal_id": nil, "previousStatus": nil, "updatedAt": time.Now()}
		if property.Status == models.PropertyDealInProgress {
			set["status"] = restored
		}
		if _, err := r.properties.UpdateOne(ctx, bson.M{"_id": property.ID}, bson.M{"$set": set}); err != nil {
			return err
		}
		repaired++
		log.Printf("reconcile: cleared stale proposal on property %s", property.ID.Hex())
	}
	if repaired > 0 {
		log.Printf("reconcile: repaired %d properties", repaired)
	}
	return cursor.Err()
}

// sweepApplications catches the other direction of divergence: an
// application promoted to deal-in-progress whose property never ended up (or
// no longer is) pointing at it. Left alone it would block the seeker from
// reapplying forever; the sweep cancels it with a system history entry.
func (r *Reconciler) sweepApplications(ctx context.Context) error {
	cursor, err := r.applications.Find(ctx, bson.M{"status": models.AppDealInProgress})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	cancelled := 0
	for cursor.Next(ctx) {
		var app models.Application
		if err := cursor.Decode(&app); err != nil {
			continue
		}

		var property models.Property
		err := r.properties.FindOne(ctx, bson.M{"_id": app.PropertyID}).Decode(&property)
		if err != nil && err != mongo.ErrNoDocuments {
			return err
		}
		orphaned := err == mongo.ErrNoDocuments ||
			property.Status != models.PropertyDealInProgress ||
			property.ActiveProposalID == nil ||
			*property.ActiveProposalID != app.ID

		if !orphaned {
			continue
		}

		now := time.Now()
		note := "Deal cancelled automatically: property no longer holds this proposal"
		update := bson.M{
			"$set": bson.M{
				"status":            models.AppCancelled,
				"updatedAt":         now,
				"lastActionAt":      now,
				"lastActionBy":      models.ActorSystem,
				"lastActionByEmail": negotiation.SystemEmail,
			},
			"$push": bson.M{
				"negotiationHistory": models.NegotiationEvent{
					Action:     "deal_cancelled",
					Actor:      models.ActorSystem,
					ActorEmail: negotiation.SystemEmail,
					Status:     models.AppCancelled,
					Note:       note,
					Timestamp:  now,
				},
				"statusHistory": models.StatusEvent{
					Status:         models.AppCancelled,
					ChangedBy:      models.ActorSystem,
					ChangedByEmail: negotiation.SystemEmail,
					Note:           note,
					Timestamp:      now,
				},
			},
		}
		// Status-pinned so a deal racing to completion is not clobbered.
		res, err := r.applications.UpdateOne(ctx,
			bson.M{"_id": app.ID, "status": models.AppDealInProgress}, update)
		if err != nil {
			return err
		}
		if res.ModifiedCount > 0 {
			cancelled++
			log.Printf("reconcile: cancelled orphaned application %s", app.ID.Hex())
		}
	}
	if cancelled > 0 {
		log.Printf("reconcile: cancelled %d orphaned applications", cancelled)
	}
	return cursor.Err()
}
