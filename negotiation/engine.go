// Package negotiation implements the deal lifecycle shared by a property
// and its applications: offer submission, counter offers, acceptance, and
// deal completion or cancellation. All mutations flow through a Store port
// so the two entities stay consistent under the ordering rules documented
// on each operation.
package negotiation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
)

// SystemEmail stamps history entries produced by automatic transitions.
const SystemEmail = "system@ghorbari.com"

// Actor is the authenticated caller of an engine operation. Email is the
// authorization key for owner and seeker checks.
type Actor struct {
	UID      string
	Name     string
	Email    string
	PhotoURL string
	Role     string
	Verified bool
}

func (a Actor) isAdmin() bool { return a.Role == models.ActorAdmin }

// Engine coordinates the application and property lifecycles.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Submit creates a pending application by the seeker against an active
// property. The property itself is unaffected.
func (e *Engine) Submit(ctx context.Context, actor Actor, propertyID primitive.ObjectID, proposedPrice float64, message string) (*models.Application, error) {
	property, err := e.store.Property(ctx, propertyID)
	if err == ErrNotFound {
		return nil, notFound("Property")
	}
	if err != nil {
		return nil, unexpected(err)
	}

	if property.Status != models.PropertyActive {
		return nil, validationf("Property is not available for applications. Only active properties can receive applications.")
	}

	if property.Owner.Email == actor.Email {
		return nil, validationf("You cannot apply to your own property")
	}

	_, err = e.store.BlockingApplication(ctx, propertyID, actor.Email)
	if err == nil {
		return nil, validationf("You already have an active application for this property")
	}
	if err != ErrNotFound {
		return nil, unexpected(err)
	}

	if proposedPrice <= 0 {
		return nil, validationf("Valid proposed price is required")
	}

	now := e.now()
	app := &models.Application{
		PropertyID:       propertyID,
		PropertySnapshot: snapshotProperty(property),
		Owner:            e.partyProfile(ctx, property.Owner.UID, property.Owner.Name, property.Owner.Email, property.Owner.PhotoURL),
		Seeker:           e.partyProfile(ctx, actor.UID, actor.Name, actor.Email, actor.PhotoURL),

		Status:               models.AppPending,
		OriginalListingPrice: property.Price,
		ProposedPrice:        proposedPrice,
		Message:              message,

		NegotiationHistory: []models.NegotiationEvent{{
			Action:        "application_submitted",
			Actor:         models.ActorSeeker,
			ActorEmail:    actor.Email,
			ProposedPrice: &proposedPrice,
			Status:        models.AppPending,
			Message:       message,
			Timestamp:     now,
		}},
		PriceHistory: []models.PriceEvent{{
			Price:      proposedPrice,
			SetBy:      models.ActorSeeker,
			SetByEmail: actor.Email,
			Note:       "Initial offer",
			Timestamp:  now,
		}},
		StatusHistory: []models.StatusEvent{{
			Status:         models.AppPending,
			ChangedBy:      models.ActorSeeker,
			ChangedByEmail: actor.Email,
			Note:           "Application submitted",
			Timestamp:      now,
		}},

		CreatedAt:         now,
		UpdatedAt:         now,
		LastActionAt:      now,
		LastActionBy:      models.ActorSeeker,
		LastActionByEmail: actor.Email,
	}

	id, err := e.store.InsertApplication(ctx, app)
	if err != nil {
		return nil, unexpected(err)
	}
	app.ID = id
	return app, nil
}

// Counter is the owner replying to a pending offer with a new price.
func (e *Engine) Counter(ctx context.Context, actor Actor, applicationID primitive.ObjectID, proposedPrice float64) error {
	if proposedPrice <= 0 {
		return validationf("Valid proposed price is required for counter offers")
	}

	app, _, err := e.ownerApplication(ctx, actor, applicationID)
	if err != nil {
		return err
	}
	if app.Status != models.AppPending {
		return invalidTransitionf(
			"Cannot counter an application with status %q. Only pending applications can be countered.", app.Status)
	}

	now := e.now()
	upd := ApplicationUpdate{
		Status:        models.AppCounter,
		ProposedPrice: &proposedPrice,
		Negotiation: &models.NegotiationEvent{
			Action:        "counter_offer",
			Actor:         models.ActorOwner,
			ActorEmail:    actor.Email,
			ProposedPrice: &proposedPrice,
			Status:        models.AppCounter,
			Timestamp:     now,
		},
		PriceEvent: &models.PriceEvent{
			Price:      proposedPrice,
			SetBy:      models.ActorOwner,
			SetByEmail: actor.Email,
			Note:       "Owner counter offer",
			Timestamp:  now,
		},
		StatusEvent: &models.StatusEvent{
			Status:         models.AppCounter,
			ChangedBy:      models.ActorOwner,
			ChangedByEmail: actor.Email,
			Note:           "Owner sent counter offer",
			Timestamp:      now,
		},
		ActionAt:      now,
		ActionBy:      models.ActorOwner,
		ActionByEmail: actor.Email,
	}
	return e.applyApplicationUpdate(ctx, applicationID, upd)
}

// Accept is the owner accepting the seeker's pending offer. The property is
// claimed first: the conditional write acts as the lock that guarantees at
// most one active proposal, then the application is promoted.
func (e *Engine) Accept(ctx context.Context, actor Actor, applicationID primitive.ObjectID) error {
	app, property, err := e.ownerApplication(ctx, actor, applicationID)
	if err != nil {
		return err
	}

	if app.Status == models.AppCounter {
		return invalidTransitionf("You cannot accept your own counter offer. Wait for the seeker to respond.")
	}
	if app.Status != models.AppPending {
		return invalidTransitionf(
			"Cannot accept application with status %q. Only pending applications can be accepted.", app.Status)
	}
	if err := canEnterDeal(property); err != nil {
		return err
	}

	if err := e.store.ClaimProperty(ctx, property.ID, applicationID, property.Status); err != nil {
		if err == ErrProposalConflict {
			return invalidTransitionf("Property already has an accepted proposal")
		}
		return unexpected(err)
	}

	now := e.now()
	finalPrice := app.ProposedPrice
	upd := ApplicationUpdate{
		Status:     models.AppDealInProgress,
		FinalPrice: &finalPrice,
		Negotiation: &models.NegotiationEvent{
			Action:     "application_accepted",
			Actor:      models.ActorOwner,
			ActorEmail: actor.Email,
			Status:     models.AppDealInProgress,
			Timestamp:  now,
		},
		StatusEvent: &models.StatusEvent{
			Status:         models.AppDealInProgress,
			ChangedBy:      models.ActorOwner,
			ChangedByEmail: actor.Email,
			Note:           "Owner accepted application - Deal in progress",
			Timestamp:      now,
		},
		ActionAt:      now,
		ActionBy:      models.ActorOwner,
		ActionByEmail: actor.Email,
	}
	return e.applyApplicationUpdate(ctx, applicationID, upd)
}

// Reject is the owner declining a pending offer. Other applications on the
// property are unaffected.
func (e *Engine) Reject(ctx context.Context, actor Actor, applicationID primitive.ObjectID) error {
	app, _, err := e.ownerApplication(ctx, actor, applicationID)
	if err != nil {
		return err
	}
	if app.Status != models.AppPending {
		return invalidTransitionf(
			"Cannot reject an application with status %q. Only pending applications can be rejected.", app.Status)
	}

	now := e.now()
	upd := ApplicationUpdate{
		Status: models.AppRejected,
		Negotiation: &models.NegotiationEvent{
			Action:     "application_rejected",
			Actor:      models.ActorOwner,
			ActorEmail: actor.Email,
			Status:     models.AppRejected,
			Timestamp:  now,
		},
		StatusEvent: &models.StatusEvent{
			Status:         models.AppRejected,
			ChangedBy:      models.ActorOwner,
			ChangedByEmail: actor.Email,
			Note:           "Owner rejected application",
			Timestamp:      now,
		},
		ActionAt:      now,
		ActionBy:      models.ActorOwner,
		ActionByEmail: actor.Email,
	}
	return e.applyApplicationUpdate(ctx, applicationID, upd)
}

// Withdraw is the seeker pulling back an offer that has not yet reached a
// deal. Allowed from pending and counter only.
func (e *Engine) Withdraw(ctx context.Context, actor Actor, applicationID primitive.ObjectID) error {
	app, err := e.seekerApplication(ctx, actor, applicationID, "withdraw")
	if err != nil {
		return err
	}
	if app.Status != models.AppPending && app.Status != models.AppCounter {
		return invalidTransitionf("Can only withdraw pending or counter applications")
	}

	now := e.now()
	upd := ApplicationUpdate{
		Status: models.AppWithdrawn,
		Negotiation: &models.NegotiationEvent{
			Action:     "application_withdrawn",
			Actor:      models.ActorSeeker,
			ActorEmail: actor.Email,
			Status:     models.AppWithdrawn,
			Timestamp:  now,
		},
		StatusEvent: &models.StatusEvent{
			Status:         models.AppWithdrawn,
			ChangedBy:      models.ActorSeeker,
			ChangedByEmail: actor.Email,
			Note:           "Seeker withdrew application",
			Timestamp:      now,
		},
		ActionAt:      now,
		ActionBy:      models.ActorSeeker,
		ActionByEmail: actor.Email,
	}
	return e.applyApplicationUpdate(ctx, applicationID, upd)
}

// Revise is the seeker answering the owner's counter with a new price,
// putting the ball back in the owner's court. A still-pending offer cannot
// be revised.
func (e *Engine) Revise(ctx context.Context, actor Actor, applicationID primitive.ObjectID, proposedPrice float64, message *string) error {
	if proposedPrice <= 0 {
		return validationf("Valid proposed price is required")
	}

	app, err := e.seekerApplication(ctx, actor, applicationID, "revise")
	if err != nil {
		return err
	}
	if app.Status != models.AppCounter {
		return invalidTransitionf("Can only revise applications that have received a counter offer")
	}

	now := e.now()
	msg := ""
	if message != nil {
		msg = *message
	}
	upd := ApplicationUpdate{
		Status:        models.AppPending,
		ProposedPrice: &proposedPrice,
		Message:       message,
		Negotiation: &models.NegotiationEvent{
			Action:        "offer_revised",
			Actor:         models.ActorSeeker,
			ActorEmail:    actor.Email,
			ProposedPrice: &proposedPrice,
			Status:        models.AppPending,
			Message:       msg,
			Timestamp:     now,
		},
		PriceEvent: &models.PriceEvent{
			Price:      proposedPrice,
			SetBy:      models.ActorSeeker,
			SetByEmail: actor.Email,
			Note:       "Seeker revised offer",
			Timestamp:  now,
		},
		StatusEvent: &models.StatusEvent{
			Status:         models.AppPending,
			ChangedBy:      models.ActorSeeker,
			ChangedByEmail: actor.Email,
			Note:           "Seeker revised offer - waiting for owner response",
			Timestamp:      now,
		},
		ActionAt:      now,
		ActionBy:      models.ActorSeeker,
		ActionByEmail: actor.Email,
	}
	return e.applyApplicationUpdate(ctx, applicationID, upd)
}

// AcceptCounter is the seeker accepting the owner's counter offer. If a
// different application already holds the property's active proposal it is
// cancelled first, then this application is promoted, then the property is
// updated, so no window exists with two active applications.
func (e *Engine) AcceptCounter(ctx context.Context, actor Actor, applicationID primitive.ObjectID) error {
	app, err := e.seekerApplication(ctx, actor, applicationID, "accept this counter offer for")
	if err != nil {
		return err
	}
	if app.Status != models.AppCounter {
		return invalidTransitionf("Can only accept counter offers. Current status: %s", app.Status)
	}

	property, err := e.store.Property(ctx, app.PropertyID)
	if err == ErrNotFound {
		return notFound("Property")
	}
	if err != nil {
		return unexpected(err)
	}

	// All guards run before the first write: a promoted application with no
	// claimable property would be stranded in deal-in-progress.
	superseded := property.ActiveProposalID != nil && *property.ActiveProposalID != applicationID
	if !superseded {
		if err := canEnterDeal(property); err != nil {
			return err
		}
	}

	now := e.now()
	if superseded {
		cancelNote := "Deal cancelled automatically: Another application was accepted"
		cancel := ApplicationUpdate{
			Status: models.AppCancelled,
			Negotiation: &models.NegotiationEvent{
				Action:     "deal_cancelled",
				Actor:      models.ActorSystem,
				ActorEmail: SystemEmail,
				Status:     models.AppCancelled,
				Note:       cancelNote,
				Timestamp:  now,
			},
			StatusEvent: &models.StatusEvent{
				Status:         models.AppCancelled,
				ChangedBy:      models.ActorSystem,
				ChangedByEmail: SystemEmail,
				Note:           cancelNote,
				Timestamp:      now,
			},
			ActionAt:      now,
			ActionBy:      models.ActorSystem,
			ActionByEmail: SystemEmail,
		}
		if err := e.applyApplicationUpdate(ctx, *property.ActiveProposalID, cancel); err != nil {
			return err
		}
	}

	finalPrice := app.ProposedPrice
	acceptNote := "Seeker accepted owner's counter offer - Deal in progress"
	upd := ApplicationUpdate{
		Status:     models.AppDealInProgress,
		FinalPrice: &finalPrice,
		Negotiation: &models.NegotiationEvent{
			Action:        "counter_offer_accepted",
			Actor:         models.ActorSeeker,
			ActorEmail:    actor.Email,
			ProposedPrice: &finalPrice,
			Status:        models.AppDealInProgress,
			Note:          acceptNote,
			Timestamp:     now,
		},
		StatusEvent: &models.StatusEvent{
			Status:         models.AppDealInProgress,
			ChangedBy:      models.ActorSeeker,
			ChangedByEmail: actor.Email,
			Note:           acceptNote,
			Timestamp:      now,
		},
		ActionAt:      now,
		ActionBy:      models.ActorSeeker,
		ActionByEmail: actor.Email,
	}
	if err := e.applyApplicationUpdate(ctx, applicationID, upd); err != nil {
		return err
	}

	if superseded {
		err = e.store.ReassignProposal(ctx, property.ID, *property.ActiveProposalID, applicationID)
	} else {
		err = e.store.ClaimProperty(ctx, property.ID, applicationID, property.Status)
	}
	if err == ErrProposalConflict {
		return invalidTransitionf("Property already has an accepted proposal")
	}
	if err != nil {
		return unexpected(err)
	}
	return nil
}

// CompleteDeal finalizes a deal-in-progress: the active application becomes
// completed, every other open application on the property is auto-rejected,
// and the property is marked sold or rented and hidden.
func (e *Engine) CompleteDeal(ctx context.Context, actor Actor, propertyID primitive.ObjectID) error {
	property, app, actorType, err := e.activeDeal(ctx, actor, propertyID)
	if err != nil {
		return err
	}
	if app.Status != models.AppDealInProgress {
		return invalidTransitionf("Application must be in deal-in-progress status to be marked as completed")
	}

	now := e.now()
	final := finalStatus(property)
	completeNote := "Deal completed - Property marked as " + final
	complete := ApplicationUpdate{
		Status: models.AppCompleted,
		Negotiation: &models.NegotiationEvent{
			Action:     "deal_completed",
			Actor:      actorType,
			ActorEmail: actor.Email,
			Status:     models.AppCompleted,
			Note:       completeNote,
			Timestamp:  now,
		},
		StatusEvent: &models.StatusEvent{
			Status:         models.AppCompleted,
			ChangedBy:      actorType,
			ChangedByEmail: actor.Email,
			Note:           completeNote,
			Timestamp:      now,
		},
		ActionAt:      now,
		ActionBy:      actorType,
		ActionByEmail: actor.Email,
	}
	if err := e.applyApplicationUpdate(ctx, app.ID, complete); err != nil {
		return err
	}

	autoReject := ApplicationUpdate{
		Status: models.AppRejected,
		Negotiation: &models.NegotiationEvent{
			Action:     "application_auto_rejected",
			Actor:      models.ActorSystem,
			ActorEmail: actor.Email,
			Status:     models.AppRejected,
			Note:       "Auto-rejected because property deal has been finalized (sold/rented)",
			Timestamp:  now,
		},
		StatusEvent: &models.StatusEvent{
			Status:         models.AppRejected,
			ChangedBy:      models.ActorSystem,
			ChangedByEmail: actor.Email,
			Note:           "Auto-rejected: Property deal has been finalized (sold/rented)",
			Timestamp:      now,
		},
		ActionAt:      now,
		ActionBy:      models.ActorSystem,
		ActionByEmail: actor.Email,
	}
	if _, err := e.store.RejectOpenApplications(ctx, property.ID, app.ID, autoReject); err != nil {
		return unexpected(err)
	}

	if err := e.store.FinalizeProperty(ctx, property.ID, final); err != nil {
		if err == ErrProposalConflict {
			return invalidTransitionf("Property is not in deal-in-progress with an active proposal")
		}
		return unexpected(err)
	}
	return nil
}

// CancelDeal abandons a deal-in-progress: the active application becomes
// cancelled and the property is restored to its pre-deal status.
func (e *Engine) CancelDeal(ctx context.Context, actor Actor, propertyID primitive.ObjectID) error {
	property, app, actorType, err := e.activeDeal(ctx, actor, propertyID)
	if err != nil {
		return err
	}
	if app.Status != models.AppDealInProgress {
		return invalidTransitionf("Application must be in deal-in-progress status to be cancelled")
	}

	now := e.now()
	cancel := ApplicationUpdate{
		Status: models.AppCancelled,
		Negotiation: &models.NegotiationEvent{
			Action:     "deal_cancelled",
			Actor:      actorType,
			ActorEmail: actor.Email,
			Status:     models.AppCancelled,
			Note:       "Deal cancelled",
			Timestamp:  now,
		},
		StatusEvent: &models.StatusEvent{
			Status:         models.AppCancelled,
			ChangedBy:      actorType,
			ChangedByEmail: actor.Email,
			Note:           "Deal cancelled",
			Timestamp:      now,
		},
		ActionAt:      now,
		ActionBy:      actorType,
		ActionByEmail: actor.Email,
	}
	if err := e.applyApplicationUpdate(ctx, app.ID, cancel); err != nil {
		return err
	}

	if err := e.store.RestoreProperty(ctx, property.ID, restoredStatus(property)); err != nil {
		if err == ErrProposalConflict {
			return invalidTransitionf("Property is not in deal-in-progress with an active proposal")
		}
		return unexpected(err)
	}
	return nil
}

// ownerApplication loads an application and its property and checks the
// caller is the property owner.
func (e *Engine) ownerApplication(ctx context.Context, actor Actor, applicationID primitive.ObjectID) (*models.Application, *models.Property, error) {
	app, err := e.store.Application(ctx, applicationID)
	if err == ErrNotFound {
		return nil, nil, notFound("Application")
	}
	if err != nil {
		return nil, nil, unexpected(err)
	}

	property, err := e.store.Property(ctx, app.PropertyID)
	if err == ErrNotFound {
		return nil, nil, notFound("Property")
	}
	if err != nil {
		return nil, nil, unexpected(err)
	}

	if property.Owner.Email != actor.Email {
		return nil, nil, forbidden("You don't have permission to update this application")
	}
	return app, property, nil
}

// seekerApplication loads an application and checks the caller is its seeker.
func (e *Engine) seekerApplication(ctx context.Context, actor Actor, applicationID primitive.ObjectID, verb string) (*models.Application, error) {
	app, err := e.store.Application(ctx, applicationID)
	if err == ErrNotFound {
		return nil, notFound("Application")
	}
	if err != nil {
		return nil, unexpected(err)
	}
	if app.Seeker.Email != actor.Email {
		return nil, forbidden("You don't have permission to " + verb + " this application")
	}
	return app, nil
}

// activeDeal loads a property in deal-in-progress together with its active
// application and authorizes the caller as owner, seeker, or admin.
func (e *Engine) activeDeal(ctx context.Context, actor Actor, propertyID primitive.ObjectID) (*models.Property, *models.Application, string, error) {
	property, err := e.store.Property(ctx, propertyID)
	if err == ErrNotFound {
		return nil, nil, "", notFound("Property")
	}
	if err != nil {
		return nil, nil, "", unexpected(err)
	}

	if property.Status != models.PropertyDealInProgress || property.ActiveProposalID == nil {
		return nil, nil, "", invalidTransitionf("Property is not in deal-in-progress with an active proposal")
	}

	app, err := e.store.Application(ctx, *property.ActiveProposalID)
	if err == ErrNotFound {
		return nil, nil, "", notFound("Application")
	}
	if err != nil {
		return nil, nil, "", unexpected(err)
	}

	isOwner := property.Owner.Email == actor.Email
	isSeeker := app.Seeker.Email == actor.Email
	if !isOwner && !isSeeker && !actor.isAdmin() {
		return nil, nil, "", forbidden("You don't have permission to update this deal. Only the property owner, applicant, or admin can update deals.")
	}

	actorType := models.ActorAdmin
	if isOwner {
		actorType = models.ActorOwner
	} else if isSeeker {
		actorType = models.ActorSeeker
	}
	return property, app, actorType, nil
}

func (e *Engine) applyApplicationUpdate(ctx context.Context, id primitive.ObjectID, upd ApplicationUpdate) error {
	err := e.store.UpdateApplication(ctx, id, upd)
	if err == ErrNotFound {
		return notFound("Application")
	}
	if err != nil {
		return unexpected(err)
	}
	return nil
}

// partyProfile builds an identity snapshot, enriched from the users
// collection when the account exists. A missing account still yields a
// usable snapshot from the token claims.
func (e *Engine) partyProfile(ctx context.Context, uid, name, email, photoURL string) models.PartyProfile {
	profile := models.PartyProfile{
		UID:      uid,
		Name:     name,
		Email:    email,
		PhotoURL: photoURL,
	}
	user, err := e.store.UserByEmail(ctx, email)
	if err != nil {
		return profile
	}
	profile.Phone = user.Phone
	profile.Role = user.Role
	profile.NidVerified = user.NidVerified
	profile.Rating = user.Rating
	created := user.CreatedAt
	profile.CreatedAt = &created
	return profile
}

func snapshotProperty(p *models.Property) models.PropertySnapshot {
	return models.PropertySnapshot{
		ID:           p.ID,
		Title:        p.Title,
		ListingType:  p.ListingType,
		PropertyType: p.PropertyType,
		Price:        p.Price,
		AreaSqFt:     p.AreaSqFt,
		Address:      p.Address,
		Overview:     p.Overview,
		Images:       p.Images,
		Amenities:    p.Amenities,
		Location:     p.Location,
		Status:       p.Status,
		Flat:         p.Flat,
		Building:     p.Building,
	}
}
