package negotiation

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
)

// ErrNotFound is returned by Store lookups when no document matches.
var ErrNotFound = errors.New("not found")

// ErrProposalConflict is returned by ClaimProperty and ReassignProposal when
// the conditional update matched no document: the property either already
// carries a different active proposal or is no longer open to one.
var ErrProposalConflict = errors.New("active proposal conflict")

// ApplicationUpdate is one atomic partial update of an application: status
// and price fields are set, history entries are appended, and the lastAction
// cache is refreshed in the same write. Histories are never replaced.
type ApplicationUpdate struct {
	Status        string
	ProposedPrice *float64
	FinalPrice    *float64
	Message       *string

	Negotiation *models.NegotiationEvent
	StatusEvent *models.StatusEvent
	PriceEvent  *models.PriceEvent

	ActionAt      time.Time
	ActionBy      string
	ActionByEmail string
}

// Store is the persistence port of the negotiation engine. It is injected at
// construction; the engine never touches a global database handle. Each
// method is individually atomic; the engine orders calls so that invariant
// violations stay momentary.
type Store interface {
	Property(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	Application(ctx context.Context, id primitive.ObjectID) (*models.Application, error)

	// BlockingApplication returns the seeker's application on the property
	// whose status is in models.BlockingStatuses, or ErrNotFound.
	BlockingApplication(ctx context.Context, propertyID primitive.ObjectID, seekerEmail string) (*models.Application, error)

	UserByEmail(ctx context.Context, email string) (*models.User, error)

	InsertApplication(ctx context.Context, app *models.Application) (primitive.ObjectID, error)
	UpdateApplication(ctx context.Context, id primitive.ObjectID, upd ApplicationUpdate) error

	// RejectOpenApplications applies upd to every application on the property
	// other than except whose status is in models.OpenStatuses.
	RejectOpenApplications(ctx context.Context, propertyID, except primitive.ObjectID, upd ApplicationUpdate) (int64, error)

	// ClaimProperty atomically moves the property into deal-in-progress,
	// pointing active_proposal_id at proposalID and recording previousStatus.
	// The update only matches when active_proposal_id is unset and the
	// property status is active or pending; otherwise ErrProposalConflict.
	ClaimProperty(ctx context.Context, propertyID, proposalID primitive.ObjectID, previousStatus string) error

	// ReassignProposal swaps active_proposal_id from one application to
	// another on a property already in deal-in-progress.
	ReassignProposal(ctx context.Context, propertyID, from, to primitive.ObjectID) error

	// FinalizeProperty moves a deal-in-progress property to sold or rented,
	// hides it, and clears active_proposal_id and previousStatus.
	FinalizeProperty(ctx context.Context, propertyID primitive.ObjectID, finalStatus string) error

	// RestoreProperty moves a deal-in-progress property back to
	// restoredStatus, clearing active_proposal_id and previousStatus.
	RestoreProperty(ctx context.Context, propertyID primitive.ObjectID, restoredStatus string) error
}
