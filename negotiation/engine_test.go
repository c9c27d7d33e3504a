package negotiation

import (
	"context"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
)

var (
	ownerActor = Actor{UID: "u-owner", Name: "Bob Owner", Email: "bob@example.com", Verified: true}
	seeker     = Actor{UID: "u-alice", Name: "Alice", Email: "alice@example.com"}
	seeker2    = Actor{UID: "u-carol", Name: "Carol", Email: "carol@example.com"}
	adminActor = Actor{UID: "u-root", Name: "Root", Email: "root@example.com", Role: "admin"}
)

func newFixture(t *testing.T, listingType string) (*Engine, *MemStore, *models.Property) {
	t.Helper()
	store := NewMemStore()
	property := &models.Property{
		ID:           primitive.NewObjectID(),
		Title:        "Lakeview Flat",
		ListingType:  listingType,
		PropertyType: models.PropertyFlat,
		Price:        1000000,
		AreaSqFt:     1200,
		Address:      "12 Lake Road, Dhaka",
		Status:       models.PropertyActive,
		Visibility:   models.VisibilityVisible,
		Owner:        models.PartySnapshot{UID: ownerActor.UID, Name: ownerActor.Name, Email: ownerActor.Email},
		Flat:         &models.FlatDetails{RoomCount: 3, Bathrooms: 2},
	}
	store.Properties[property.ID] = property
	return NewEngine(store), store, property
}

func mustSubmit(t *testing.T, e *Engine, actor Actor, propertyID primitive.ObjectID, price float64) *models.Application {
	t.Helper()
	app, err := e.Submit(context.Background(), actor, propertyID, price, "")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return app
}

func TestSubmitCreatesPendingApplication(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)

	app, err := engine.Submit(context.Background(), seeker, property.ID, 50000, "interested")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	stored := store.Applications[app.ID]
	if stored.Status != models.AppPending {
		t.Errorf("status = %q, want pending", stored.Status)
	}
	if stored.ProposedPrice != 50000 {
		t.Errorf("proposedPrice = %v, want 50000", stored.ProposedPrice)
	}
	if stored.OriginalListingPrice != 1000000 {
		t.Errorf("originalListingPrice = %v, want 1000000", stored.OriginalListingPrice)
	}
	if len(stored.NegotiationHistory) != 1 || stored.NegotiationHistory[0].Action != "application_submitted" {
		t.Errorf("negotiationHistory = %+v, want one application_submitted entry", stored.NegotiationHistory)
	}
	if len(stored.PriceHistory) != 1 || stored.PriceHistory[0].Note != "Initial offer" {
		t.Errorf("priceHistory = %+v, want one initial offer entry", stored.PriceHistory)
	}
	if stored.PropertySnapshot.Title != "Lakeview Flat" || stored.PropertySnapshot.Flat == nil {
		t.Errorf("property snapshot not captured: %+v", stored.PropertySnapshot)
	}
	if stored.LastActionBy != models.ActorSeeker || stored.LastActionByEmail != seeker.Email {
		t.Errorf("lastAction = %s/%s, want seeker/%s", stored.LastActionBy, stored.LastActionByEmail, seeker.Email)
	}
	// The property is untouched by a submission.
	if p := store.Properties[property.ID]; p.Status != models.PropertyActive || p.ActiveProposalID != nil {
		t.Errorf("property mutated by submit: %+v", p)
	}
}

func TestSubmitValidation(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	ctx := context.Background()

	if _, err := engine.Submit(ctx, seeker, primitive.NewObjectID(), 100, ""); KindOf(err) != KindNotFound {
		t.Errorf("missing property: kind = %v, want not-found", KindOf(err))
	}

	if _, err := engine.Submit(ctx, ownerActor, property.ID, 100, ""); KindOf(err) != KindValidation {
		t.Errorf("own property: kind = %v, want validation", KindOf(err))
	}

	if _, err := engine.Submit(ctx, seeker, property.ID, 0, ""); KindOf(err) != KindValidation {
		t.Errorf("zero price: kind = %v, want validation", KindOf(err))
	}
	if _, err := engine.Submit(ctx, seeker, property.ID, -5, ""); KindOf(err) != KindValidation {
		t.Errorf("negative price: kind = %v, want validation", KindOf(err))
	}

	mustSubmit(t, engine, seeker, property.ID, 50000)
	_, err := engine.Submit(ctx, seeker, property.ID, 60000, "")
	if KindOf(err) != KindValidation {
		t.Fatalf("duplicate: kind = %v, want validation", KindOf(err))
	}
	if !strings.Contains(err.Error(), "already have an active application") {
		t.Errorf("duplicate message = %q", err.Error())
	}

	store.Properties[property.ID].Status = models.PropertyHidden
	if _, err := engine.Submit(ctx, seeker2, property.ID, 100, ""); KindOf(err) != KindValidation {
		t.Errorf("hidden property: kind = %v, want validation", KindOf(err))
	}
}

func TestCounterThenAcceptCounter(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 50000)

	if err := engine.Counter(ctx, ownerActor, app.ID, 60000); err != nil {
		t.Fatalf("counter: %v", err)
	}
	stored := store.Applications[app.ID]
	if stored.Status != models.AppCounter || stored.ProposedPrice != 60000 {
		t.Fatalf("after counter: status=%q price=%v", stored.Status, stored.ProposedPrice)
	}
	if len(stored.NegotiationHistory) != 2 {
		t.Errorf("negotiationHistory len = %d, want 2", len(stored.NegotiationHistory))
	}

	if err := engine.AcceptCounter(ctx, seeker, app.ID); err != nil {
		t.Fatalf("accept-counter: %v", err)
	}
	stored = store.Applications[app.ID]
	if stored.Status != models.AppDealInProgress {
		t.Errorf("status = %q, want deal-in-progress", stored.Status)
	}
	if stored.FinalPrice == nil || *stored.FinalPrice != 60000 {
		t.Errorf("finalPrice = %v, want 60000", stored.FinalPrice)
	}

	p := store.Properties[property.ID]
	if p.Status != models.PropertyDealInProgress {
		t.Errorf("property status = %q, want deal-in-progress", p.Status)
	}
	if p.ActiveProposalID == nil || *p.ActiveProposalID != app.ID {
		t.Errorf("active_proposal_id = %v, want %v", p.ActiveProposalID, app.ID)
	}
	if p.PreviousStatus == nil || *p.PreviousStatus != models.PropertyActive {
		t.Errorf("previousStatus = %v, want active", p.PreviousStatus)
	}
}

func TestOwnerAcceptSetsFinalPrice(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	app := mustSubmit(t, engine, seeker, property.ID, 50000)

	if err := engine.Accept(context.Background(), ownerActor, app.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	stored := store.Applications[app.ID]
	if stored.Status != models.AppDealInProgress {
		t.Errorf("status = %q, want deal-in-progress", stored.Status)
	}
	if stored.FinalPrice == nil || *stored.FinalPrice != 50000 {
		t.Errorf("finalPrice = %v, want seeker's offer 50000", stored.FinalPrice)
	}
	if p := store.Properties[property.ID]; p.ActiveProposalID == nil || *p.ActiveProposalID != app.ID {
		t.Errorf("property not claimed: %+v", p)
	}
}

func TestOwnerCannotAcceptOwnCounter(t *testing.T) {
	engine, _, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 50000)

	if err := engine.Counter(ctx, ownerActor, app.ID, 60000); err != nil {
		t.Fatalf("counter: %v", err)
	}

	err := engine.Accept(ctx, ownerActor, app.ID)
	if KindOf(err) != KindInvalidTransition {
		t.Fatalf("kind = %v, want invalid-transition", KindOf(err))
	}
	if !strings.Contains(err.Error(), "cannot accept your own counter offer") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestAcceptFailsWhenProposalTaken(t *testing.T) {
	engine, _, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	first := mustSubmit(t, engine, seeker, property.ID, 50000)
	second := mustSubmit(t, engine, seeker2, property.ID, 55000)

	if err := engine.Accept(ctx, ownerActor, first.ID); err != nil {
		t.Fatalf("accept first: %v", err)
	}
	if err := engine.Accept(ctx, ownerActor, second.ID); KindOf(err) != KindInvalidTransition {
		t.Errorf("accept second: kind = %v, want invalid-transition", KindOf(err))
	}
}

func TestReviseOnlyAfterCounter(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 50000)

	if err := engine.Revise(ctx, seeker, app.ID, 52000, nil); KindOf(err) != KindInvalidTransition {
		t.Errorf("revise pending: kind = %v, want invalid-transition", KindOf(err))
	}

	if err := engine.Counter(ctx, ownerActor, app.ID, 60000); err != nil {
		t.Fatalf("counter: %v", err)
	}
	msg := "meet you halfway"
	if err := engine.Revise(ctx, seeker, app.ID, 55000, &msg); err != nil {
		t.Fatalf("revise: %v", err)
	}

	stored := store.Applications[app.ID]
	if stored.Status != models.AppPending || stored.ProposedPrice != 55000 {
		t.Errorf("after revise: status=%q price=%v", stored.Status, stored.ProposedPrice)
	}
	if stored.Message != msg {
		t.Errorf("message = %q, want %q", stored.Message, msg)
	}
	if len(stored.PriceHistory) != 3 {
		t.Errorf("priceHistory len = %d, want 3", len(stored.PriceHistory))
	}
}

func TestWithdrawIsNotRepeatable(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 50000)

	if err := engine.Withdraw(ctx, seeker, app.ID); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	before := len(store.Applications[app.ID].NegotiationHistory)

	if err := engine.Withdraw(ctx, seeker, app.ID); KindOf(err) != KindInvalidTransition {
		t.Fatalf("second withdraw: kind = %v, want invalid-transition", KindOf(err))
	}
	if after := len(store.Applications[app.ID].NegotiationHistory); after != before {
		t.Errorf("history grew on failed withdraw: %d -> %d", before, after)
	}

	// A withdrawn application frees the seeker to apply again.
	if _, err := engine.Submit(ctx, seeker, property.ID, 48000, ""); err != nil {
		t.Errorf("resubmit after withdraw: %v", err)
	}
}

func TestCompleteDealSaleListing(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 50000)
	other := mustSubmit(t, engine, seeker2, property.ID, 45000)

	if err := engine.Counter(ctx, ownerActor, app.ID, 60000); err != nil {
		t.Fatalf("counter: %v", err)
	}
	if err := engine.AcceptCounter(ctx, seeker, app.ID); err != nil {
		t.Fatalf("accept-counter: %v", err)
	}
	if err := engine.CompleteDeal(ctx, ownerActor, property.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	p := store.Properties[property.ID]
	if p.Status != models.PropertySold {
		t.Errorf("property status = %q, want sold", p.Status)
	}
	if p.Visibility != models.VisibilityHidden {
		t.Errorf("visibility = %q, want hidden", p.Visibility)
	}
	if p.ActiveProposalID != nil {
		t.Errorf("active_proposal_id not cleared: %v", p.ActiveProposalID)
	}

	if got := store.Applications[app.ID].Status; got != models.AppCompleted {
		t.Errorf("application status = %q, want completed", got)
	}

	rejected := store.Applications[other.ID]
	if rejected.Status != models.AppRejected {
		t.Errorf("other application status = %q, want rejected", rejected.Status)
	}
	last := rejected.StatusHistory[len(rejected.StatusHistory)-1]
	if last.ChangedBy != models.ActorSystem {
		t.Errorf("auto-reject changedBy = %q, want system", last.ChangedBy)
	}
	if !strings.Contains(last.Note, "Auto-rejected: Property deal has been finalized") {
		t.Errorf("auto-reject note = %q", last.Note)
	}

	// Active application completes before the property flips.
	writes := store.Writes
	if len(writes) < 3 {
		t.Fatalf("writes = %v", writes)
	}
	tail := writes[len(writes)-3:]
	if tail[0] != "update:"+app.ID.Hex() || tail[1] != "rejectOpen" || tail[2] != "finalize" {
		t.Errorf("write order = %v", tail)
	}
}

func TestCompleteDealRentListing(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingRent)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 20000)

	if err := engine.Accept(ctx, ownerActor, app.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := engine.CompleteDeal(ctx, seeker, property.ID); err != nil {
		t.Fatalf("complete by seeker: %v", err)
	}
	if p := store.Properties[property.ID]; p.Status != models.PropertyRented {
		t.Errorf("property status = %q, want rented", p.Status)
	}
}

func TestCompleteIsNotRepeatable(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 50000)

	if err := engine.Accept(ctx, ownerActor, app.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := engine.CompleteDeal(ctx, ownerActor, property.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	writesBefore := len(store.Writes)

	if err := engine.CompleteDeal(ctx, ownerActor, property.ID); KindOf(err) != KindInvalidTransition {
		t.Fatalf("second complete: kind = %v, want invalid-transition", KindOf(err))
	}
	if len(store.Writes) != writesBefore {
		t.Errorf("second complete issued writes: %v", store.Writes[writesBefore:])
	}
}

func TestCancelDealRestoresPreviousStatus(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 50000)

	// The listing slipped back to pending before the owner accepted.
	store.Properties[property.ID].Status = models.PropertyPending

	if err := engine.Accept(ctx, ownerActor, app.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := engine.CancelDeal(ctx, ownerActor, property.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	p := store.Properties[property.ID]
	if p.Status != models.PropertyPending {
		t.Errorf("property status = %q, want pending restored", p.Status)
	}
	if p.ActiveProposalID != nil || p.PreviousStatus != nil {
		t.Errorf("deal fields not cleared: %+v", p)
	}
	if got := store.Applications[app.ID].Status; got != models.AppCancelled {
		t.Errorf("application status = %q, want cancelled", got)
	}

	// FinalPrice survives cancellation.
	if fp := store.Applications[app.ID].FinalPrice; fp == nil || *fp != 50000 {
		t.Errorf("finalPrice = %v, want 50000 retained", fp)
	}
}

func TestAdminCanCancelDeal(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 50000)

	if err := engine.Accept(ctx, ownerActor, app.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := engine.CancelDeal(ctx, adminActor, property.ID); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	last := store.Applications[app.ID].StatusHistory[len(store.Applications[app.ID].StatusHistory)-1]
	if last.ChangedBy != models.ActorAdmin {
		t.Errorf("changedBy = %q, want admin", last.ChangedBy)
	}
}

func TestAcceptCounterSupersedesActiveProposal(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	first := mustSubmit(t, engine, seeker, property.ID, 50000)
	second := mustSubmit(t, engine, seeker2, property.ID, 45000)

	if err := engine.Counter(ctx, ownerActor, second.ID, 65000); err != nil {
		t.Fatalf("counter second: %v", err)
	}
	if err := engine.Accept(ctx, ownerActor, first.ID); err != nil {
		t.Fatalf("accept first: %v", err)
	}

	if err := engine.AcceptCounter(ctx, seeker2, second.ID); err != nil {
		t.Fatalf("accept-counter second: %v", err)
	}

	cancelled := store.Applications[first.ID]
	if cancelled.Status != models.AppCancelled {
		t.Errorf("first application status = %q, want cancelled", cancelled.Status)
	}
	if cancelled.LastActionBy != models.ActorSystem || cancelled.LastActionByEmail != SystemEmail {
		t.Errorf("first application lastAction = %s/%s, want system", cancelled.LastActionBy, cancelled.LastActionByEmail)
	}

	promoted := store.Applications[second.ID]
	if promoted.Status != models.AppDealInProgress {
		t.Errorf("second application status = %q, want deal-in-progress", promoted.Status)
	}
	if promoted.FinalPrice == nil || *promoted.FinalPrice != 65000 {
		t.Errorf("finalPrice = %v, want owner's counter 65000", promoted.FinalPrice)
	}

	p := store.Properties[property.ID]
	if p.ActiveProposalID == nil || *p.ActiveProposalID != second.ID {
		t.Errorf("active_proposal_id = %v, want %v", p.ActiveProposalID, second.ID)
	}

	// Superseded cancel, then promotion, then the property swap.
	tail := store.Writes[len(store.Writes)-3:]
	want := []string{"update:" + first.ID.Hex(), "update:" + second.ID.Hex(), "reassign"}
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("write order = %v, want %v", tail, want)
		}
	}
}

func TestAcceptCounterRequiresClaimableProperty(t *testing.T) {
	for _, status := range []string{models.PropertyHidden, models.PropertyRejected, models.PropertySold} {
		engine, store, property := newFixture(t, models.ListingSale)
		ctx := context.Background()
		app := mustSubmit(t, engine, seeker, property.ID, 50000)

		if err := engine.Counter(ctx, ownerActor, app.ID, 60000); err != nil {
			t.Fatalf("%s: counter: %v", status, err)
		}

		// The property slipped out of reach after the counter was sent.
		store.Properties[property.ID].Status = status
		writesBefore := len(store.Writes)

		if err := engine.AcceptCounter(ctx, seeker, app.ID); KindOf(err) != KindInvalidTransition {
			t.Fatalf("%s: kind = %v, want invalid-transition", status, KindOf(err))
		}

		// The guard fires before any write: the application stays counter.
		stored := store.Applications[app.ID]
		if stored.Status != models.AppCounter {
			t.Errorf("%s: application status = %q, want counter", status, stored.Status)
		}
		if stored.FinalPrice != nil {
			t.Errorf("%s: finalPrice = %v, want unset", status, *stored.FinalPrice)
		}
		if len(store.Writes) != writesBefore {
			t.Errorf("%s: failed accept-counter issued writes: %v", status, store.Writes[writesBefore:])
		}
		if p := store.Properties[property.ID]; p.Status != status || p.ActiveProposalID != nil {
			t.Errorf("%s: property mutated: %+v", status, p)
		}
	}
}

func TestAuthorization(t *testing.T) {
	engine, _, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 50000)
	stranger := Actor{UID: "u-eve", Name: "Eve", Email: "eve@example.com"}

	if err := engine.Counter(ctx, stranger, app.ID, 60000); KindOf(err) != KindAuthorization {
		t.Errorf("counter by stranger: kind = %v, want authorization", KindOf(err))
	}
	if err := engine.Withdraw(ctx, stranger, app.ID); KindOf(err) != KindAuthorization {
		t.Errorf("withdraw by stranger: kind = %v, want authorization", KindOf(err))
	}

	if err := engine.Accept(ctx, ownerActor, app.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := engine.CompleteDeal(ctx, stranger, property.ID); KindOf(err) != KindAuthorization {
		t.Errorf("complete by stranger: kind = %v, want authorization", KindOf(err))
	}
}

func TestHistoryTimestampsNonDecreasing(t *testing.T) {
	engine, store, property := newFixture(t, models.ListingSale)
	ctx := context.Background()
	app := mustSubmit(t, engine, seeker, property.ID, 50000)

	if err := engine.Counter(ctx, ownerActor, app.ID, 60000); err != nil {
		t.Fatalf("counter: %v", err)
	}
	if err := engine.Revise(ctx, seeker, app.ID, 55000, nil); err != nil {
		t.Fatalf("revise: %v", err)
	}
	if err := engine.Counter(ctx, ownerActor, app.ID, 58000); err != nil {
		t.Fatalf("counter again: %v", err)
	}
	if err := engine.AcceptCounter(ctx, seeker, app.ID); err != nil {
		t.Fatalf("accept-counter: %v", err)
	}

	stored := store.Applications[app.ID]
	for i := 1; i < len(stored.NegotiationHistory); i++ {
		if stored.NegotiationHistory[i].Timestamp.Before(stored.NegotiationHistory[i-1].Timestamp) {
			t.Fatalf("negotiationHistory timestamps decreased at %d", i)
		}
	}
	for i := 1; i < len(stored.StatusHistory); i++ {
		if stored.StatusHistory[i].Timestamp.Before(stored.StatusHistory[i-1].Timestamp) {
			t.Fatalf("statusHistory timestamps decreased at %d", i)
		}
	}
	if stored.LastActionAt != stored.StatusHistory[len(stored.StatusHistory)-1].Timestamp {
		t.Errorf("lastActionAt out of sync with latest history entry")
	}
}
