package negotiation

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
)

// MemStore is an in-memory Store used by tests. It mirrors the conditional
// update semantics of the Mongo implementation and records the order of
// mutating calls so tests can assert write sequencing.
type MemStore struct {
	mu           sync.Mutex
	Properties   map[primitive.ObjectID]*models.Property
	Applications map[primitive.ObjectID]*models.Application
	Users        map[string]*models.User

	// Writes logs mutating calls in order: "insert:<id>", "update:<id>",
	// "rejectOpen", "claim", "reassign", "finalize", "restore".
	Writes []string
}

func NewMemStore() *MemStore {
	return &MemStore{
		Properties:   map[primitive.ObjectID]*models.Property{},
		Applications: map[primitive.ObjectID]*models.Application{},
		Users:        map[string]*models.User{},
	}
}

func (s *MemStore) Property(_ context.Context, id primitive.ObjectID) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProperty(p), nil
}

func (s *MemStore) Application(_ context.Context, id primitive.ObjectID) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.Applications[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyApplication(a), nil
}

func (s *MemStore) BlockingApplication(_ context.Context, propertyID primitive.ObjectID, seekerEmail string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.Applications {
		if a.PropertyID == propertyID && a.Seeker.Email == seekerEmail && contains(models.BlockingStatuses, a.Status) {
			return copyApplication(a), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[email]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *MemStore) InsertApplication(_ context.Context, app *models.Application) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := primitive.NewObjectID()
	stored := copyApplication(app)
	stored.ID = id
	s.Applications[id] = stored
	s.Writes = append(s.Writes, "insert:"+id.Hex())
	return id, nil
}

func (s *MemStore) UpdateApplication(_ context.Context, id primitive.ObjectID, upd ApplicationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.Applications[id]
	if !ok {
		return ErrNotFound
	}
	applyUpdate(a, upd)
	s.Writes = append(s.Writes, "update:"+id.Hex())
	return nil
}

func (s *MemStore) RejectOpenApplications(_ context.Context, propertyID, except primitive.ObjectID, upd ApplicationUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.Applications {
		if a.PropertyID == propertyID && id != except && contains(models.OpenStatuses, a.Status) {
			applyUpdate(a, upd)
			n++
		}
	}
	s.Writes = append(s.Writes, "rejectOpen")
	return n, nil
}

func (s *MemStore) ClaimProperty(_ context.Context, propertyID, proposalID primitive.ObjectID, previousStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Properties[propertyID]
	if !ok || p.ActiveProposalID != nil ||
		(p.Status != models.PropertyActive && p.Status != models.PropertyPending) {
		return ErrProposalConflict
	}
	p.Status = models.PropertyDealInProgress
	id := proposalID
	p.ActiveProposalID = &id
	prev := previousStatus
	p.PreviousStatus = &prev
	s.Writes = append(s.Writes, "claim")
	return nil
}

func (s *MemStore) ReassignProposal(_ context.Context, propertyID, from, to primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Properties[propertyID]
	if !ok || p.Status != models.PropertyDealInProgress ||
		p.ActiveProposalID == nil || *p.ActiveProposalID != from {
		return ErrProposalConflict
	}
	id := to
	p.ActiveProposalID = &id
	s.Writes = append(s.Writes, "reassign")
	return nil
}

func (s *MemStore) FinalizeProperty(_ context.Context, propertyID primitive.ObjectID, finalStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Properties[propertyID]
	if !ok || p.Status != models.PropertyDealInProgress {
		return ErrProposalConflict
	}
	p.Status = finalStatus
	p.Visibility = models.VisibilityHidden
	p.ActiveProposalID = nil
	p.PreviousStatus = nil
	s.Writes = append(s.Writes, "finalize")
	return nil
}

func (s *MemStore) RestoreProperty(_ context.Context, propertyID primitive.ObjectID, restoredStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Properties[propertyID]
	if !ok || p.Status != models.PropertyDealInProgress {
		return ErrProposalConflict
	}
	p.Status = restoredStatus
	p.ActiveProposalID = nil
	p.PreviousStatus = nil
	s.Writes = append(s.Writes, "restore")
	return nil
}

func applyUpdate(a *models.Application, upd ApplicationUpdate) {
	a.Status = upd.Status
	if upd.ProposedPrice != nil {
		a.ProposedPrice = *upd.ProposedPrice
	}
	if upd.FinalPrice != nil {
		fp := *upd.FinalPrice
		a.FinalPrice = &fp
	}
	if upd.Message != nil {
		a.Message = *upd.Message
	}
	if upd.Negotiation != nil {
		a.NegotiationHistory = append(a.NegotiationHistory, *upd.Negotiation)
	}
	if upd.StatusEvent != nil {
		a.StatusHistory = append(a.StatusHistory, *upd.StatusEvent)
	}
	if upd.PriceEvent != nil {
		a.PriceHistory = append(a.PriceHistory, *upd.PriceEvent)
	}
	a.UpdatedAt = upd.ActionAt
	a.LastActionAt = upd.ActionAt
	a.LastActionBy = upd.ActionBy
	a.LastActionByEmail = upd.ActionByEmail
}

func copyProperty(p *models.Property) *models.Property {
	copied := *p
	if p.ActiveProposalID != nil {
		id := *p.ActiveProposalID
		copied.ActiveProposalID = &id
	}
	if p.PreviousStatus != nil {
		prev := *p.PreviousStatus
		copied.PreviousStatus = &prev
	}
	return &copied
}

func copyApplication(a *models.Application) *models.Application {
	copied := *a
	copied.NegotiationHistory = append([]models.NegotiationEvent(nil), a.NegotiationHistory...)
	copied.PriceHistory = append([]models.PriceEvent(nil), a.PriceHistory...)
	copied.StatusHistory = append([]models.StatusEvent(nil), a.StatusHistory...)
	if a.FinalPrice != nil {
		fp := *a.FinalPrice
		copied.FinalPrice = &fp
	}
	return &copied
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
