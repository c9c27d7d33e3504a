package negotiation

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
)

func TestToggleVisibility(t *testing.T) {
	cases := []struct {
		status  string
		next    string
		wantErr bool
	}{
		{models.PropertyActive, models.PropertyHidden, false},
		{models.PropertyHidden, models.PropertyActive, false},
		{models.PropertyPending, "", true},
		{models.PropertyDealInProgress, "", true},
		{models.PropertySold, "", true},
		{models.PropertyRented, "", true},
		{models.PropertyRejected, "", true},
	}
	for _, tc := range cases {
		next, err := ToggleVisibility(&models.Property{Status: tc.status})
		if tc.wantErr {
			if KindOf(err) != KindInvalidTransition {
				t.Errorf("toggle from %q: kind = %v, want invalid-transition", tc.status, KindOf(err))
			}
			continue
		}
		if err != nil {
			t.Errorf("toggle from %q: %v", tc.status, err)
			continue
		}
		if next != tc.next {
			t.Errorf("toggle from %q = %q, want %q", tc.status, next, tc.next)
		}
	}
}

func TestApprove(t *testing.T) {
	next, err := Approve(&models.Property{Status: models.PropertyPending})
	if err != nil || next != models.PropertyActive {
		t.Errorf("approve pending = %q, %v; want active", next, err)
	}
	for _, status := range []string{models.PropertyActive, models.PropertySold, models.PropertyRejected} {
		if _, err := Approve(&models.Property{Status: status}); KindOf(err) != KindInvalidTransition {
			t.Errorf("approve %q: kind = %v, want invalid-transition", status, KindOf(err))
		}
	}
}

func TestRejectListing(t *testing.T) {
	for _, status := range []string{models.PropertyPending, models.PropertyActive} {
		next, err := RejectListing(&models.Property{Status: status})
		if err != nil || next != models.PropertyRejected {
			t.Errorf("reject %q = %q, %v; want rejected", status, next, err)
		}
	}
	for _, status := range []string{models.PropertyDealInProgress, models.PropertySold, models.PropertyRented} {
		if _, err := RejectListing(&models.Property{Status: status}); KindOf(err) != KindInvalidTransition {
			t.Errorf("reject %q: kind = %v, want invalid-transition", status, KindOf(err))
		}
	}
}

func TestCanEnterDeal(t *testing.T) {
	if err := canEnterDeal(&models.Property{Status: models.PropertyActive}); err != nil {
		t.Errorf("active: %v", err)
	}
	if err := canEnterDeal(&models.Property{Status: models.PropertyPending}); err != nil {
		t.Errorf("pending: %v", err)
	}
	for _, status := range []string{models.PropertySold, models.PropertyRented, models.PropertyRejected, models.PropertyHidden, models.PropertyDealInProgress} {
		if err := canEnterDeal(&models.Property{Status: status}); KindOf(err) != KindInvalidTransition {
			t.Errorf("%q: kind = %v, want invalid-transition", status, KindOf(err))
		}
	}

	oid := primitive.NewObjectID()
	if err := canEnterDeal(&models.Property{Status: models.PropertyActive, ActiveProposalID: &oid}); KindOf(err) != KindInvalidTransition {
		t.Errorf("claimed property: kind = %v, want invalid-transition", KindOf(err))
	}
}

func TestFinalAndRestoredStatus(t *testing.T) {
	if got := finalStatus(&models.Property{ListingType: models.ListingSale}); got != models.PropertySold {
		t.Errorf("sale final = %q, want sold", got)
	}
	if got := finalStatus(&models.Property{ListingType: models.ListingRent}); got != models.PropertyRented {
		t.Errorf("rent final = %q, want rented", got)
	}

	prev := models.PropertyPending
	if got := restoredStatus(&models.Property{PreviousStatus: &prev}); got != models.PropertyPending {
		t.Errorf("restored = %q, want pending", got)
	}
	if got := restoredStatus(&models.Property{}); got != models.PropertyActive {
		t.Errorf("restored default = %q, want active", got)
	}
}
