package negotiation

import (
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/models"
)

// Property lifecycle transitions outside the deal flow. Each helper returns
// the next status without mutating the property; callers persist it.

// ToggleVisibility flips a listing between active and hidden. Any other
// status is not toggleable.
func ToggleVisibility(p *models.Property) (string, error) {
	switch p.Status {
	case models.PropertyActive:
		return models.PropertyHidden, nil
	case models.PropertyHidden:
		return models.PropertyActive, nil
	default:
		return "", invalidTransitionf(
			"Cannot toggle visibility of a %q property. Only active or hidden listings can be toggled.", p.Status)
	}
}

// Approve moves a pending listing to active (admin action).
func Approve(p *models.Property) (string, error) {
	if p.Status != models.PropertyPending {
		return "", invalidTransitionf(
			"Cannot approve a %q property. Only pending listings can be approved.", p.Status)
	}
	return models.PropertyActive, nil
}

// RejectListing moves a pending or active listing to rejected (admin action).
func RejectListing(p *models.Property) (string, error) {
	if p.Status != models.PropertyPending && p.Status != models.PropertyActive {
		return "", invalidTransitionf(
			"Cannot reject a %q property. Only pending or active listings can be rejected.", p.Status)
	}
	return models.PropertyRejected, nil
}

// finalStatus derives the terminal status for a completed deal from the
// listing type: a sale listing is sold, a rent listing is rented.
func finalStatus(p *models.Property) string {
	if p.ListingType == models.ListingSale {
		return models.PropertySold
	}
	return models.PropertyRented
}

// restoredStatus is where a property returns when its deal is cancelled.
func restoredStatus(p *models.Property) string {
	if p.PreviousStatus != nil && *p.PreviousStatus != "" {
		return *p.PreviousStatus
	}
	return models.PropertyActive
}

// canEnterDeal checks the business guards that must hold before a property
// may move into deal-in-progress. The conditional ClaimProperty write
// re-checks these at the store layer; this gives the caller a precise error
// first.
func canEnterDeal(p *models.Property) error {
	switch p.Status {
	case models.PropertyActive, models.PropertyPending:
	case models.PropertyRented, models.PropertySold:
		return invalidTransitionf("Property is already %s", p.Status)
	case models.PropertyRejected:
		return invalidTransitionf("Cannot start a deal on a rejected property")
	default:
		return invalidTransitionf("Cannot start a deal on a %q property", p.Status)
	}
	if p.ActiveProposalID != nil {
		return invalidTransitionf("Property already has an accepted proposal")
	}
	return nil
}
