package enums

import "fmt"

// ListingCondition describes the physical state of the item on offer.
type ListingCondition string

const (
	ListingConditionNew          ListingCondition = "new"
	ListingConditionRental       ListingCondition = "rental"
	ListingConditionUsed         ListingCondition = "used"
	ListingConditionUsedGood     ListingCondition = "used_good"
	ListingConditionUsedVeryGood ListingCondition = "used_very_good"
)

var validListingConditions = []ListingCondition{
	ListingConditionNew,
	ListingConditionRental,
	ListingConditionUsed,
	ListingConditionUsedGood,
	ListingConditionUsedVeryGood,
}

// String implements fmt.Stringer.
func (c ListingCondition) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ListingCondition.
func (c ListingCondition) IsValid() bool {
	for _, candidate := range validListingConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseListingCondition converts raw input into a ListingCondition.
func ParseListingCondition(value string) (ListingCondition, error) {
	for _, candidate := range validListingConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing condition %q", value)
}
