package enums

import "fmt"

// ListingCategory represents the browseable listing categories.
type ListingCategory string

const (
	ListingCategoryElectronics ListingCategory = "electronics"
	ListingCategoryFashion     ListingCategory = "fashion"
	ListingCategoryHome        ListingCategory = "home"
	ListingCategoryToys        ListingCategory = "toys"
	ListingCategoryBooks       ListingCategory = "books"
	ListingCategorySports      ListingCategory = "sports"
	ListingCategoryCollectible ListingCategory = "collectible"
	ListingCategoryVehicles    ListingCategory = "vehicles"
	ListingCategoryOther       ListingCategory = "other"
)

var validListingCategories = []ListingCategory{
	ListingCategoryElectronics,
	ListingCategoryFashion,
	ListingCategoryHome,
	ListingCategoryToys,
	ListingCategoryBooks,
	ListingCategorySports,
	ListingCategoryCollectible,
	ListingCategoryVehicles,
	ListingCategoryOther,
}

// String implements fmt.Stringer.
func (c ListingCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ListingCategory.
func (c ListingCategory) IsValid() bool {
	for _, candidate := range validListingCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseListingCategory converts raw input into a ListingCategory.
func ParseListingCategory(value string) (ListingCategory, error) {
	for _, candidate := range validListingCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing category %q", value)
}
