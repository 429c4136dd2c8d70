package domain

// CorrelationKind is the type of external entity a notification refers to.
type CorrelationKind string

const (
	CorrelationOrder      CorrelationKind = "order"
	CorrelationRestaurant CorrelationKind = "restaurant"
	CorrelationDelivery   CorrelationKind = "delivery"
)

var correlationCategories = map[CorrelationKind][]Category{
	CorrelationOrder:      {CategoryOrderCreated, CategoryOrderStatusChanged, CategoryPaymentProcessed},
	CorrelationRestaurant: {CategoryRestaurantApproved},
	CorrelationDelivery:   {CategoryDeliveryAssigned},
}

// CategoriesFor returns the categories whose correlation id points at an
// entity of the given kind.
func CategoriesFor(kind CorrelationKind) ([]Category, error) {
	cats, ok := correlationCategories[CorrelationKind(normalizeTag(string(kind)))]
	if !ok {
		return nil, NewValidationError("kind", "unknown correlation kind %q", kind)
	}
	out := make([]Category, len(cats))
	copy(out, cats)
	return out, nil
}
