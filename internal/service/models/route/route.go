package route

// Type distinguishes template routes from per-order routes.
type Type string

const (
	// TypeFixed is a reusable route owned independently of any order.
	TypeFixed Type = "FIXED"
	// TypeNonFixed is an ad hoc route built from points owned by the order's customer.
	TypeNonFixed Type = "NON_FIXED"
)

// PointType tells whether a point is a pickup or a delivery stop.
type PointType string

const (
	PointTypePickup   PointType = "PICKUP"
	PointTypeDelivery PointType = "DELIVERY"
)

// Address is the geographic location of a route point.
type Address struct {
	ID           int64    `json:"id,omitempty"`
	Country      string   `json:"country,omitempty"`
	City         string   `json:"city,omitempty"`
	District     string   `json:"district,omitempty"`
	Ward         string   `json:"ward,omitempty"`
	AddressLine1 string   `json:"addressLine1,omitempty"`
	AddressLine2 string   `json:"addressLine2,omitempty"`
	PostalCode   string   `json:"postalCode,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// HasData reports whether the address carries anything worth persisting.
func (a *Address) HasData() bool {
	if a == nil {
		return false
	}

	return a.ID > 0 || a.Country != "" || a.City != "" || a.District != "" || a.Ward != "" ||
		a.AddressLine1 != "" || a.AddressLine2 != "" || a.PostalCode != "" ||
		a.Latitude != nil || a.Longitude != nil
}

// PointRef references a route point either by persisted id or by a client-issued temp id.
type PointRef struct {
	ID     int64  `json:"id,omitempty"`
	TempID string `json:"tempId,omitempty"`
}

// IsPending reports whether the reference has not been resolved to a persisted id yet.
func (r PointRef) IsPending() bool {
	return r.ID == 0
}

// Point is a pickup or delivery stop.
type Point struct {
	ID             int64    `json:"id,omitempty"`
	TempID         string   `json:"tempId,omitempty"`
	OrganizationID int64    `json:"organizationId,omitempty"`
	CustomerID     int64    `json:"customerId,omitempty"`
	Code           string   `json:"code,omitempty"`
	Name           string   `json:"name"`
	ContactName    string   `json:"contactName,omitempty"`
	ContactEmail   string   `json:"contactEmail,omitempty"`
	PhoneNumber    string   `json:"phoneNumber,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Address        *Address `json:"address,omitempty"`
	DisplayOrder   int      `json:"displayOrder"`
}

// Ref returns the reference of the point.
func (p *Point) Ref() PointRef {
	return PointRef{ID: p.ID, TempID: p.TempID}
}

// Route is an ordered list of pickup points followed by an ordered list of delivery points.
type Route struct {
	ID             int64   `json:"id,omitempty"`
	OrganizationID int64   `json:"organizationId"`
	CustomerID     int64   `json:"customerId,omitempty"`
	Type           Type    `json:"type"`
	Code           string  `json:"code,omitempty"`
	Name           string  `json:"name,omitempty"`
	Distance       float64 `json:"distance,omitempty"`
	PickupPoints   []Point `json:"pickupPoints"`
	DeliveryPoints []Point `json:"deliveryPoints"`
}

// FirstPickup returns the first pickup stop or nil.
func (r *Route) FirstPickup() *Point {
	if len(r.PickupPoints) == 0 {
		return nil
	}

	return &r.PickupPoints[0]
}

// LastDelivery returns the last delivery stop or nil.
func (r *Route) LastDelivery() *Point {
	if len(r.DeliveryPoints) == 0 {
		return nil
	}

	return &r.DeliveryPoints[len(r.DeliveryPoints)-1]
}
