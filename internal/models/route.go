package models

// Route represents a transit route the driver can run trips on
type Route struct {
	ID            string  `json:"id" db:"id"`
	Name          string  `json:"name" db:"name"`
	StartPoint    *string `json:"start_point,omitempty" db:"start_point"`
	EndPoint      *string `json:"end_point,omitempty" db:"end_point"`
	LastUpdatedAt *int64  `json:"last_updated_at,omitempty" db:"last_updated_at"` // Epoch millis
}

// RouteDTO is a route as delivered by the catalog API
type RouteDTO struct {
	ID         string  `json:"id" db:"id"`
	Name       string  `json:"name" db:"name"`
	StartPoint *string `json:"start_point" db:"start_point"`
	EndPoint   *string `json:"end_point" db:"end_point"`
	UpdatedAt  int64   `json:"updated_at" db:"updated_at"`
}

// ToRoute maps a catalog DTO onto the local route model
func (d RouteDTO) ToRoute() Route {
	updated := d.UpdatedAt
	return Route{
		ID:            d.ID,
		Name:          d.Name,
		StartPoint:    d.StartPoint,
		EndPoint:      d.EndPoint,
		LastUpdatedAt: &updated,
	}
}

// DefaultRoutes is the fixed route set used for seeding and by the fake catalog
func DefaultRoutes(now int64) []Route {
	mk := func(id, name, start, end string) Route {
		return Route{ID: id, Name: name, StartPoint: StringPtr(start), EndPoint: StringPtr(end), LastUpdatedAt: Int64Ptr(now)}
	}
	return []Route{
		mk("route-101", "City Center Loop", "Central Station", "Old Town"),
		mk("route-102", "Airport Express", "Central Station", "International Airport"),
		mk("route-103", "Tech Park Shuttle", "Central Station", "Tech Park"),
	}
}
