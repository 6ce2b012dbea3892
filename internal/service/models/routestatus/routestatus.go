package routestatus

import (
	"time"

	"github.com/corray333/backend-labs/tms/internal/service/models/route"
)

// OrderRouteStatus is the per-stop status record of one order.
// It correlates to its route point by persisted id or by the temp id used while the point was pending.
type OrderRouteStatus struct {
	ID             int64           `json:"id,omitempty"`
	OrganizationID int64           `json:"organizationId,omitempty"`
	Type           route.PointType `json:"type"`
	RoutePoint     route.PointRef  `json:"routePoint"`
	ExpectedTime   *time.Time      `json:"expectedTime,omitempty"`
	IsArrived      bool            `json:"isArrived"`
	Notes          string          `json:"notes,omitempty"`
	Meta           map[string]any  `json:"meta,omitempty"`
}

// MatchesPoint reports whether the status belongs to the given point.
// Persisted points are matched by id, pending points by temp id.
func (s *OrderRouteStatus) MatchesPoint(p *route.Point) bool {
	if p.ID > 0 {
		return s.RoutePoint.ID == p.ID
	}

	return p.TempID != "" && s.RoutePoint.TempID == p.TempID
}
