package order

// QueryOrdersModel represents filter parameters for querying orders
type QueryOrdersModel struct {
	OrganizationID int64  `json:"organizationId"`
	Code           string `json:"code,omitempty"`
	ID             int64  `json:"id,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}
