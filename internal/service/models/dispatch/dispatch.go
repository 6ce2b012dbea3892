package dispatch

// Color communicates the severity of a dispatch outcome to the UI.
type Color string

const (
	ColorSuccess Color = "success"
	ColorWarning Color = "warning"
)

const (
	MessageNotEnabled = "Auto dispatch is not enabled for this organization"
	MessageNoMatch    = "No matching vehicle found for this order"
	MessageFailed     = "Auto dispatch could not be completed"
	MessageSubmitted  = "Auto dispatch request submitted"
)

// Result is the caller-facing outcome of a dispatch pass.
type Result struct {
	NumberOfDispatchedVehicle int    `json:"numberOfDispatchedVehicle"`
	Message                   string `json:"message"`
	Color                     Color  `json:"color"`
}

// Warning builds a result that dispatched nothing.
func Warning(message string) Result {
	return Result{Message: message, Color: ColorWarning}
}

// Request asks for a dispatch pass of one order.
type Request struct {
	OrganizationID int64  `json:"organizationId"`
	OrderCode      string `json:"orderCode"`
}
