package settings

import (
	"encoding/json"
	"time"
)

// CodeStrategy decides how order codes are built.
type CodeStrategy string

const (
	CodeStrategyCustomerSpecific CodeStrategy = "CUSTOMER_SPECIFIC"
	CodeStrategyRouteSpecific    CodeStrategy = "ROUTE_SPECIFIC"
	CodeStrategyRandom           CodeStrategy = "RANDOM"
)

const (
	DefaultCodeMaxLength       = 10
	DefaultCodePrefixMaxLength = 5
)

// OrderCode configures order code generation.
type OrderCode struct {
	Strategy        CodeStrategy `json:"strategy"`
	MaxLength       int          `json:"maxLength"`
	PrefixMaxLength int          `json:"prefixMaxLength"`
}

// PeriodUnit is the unit of the trailing aggregate window.
type PeriodUnit string

const (
	PeriodDay   PeriodUnit = "day"
	PeriodWeek  PeriodUnit = "week"
	PeriodMonth PeriodUnit = "month"
)

// Period is the trailing window used to aggregate trip cost and count.
type Period struct {
	Value int        `json:"value"`
	Unit  PeriodUnit `json:"unit"`
}

// DefaultPeriod is seven days.
var DefaultPeriod = Period{Value: 7, Unit: PeriodDay}

// Normalize clamps the value to non-negative and the unit to the allowed set.
func (p Period) Normalize() Period {
	if p.Value < 0 {
		p.Value = 0
	}
	switch p.Unit {
	case PeriodDay, PeriodWeek, PeriodMonth:
	default:
		p.Unit = PeriodDay
	}

	return p
}

// Start returns now minus the period.
func (p Period) Start(now time.Time) time.Time {
	p = p.Normalize()
	switch p.Unit {
	case PeriodWeek:
		return now.AddDate(0, 0, -7*p.Value)
	case PeriodMonth:
		return now.AddDate(0, -p.Value, 0)
	default:
		return now.AddDate(0, 0, -p.Value)
	}
}

// Dispatch is the auto-dispatch configuration of an organization.
// Priority is forwarded verbatim to the recommendation service.
type Dispatch struct {
	Enabled  bool            `json:"enabled"`
	Priority json.RawMessage `json:"priority,omitempty"`
}

// Period reads the trailing period out of the priority configuration.
// A missing or malformed period yields the default.
func (d Dispatch) Period() Period {
	if len(d.Priority) == 0 {
		return DefaultPeriod
	}
	var cfg struct {
		Period *Period `json:"period"`
	}
	if err := json.Unmarshal(d.Priority, &cfg); err != nil || cfg.Period == nil {
		return DefaultPeriod
	}

	return cfg.Period.Normalize()
}

// Organization groups the settings read by the order subsystem.
type Organization struct {
	OrganizationID int64     `json:"organizationId"`
	OrderCode      OrderCode `json:"orderCode"`
	Dispatch       Dispatch  `json:"dispatch"`
}

// Default returns the settings used when an organization has none stored.
func Default(organizationID int64) Organization {
	return Organization{
		OrganizationID: organizationID,
		OrderCode: OrderCode{
			Strategy:        CodeStrategyRandom,
			MaxLength:       DefaultCodeMaxLength,
			PrefixMaxLength: DefaultCodePrefixMaxLength,
		},
	}
}
