package isettingsrepo

import (
	"context"

	"github.com/corray333/backend-labs/tms/internal/service/models/settings"
)

// ISettingsRepository is an interface for organization settings.
type ISettingsRepository interface {
	Get(ctx context.Context, organizationID int64) (settings.Organization, error)
}
