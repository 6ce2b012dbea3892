package ordersvc

import (
	"context"

	"github.com/corray333/backend-labs/tms/internal/dal/interfaces/icustomerrepo"
	"github.com/corray333/backend-labs/tms/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/tms/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/tms/internal/dal/interfaces/irouterepo"
	"github.com/corray333/backend-labs/tms/internal/dal/interfaces/isettingsrepo"
	"github.com/corray333/backend-labs/tms/internal/service/models/dispatch"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/settings"
	"github.com/corray333/backend-labs/tms/internal/service/services/codegen"
	"github.com/corray333/backend-labs/tms/internal/service/services/routesvc"
)

type reconciler interface {
	Reconcile(ctx context.Context, in routesvc.Input) (routesvc.Result, error)
}

type codeGenerator interface {
	Unique(ctx context.Context, organizationID int64, cfg settings.OrderCode, seed string) (string, error)
}

type dispatcher interface {
	RecommendFor(ctx context.Context, o *order.Order, cfg settings.Dispatch) (dispatch.Result, error)
}

// OrderService creates and updates orders together with their customer, route and children.
// The data API has no multi-entity transaction, so every write is committed on its own and
// a failure midway leaves the earlier records in place.
type OrderService struct {
	customerRepo icustomerrepo.ICustomerRepository
	routeRepo    irouterepo.IRouteRepository
	orderRepo    iorderrepo.IOrderRepository
	statusRepo   iorderrepo.IRouteStatusRepository
	settingsRepo isettingsrepo.ISettingsRepository
	outboxRepo   ioutboxrepo.IOutboxRepository

	reconciler reconciler
	codes      codeGenerator
	dispatcher dispatcher

	eventExchange string
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.customerRepo == nil || s.routeRepo == nil || s.orderRepo == nil || s.statusRepo == nil ||
		s.settingsRepo == nil || s.reconciler == nil {
		panic("order service is missing a dependency")
	}
	if s.codes == nil {
		s.codes = codegen.NewGenerator(s.orderRepo)
	}

	return s
}

// WithCustomerRepository sets the customer repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCustomerRepository(repo icustomerrepo.ICustomerRepository) option {
	return func(s *OrderService) {
		s.customerRepo = repo
	}
}

// WithRouteRepository sets the route repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRouteRepository(repo irouterepo.IRouteRepository) option {
	return func(s *OrderService) {
		s.routeRepo = repo
	}
}

// WithOrderRepository sets the order repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *OrderService) {
		s.orderRepo = repo
	}
}

// WithRouteStatusRepository sets the route status repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRouteStatusRepository(repo iorderrepo.IRouteStatusRepository) option {
	return func(s *OrderService) {
		s.statusRepo = repo
	}
}

// WithSettingsRepository sets the organization settings repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSettingsRepository(repo isettingsrepo.ISettingsRepository) option {
	return func(s *OrderService) {
		s.settingsRepo = repo
	}
}

// WithOutbox enables lifecycle events published to exchange.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOutbox(repo ioutboxrepo.IOutboxRepository, exchange string) option {
	return func(s *OrderService) {
		s.outboxRepo = repo
		s.eventExchange = exchange
	}
}

// WithReconciler sets the route reconciler.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithReconciler(r reconciler) option {
	return func(s *OrderService) {
		s.reconciler = r
	}
}

// WithCodeGenerator sets the order code generator.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCodeGenerator(g codeGenerator) option {
	return func(s *OrderService) {
		s.codes = g
	}
}

// WithDispatcher enables the dispatch pass after an order is created.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDispatcher(d dispatcher) option {
	return func(s *OrderService) {
		s.dispatcher = d
	}
}
