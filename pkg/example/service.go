package example

import (
	"context"
	"log/slog"

	"mercator-hq/callaudit/pkg/audit/capture"
)

// Component is the handler component name recorded for example operations.
const Component = "ExampleService"

// ActionCreate labels create calls in the call history.
const ActionCreate = "CREATE_EXAMPLE"

// createMaskFields are masked in create payloads on top of the configured
// defaults.
var createMaskFields = []string{"password", "token"}

// Service implements the example use cases. Every operation is audited
// through the interceptor.
type Service struct {
	repo        Repository
	interceptor *capture.Interceptor
	logger      *slog.Logger
}

// NewService creates an example service. A nil interceptor disables
// auditing.
func NewService(repo Repository, interceptor *capture.Interceptor) *Service {
	return &Service{
		repo:        repo,
		interceptor: interceptor,
		logger:      slog.Default().With("component", "example.service"),
	}
}

// Create registers a new example. A DNI that is already registered yields
// an AlreadyExistsError.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Example, error) {
	opts := s.options(ActionCreate, createMaskFields...)

	return capture.Intercept(ctx, s.interceptor, capture.Invocation{
		Component: Component,
		Operation: "create",
		Args:      []any{req},
		Options:   opts,
	}, func(ctx context.Context) (*Example, error) {
		s.logger.InfoContext(ctx, "creating example", "dni", req.DNI)

		exists, err := s.repo.ExistsByDNI(ctx, req.DNI)
		if err != nil {
			return nil, err
		}
		if exists {
			s.logger.WarnContext(ctx, "example already exists", "dni", req.DNI)
			return nil, NewAlreadyExistsError(req.DNI)
		}

		saved, err := s.repo.Save(ctx, &Example{Name: req.Name, DNI: req.DNI, Password: req.Password})
		if err != nil {
			return nil, err
		}

		s.logger.InfoContext(ctx, "example created", "id", saved.ID)
		return saved, nil
	})
}

// FindByDNI returns the example registered with dni or a NotFoundError.
func (s *Service) FindByDNI(ctx context.Context, dni string) (*Example, error) {
	return capture.Intercept(ctx, s.interceptor, capture.Invocation{
		Component: Component,
		Operation: "findByDni",
		Args:      []any{dni},
		Options:   s.options("FIND_EXAMPLE_BY_DNI"),
	}, func(ctx context.Context) (*Example, error) {
		e, err := s.repo.FindByDNI(ctx, dni)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, NewNotFoundError(dni)
		}
		return e, nil
	})
}

// List returns every registered example.
func (s *Service) List(ctx context.Context) ([]*Example, error) {
	return capture.Intercept(ctx, s.interceptor, capture.Invocation{
		Component: Component,
		Operation: "listAll",
		Options:   s.options("LIST_EXAMPLES"),
	}, func(ctx context.Context) ([]*Example, error) {
		examples, err := s.repo.FindAll(ctx)
		if err != nil {
			return nil, err
		}
		s.logger.DebugContext(ctx, "examples listed", "count", len(examples))
		return examples, nil
	})
}

// options starts from the interceptor defaults so configured capture flags
// and mask fields apply, then sets the action and extra mask fields.
func (s *Service) options(action string, maskFields ...string) capture.Options {
	opts := capture.DefaultOptions()
	if s.interceptor != nil {
		opts = s.interceptor.Defaults()
	}
	opts.Action = action
	opts.MaskFields = append(opts.MaskFields, maskFields...)
	return opts
}
