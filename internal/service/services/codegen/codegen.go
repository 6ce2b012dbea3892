package codegen

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/settings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultMaxAttempts bounds the generate and check loop.
const DefaultMaxAttempts = 100

// Generate builds a code of maxLength characters. CUSTOMER_SPECIFIC and ROUTE_SPECIFIC codes start with
// the upper-cased, trimmed seed cut to prefixMaxLength; the rest is random alphanumerics.
func Generate(strategy settings.CodeStrategy, maxLength, prefixMaxLength int, seed string, rnd *rand.Rand) string {
	if maxLength <= 0 {
		maxLength = settings.DefaultCodeMaxLength
	}

	var prefix string
	switch strategy {
	case settings.CodeStrategyCustomerSpecific, settings.CodeStrategyRouteSpecific:
		prefix = Prefix(seed, prefixMaxLength)
	}

	suffixLength := max(maxLength-len([]rune(prefix)), 0)

	var b strings.Builder
	b.Grow(len(prefix) + suffixLength)
	b.WriteString(prefix)
	for range suffixLength {
		b.WriteByte(alphabet[randIntN(rnd, len(alphabet))])
	}

	return b.String()
}

// Prefix upper-cases the trimmed seed and cuts it to prefixMaxLength runes.
func Prefix(seed string, prefixMaxLength int) string {
	r := []rune(strings.ToUpper(strings.TrimSpace(seed)))
	if prefixMaxLength < 0 {
		prefixMaxLength = 0
	}
	if len(r) > prefixMaxLength {
		r = r[:prefixMaxLength]
	}

	return string(r)
}

func randIntN(rnd *rand.Rand, n int) int {
	if rnd == nil {
		return rand.IntN(n)
	}

	return rnd.IntN(n)
}

// codeChecker reports whether a code is taken in the organization.
type codeChecker interface {
	ExistsByCode(ctx context.Context, organizationID int64, code string) (bool, error)
}

// Generator produces codes that are free at the time of the check.
// Two concurrent requests may still pick the same code.
type Generator struct {
	checker     codeChecker
	maxAttempts int
	rnd         *rand.Rand
}

type option func(*Generator)

// NewGenerator creates a Generator that checks candidates against checker.
func NewGenerator(checker codeChecker, opts ...option) *Generator {
	g := &Generator{
		checker:     checker,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// WithMaxAttempts sets how many candidates are tried before giving up.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMaxAttempts(n int) option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRand sets the random source, mostly for tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRand(rnd *rand.Rand) option {
	return func(g *Generator) {
		g.rnd = rnd
	}
}

// Unique generates codes until one is not taken in the organization.
func (g *Generator) Unique(
	ctx context.Context,
	organizationID int64,
	cfg settings.OrderCode,
	seed string,
) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		code := Generate(cfg.Strategy, cfg.MaxLength, cfg.PrefixMaxLength, seed, g.rnd)

		exists, err := g.checker.ExistsByCode(ctx, organizationID, code)
		if err != nil {
			return "", errs.Internal("ORDER_CODE_CHECK_FAILED", err)
		}
		if !exists {
			return code, nil
		}

		slog.DebugContext(ctx, "order code collision", "organization_id", organizationID, "attempt", attempt)
	}

	return "", errs.Internal(
		"ORDER_CODE_EXHAUSTED",
		fmt.Errorf("no free order code after %d attempts", g.maxAttempts),
	)
}
