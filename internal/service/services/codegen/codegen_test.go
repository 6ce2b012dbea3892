package codegen

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/settings"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name       string
		strategy   settings.CodeStrategy
		max        int
		prefixMax  int
		seed       string
		wantPrefix string
		wantLen    int
	}{
		{"customer prefix", settings.CodeStrategyCustomerSpecific, 10, 5, "ABCDEFG", "ABCDE", 10},
		{"route prefix trimmed and upper-cased", settings.CodeStrategyRouteSpecific, 8, 5, "  hcm1 ", "HCM1", 8},
		{"prefix fills whole code", settings.CodeStrategyCustomerSpecific, 3, 5, "ABCDEFG", "ABCDE", 5},
		{"random ignores seed", settings.CodeStrategyRandom, 10, 5, "ZZZZZZZ", "", 10},
		{"zero max length uses default", settings.CodeStrategyRandom, 0, 5, "", "", settings.DefaultCodeMaxLength},
	}

	rnd := rand.New(rand.NewPCG(1, 2))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := Generate(tt.strategy, tt.max, tt.prefixMax, tt.seed, rnd)
			if !strings.HasPrefix(code, tt.wantPrefix) {
				t.Errorf("code %q should start with %q", code, tt.wantPrefix)
			}
			if len(code) != tt.wantLen {
				t.Errorf("len(%q) = %d, want %d", code, len(code), tt.wantLen)
			}
			for _, r := range code[len(tt.wantPrefix):] {
				if !strings.ContainsRune(alphabet, r) {
					t.Errorf("code %q has non alphanumeric suffix rune %q", code, r)
				}
			}
		})
	}
}

type seededChecker struct {
	taken map[string]bool
	calls int
}

func (c *seededChecker) ExistsByCode(_ context.Context, _ int64, code string) (bool, error) {
	c.calls++
	return c.taken[code], nil
}

func TestUniqueSkipsTakenCodes(t *testing.T) {
	cfg := settings.OrderCode{Strategy: settings.CodeStrategyCustomerSpecific, MaxLength: 6, PrefixMaxLength: 5}

	// Replay the same source to learn the first codes it yields and mark them as taken.
	taken := map[string]bool{}
	rng := rand.New(rand.NewPCG(42, 42))
	for range 3 {
		taken[Generate(cfg.Strategy, cfg.MaxLength, cfg.PrefixMaxLength, "ACME", rng)] = true
	}

	checker := &seededChecker{taken: taken}
	g := NewGenerator(checker, WithRand(rand.New(rand.NewPCG(42, 42))))

	code, err := g.Unique(context.Background(), 1, cfg, "ACME")
	if err != nil {
		t.Fatalf("unique: %v", err)
	}
	if taken[code] {
		t.Errorf("returned taken code %q", code)
	}
	if !strings.HasPrefix(code, "ACME") {
		t.Errorf("code %q lost its prefix", code)
	}
	if checker.calls < 2 {
		t.Errorf("expected collisions to be retried, got %d checks", checker.calls)
	}
}

type alwaysTaken struct{}

func (alwaysTaken) ExistsByCode(context.Context, int64, string) (bool, error) { return true, nil }

func TestUniqueGivesUp(t *testing.T) {
	g := NewGenerator(alwaysTaken{}, WithMaxAttempts(5))

	_, err := g.Unique(context.Background(), 1, settings.OrderCode{Strategy: settings.CodeStrategyRandom, MaxLength: 4}, "")
	e, ok := errs.As(err)
	if !ok || e.Code != "ORDER_CODE_EXHAUSTED" || e.Kind != errs.KindInternal {
		t.Fatalf("expected ORDER_CODE_EXHAUSTED, got %v", err)
	}
}
