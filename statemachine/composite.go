package statemachine

import (
	"context"
	"strings"
)

// Always returns a guard that always passes.
func Always[C any]() Guard[C] {
	return func(context.Context, *C, any) (bool, string) {
		return true, ""
	}
}

// AllGuards passes when every guard passes. The first failing reason wins.
func AllGuards[C any](guards ...Guard[C]) Guard[C] {
	return func(ctx context.Context, smCtx *C, payload any) (bool, string) {
		for _, g := range guards {
			if g == nil {
				continue
			}

			if ok, reason := g(ctx, smCtx, payload); !ok {
				return false, reason
			}
		}

		return true, ""
	}
}

// AnyGuard passes when at least one guard passes. If all fail, the reasons
// are joined.
func AnyGuard[C any](guards ...Guard[C]) Guard[C] {
	return func(ctx context.Context, smCtx *C, payload any) (bool, string) {
		if len(guards) == 0 {
			return true, ""
		}

		reasons := make([]string, 0, len(guards))

		for _, g := range guards {
			if g == nil {
				return true, ""
			}

			ok, reason := g(ctx, smCtx, payload)
			if ok {
				return true, ""
			}

			reasons = append(reasons, reason)
		}

		return false, strings.Join(reasons, "; ")
	}
}

// Not inverts a guard, rejecting with reason when the inner guard passes.
func Not[C any](guard Guard[C], reason string) Guard[C] {
	return func(ctx context.Context, smCtx *C, payload any) (bool, string) {
		if ok, _ := guard(ctx, smCtx, payload); ok {
			return false, reason
		}

		return true, ""
	}
}

// Sequence runs actions in order and stops at the first error.
func Sequence[C any](actions ...Action[C]) Action[C] {
	return func(ctx context.Context, smCtx *C, payload any) error {
		for _, a := range actions {
			if a == nil {
				continue
			}

			if err := a(ctx, smCtx, payload); err != nil {
				return err
			}
		}

		return nil
	}
}

// When runs action only if cond holds for the context and payload.
func When[C any](cond func(smCtx *C, payload any) bool, action Action[C]) Action[C] {
	return func(ctx context.Context, smCtx *C, payload any) error {
		if !cond(smCtx, payload) {
			return nil
		}

		return action(ctx, smCtx, payload)
	}
}
