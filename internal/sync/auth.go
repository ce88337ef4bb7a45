package sync

import (
	"context"

	"github.com/NateEaton/mind-pwa-sub000/internal/provider"
)

// withAuthRetry runs a provider operation under the credential lifecycle
// contract: an authorization failure is retried exactly once after a
// successful token refresh. A second failure clears stored credentials and
// surfaces as AuthenticationRequired, so refresh can never loop.
func (c *Coordinator) withAuthRetry(ctx context.Context, op Op, unit string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if !provider.IsUnauthorized(err) {
		return fromProvider(op, unit, err)
	}

	c.logger.Debug("authorization failure, refreshing token", "op", string(op), "unit", unit)
	if refreshErr := c.provider.RefreshToken(ctx); refreshErr != nil {
		_ = c.provider.ClearStoredAuth()
		return newError(op, unit, KindAuthRequired, refreshErr)
	}

	err = fn(ctx)
	if err == nil {
		return nil
	}
	if provider.IsUnauthorized(err) {
		_ = c.provider.ClearStoredAuth()
		return newError(op, unit, KindAuthRequired, err)
	}
	return fromProvider(op, unit, err)
}

// ensureAuthenticated checks for a usable session and, unless the call is
// silent, falls back to the provider's interactive flow.
func (c *Coordinator) ensureAuthenticated(ctx context.Context, silent bool) error {
	if c.provider.CheckAuth(ctx) {
		return nil
	}
	if silent {
		return newError(OpAuth, "", KindAuthRequired, provider.ErrUnauthorized)
	}
	if err := c.provider.Authenticate(ctx); err != nil {
		return newError(OpAuth, "", KindAuthRequired, err)
	}
	return nil
}
