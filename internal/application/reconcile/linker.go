package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mohammadpnp/member-import/internal/infrastructure/identity"
)

type accountCreator interface {
	Enabled() bool
	CreateAccount(ctx context.Context, email, password string) identity.Result
}

type externalIDSetter interface {
	SetUserExternalAuthID(ctx context.Context, userID, externalID string) error
}

// AccountLinker registers new users with the identity provider in the
// background and stores the returned account id. Failures are logged only.
type AccountLinker struct {
	provider accountCreator
	users    externalIDSetter
	timeout  time.Duration
	log      zerolog.Logger

	wg sync.WaitGroup
}

func NewAccountLinker(provider accountCreator, users externalIDSetter, timeout time.Duration, log zerolog.Logger) *AccountLinker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AccountLinker{
		provider: provider,
		users:    users,
		timeout:  timeout,
		log:      log.With().Str("component", "account_linker").Logger(),
	}
}

// Link returns immediately. The request outlives ctx's cancellation but not the timeout.
func (l *AccountLinker) Link(ctx context.Context, userID, email string) {
	if l == nil || l.provider == nil || !l.provider.Enabled() || email == "" {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		linkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		log := l.log.With().Str("user_id", userID).Logger()
		res := l.provider.CreateAccount(linkCtx, email, uuid.NewString())
		if !res.OK() {
			log.Warn().Err(res.Err).Msg("identity provider account creation failed")
			return
		}
		if err := l.users.SetUserExternalAuthID(linkCtx, userID, res.ExternalID); err != nil {
			log.Warn().Err(err).Str("external_id", res.ExternalID).Msg("failed to store external account id")
		}
	}()
}

// Wait blocks until every pending link request has finished.
func (l *AccountLinker) Wait() {
	if l != nil {
		l.wg.Wait()
	}
}
