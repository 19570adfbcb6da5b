package credential

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tickerchat-go/internal/monitoring"
	"tickerchat-go/internal/runtime"
	"tickerchat-go/internal/twitch"
)

// API is the slice of the provider client the manager needs.
type API interface {
	RefreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*twitch.TokenResponse, error)
	Validate(ctx context.Context, accessToken string) (*twitch.ValidateResponse, error)
	SendChatMessage(ctx context.Context, accessToken, clientID, broadcasterID, senderID, text string) error
}

// Manager owns one identity's token lifecycle: lazy initial refresh,
// validation to resolve the own-user id, and the two recurring timers that
// keep the token fresh and detect revocation between refreshes.
type Manager struct {
	identity *Identity
	store    *Store
	api      API

	refreshEvery  time.Duration
	validateEvery time.Duration
}

// NewManager wires a manager for one identity. refreshEvery should be on the
// order of hours (below the provider token lifetime), validateEvery on the
// order of tens of minutes so revocation is caught well before the next
// refresh would.
func NewManager(identity *Identity, store *Store, api API, refreshEvery, validateEvery time.Duration) *Manager {
	return &Manager{
		identity:      identity,
		store:         store,
		api:           api,
		refreshEvery:  refreshEvery,
		validateEvery: validateEvery,
	}
}

// Name returns the identity name.
func (m *Manager) Name() string {
	return m.identity.Name
}

// UserID returns the currently resolved own-user id, empty until validated.
func (m *Manager) UserID() string {
	return m.identity.Snapshot().UserID
}

// Start brings the identity to a usable state and arms its timers. An error
// here is an unrecoverable startup condition for this identity.
func (m *Manager) Start(ctx context.Context, tasks *runtime.TaskManager) error {
	if m.identity.Snapshot().AccessToken == "" {
		if err := m.refresh(ctx); err != nil {
			return fmt.Errorf("initial token refresh for %s: %w", m.Name(), err)
		}
	}
	if err := m.validate(ctx); err != nil {
		// The stored access token may simply be stale; one refresh plus
		// revalidation decides whether the identity is startable at all.
		if rerr := m.refresh(ctx); rerr != nil {
			return fmt.Errorf("initial validation for %s: %w", m.Name(), err)
		}
		if err := m.validate(ctx); err != nil {
			return fmt.Errorf("initial validation for %s: %w", m.Name(), err)
		}
	}

	if err := tasks.StartPeriodic(
		"credential-refresh:"+m.Name(),
		"periodic OAuth token refresh",
		m.refreshEvery,
		m.refresh,
	); err != nil {
		return err
	}
	if err := tasks.StartPeriodic(
		"credential-validate:"+m.Name(),
		"periodic OAuth token validation",
		m.validateEvery,
		m.validateWithRecovery,
	); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"identity": m.Name(),
		"user_id":  m.UserID(),
	}).Info("identity started")
	return nil
}

// SendMessage posts text to this identity's destination. It never returns an
// error: every failure is logged and the call returns without effect.
func (m *Manager) SendMessage(ctx context.Context, text string) {
	if m.identity.Snapshot().UserID == "" {
		if err := m.validateWithRecovery(ctx); err != nil {
			log.WithError(err).WithField("identity", m.Name()).Error("inline validation before send failed")
		}
	}

	snap := m.identity.Snapshot()
	if snap.UserID == "" {
		monitoring.PostsTotal.WithLabelValues(m.Name(), "error").Inc()
		log.WithField("identity", m.Name()).Error("cannot send message without a resolved user id")
		return
	}

	if err := m.api.SendChatMessage(ctx, snap.AccessToken, snap.ClientID, snap.BroadcasterID, snap.UserID, text); err != nil {
		monitoring.PostsTotal.WithLabelValues(m.Name(), "error").Inc()
		log.WithError(err).WithFields(log.Fields{
			"identity":    m.Name(),
			"broadcaster": snap.BroadcasterID,
		}).Error("chat send failed")
		return
	}

	monitoring.PostsTotal.WithLabelValues(m.Name(), "success").Inc()
	log.WithFields(log.Fields{
		"identity": m.Name(),
		"text":     text,
	}).Info("message posted")
}

// refresh exchanges the refresh token for a new access token pair. A failed
// exchange leaves the in-memory tokens untouched and is retried only at the
// next timer firing.
func (m *Manager) refresh(ctx context.Context) error {
	snap := m.identity.Snapshot()

	tok, err := m.api.RefreshToken(ctx, snap.ClientID, snap.ClientSecret, snap.RefreshToken)
	if err != nil {
		monitoring.CredentialRefreshes.WithLabelValues(m.Name(), "error").Inc()
		return fmt.Errorf("refresh failed: %w", err)
	}

	m.identity.SetTokens(tok.AccessToken, tok.RefreshToken)
	monitoring.CredentialRefreshes.WithLabelValues(m.Name(), "success").Inc()

	if err := m.store.SaveTokens(ctx, m.identity.Snapshot()); err != nil {
		log.WithError(err).WithField("identity", m.Name()).Warn("failed to persist refreshed tokens")
	}
	log.WithField("identity", m.Name()).Info("token refreshed")
	return nil
}

// validate introspects the current access token and records the resolved
// user id. A changed (or first-time) user id triggers exactly one
// persistence write; a matching one triggers none.
func (m *Manager) validate(ctx context.Context) error {
	snap := m.identity.Snapshot()
	if snap.AccessToken == "" {
		monitoring.CredentialValidations.WithLabelValues(m.Name(), "error").Inc()
		return fmt.Errorf("no access token to validate")
	}

	resp, err := m.api.Validate(ctx, snap.AccessToken)
	if err != nil {
		monitoring.CredentialValidations.WithLabelValues(m.Name(), "error").Inc()
		return fmt.Errorf("validation failed: %w", err)
	}
	monitoring.CredentialValidations.WithLabelValues(m.Name(), "success").Inc()

	if m.identity.SetUserID(resp.UserID) {
		log.WithFields(log.Fields{
			"identity": m.Name(),
			"user_id":  resp.UserID,
		}).Info("resolved user id")
		if err := m.store.SaveTokens(ctx, m.identity.Snapshot()); err != nil {
			log.WithError(err).WithField("identity", m.Name()).Warn("failed to persist resolved user id")
		}
	}
	return nil
}

// validateWithRecovery is the validation-timer body: a failed validation
// forces a refresh and a second validation attempt. If that also fails the
// error propagates to the timer, which logs it; the prior token stays in
// place for the next cycle.
func (m *Manager) validateWithRecovery(ctx context.Context) error {
	err := m.validate(ctx)
	if err == nil {
		return nil
	}
	log.WithError(err).WithField("identity", m.Name()).Warn("validation failed, forcing refresh")

	if rerr := m.refresh(ctx); rerr != nil {
		return fmt.Errorf("refresh after failed validation: %w", rerr)
	}
	return m.validate(ctx)
}
