package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/twigate/twigate/internal/model"
)

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Invalid
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// Client is the slice of the remote client the manager needs.
type Client interface {
	Login(ctx context.Context) error
	Verify(ctx context.Context) error
	LoadCookies(blob []byte) error
	ExportCookies() ([]byte, error)
}

// Store persists the serialized session blob.
type Store interface {
	Load() ([]byte, error)
	Save(blob []byte) error
}

// Manager owns the single remote session. At most one login attempt runs
// at a time; concurrent callers awaiting authentication share the outcome
// of the in-flight attempt.
type Manager struct {
	client Client
	store  Store

	mu            sync.Mutex
	state         State
	inflight      *attempt
	reload        bool
	lastValidated time.Time
}

type attempt struct {
	done chan struct{}
	err  error
}

func New(client Client, store Store) *Manager {
	return &Manager{client: client, store: store}
}

// EnsureAuthenticated returns immediately when the cached session is
// valid. Otherwise it restores the saved session or performs a full
// login, persisting the refreshed blob on success.
func (m *Manager) EnsureAuthenticated(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Authenticated && !m.reload {
		m.mu.Unlock()
		return nil
	}
	if m.inflight != nil {
		waiting := m.inflight
		m.mu.Unlock()
		select {
		case <-waiting.done:
			return waiting.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	current := &attempt{done: make(chan struct{})}
	m.inflight = current
	m.state = Authenticating
	m.reload = false
	m.mu.Unlock()

	err := m.authenticate(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = Invalid
	} else {
		m.state = Authenticated
		m.lastValidated = time.Now().UTC()
	}
	m.inflight = nil
	m.mu.Unlock()

	current.err = err
	close(current.done)
	return err
}

func (m *Manager) authenticate(ctx context.Context) error {
	blob, err := m.store.Load()
	switch {
	case err == nil:
		if loadErr := m.client.LoadCookies(blob); loadErr != nil {
			log.Warnf("session: saved session blob unusable: %v", loadErr)
		} else if verifyErr := m.client.Verify(ctx); verifyErr != nil {
			log.Warnf("session: saved session rejected by remote: %v", verifyErr)
		} else {
			log.Infof("session: restored saved session")
			return nil
		}
	case errors.Is(err, model.ErrorNoSession):
		// first run, fall through to login
	default:
		log.Warnf("session: loading saved session: %v", err)
	}

	log.Infof("session: performing full login")
	if err := m.client.Login(ctx); err != nil {
		return fmt.Errorf("%w: %v", model.ErrorAuthentication, err)
	}

	blob, err = m.client.ExportCookies()
	if err != nil {
		// The live session is valid even if it cannot be persisted.
		log.Errorf("session: exporting session: %v", err)
		return nil
	}
	if err := m.store.Save(blob); err != nil {
		log.Errorf("session: persisting session: %v", err)
		return nil
	}
	log.Infof("session: login succeeded, session persisted")
	return nil
}

// Invalidate forces the next EnsureAuthenticated to re-login instead of
// trusting the cached session. Called by whoever observes an auth-shaped
// failure on a remote call.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Invalid
}

// Reload makes the next EnsureAuthenticated re-read the persisted blob
// before falling back to a full login (the cookie file changed on disk).
func (m *Manager) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reload = true
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Authenticated() bool {
	return m.State() == Authenticated
}

// LastValidated reports when the session last passed authentication.
func (m *Manager) LastValidated() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastValidated
}
