package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/twigate/twigate/internal/boot"
	"github.com/twigate/twigate/internal/credstore"
	"github.com/twigate/twigate/internal/model"
)

type fakeClient struct {
	mu          sync.Mutex
	loginCalls  int
	verifyCalls int
	loadedBlobs [][]byte

	loginErr   error
	verifyErr  error
	loadErr    error
	exportErr  error
	exportBlob []byte

	loginGate chan struct{}
}

func (f *fakeClient) Login(ctx context.Context) error {
	f.mu.Lock()
	f.loginCalls++
	gate := f.loginGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.loginErr
}

func (f *fakeClient) Verify(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.verifyErr
}

func (f *fakeClient) LoadCookies(blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadedBlobs = append(f.loadedBlobs, blob)
	return f.loadErr
}

func (f *fakeClient) ExportCookies() ([]byte, error) {
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	if f.exportBlob != nil {
		return f.exportBlob, nil
	}
	return []byte(`{"auth_token":"fresh"}`), nil
}

func (f *fakeClient) logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

type fakeStore struct {
	mu      sync.Mutex
	blob    []byte
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) Load() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.blob == nil {
		return nil, model.ErrorNoSession
	}
	return f.blob, nil
}

func (f *fakeStore) Save(blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.blob = blob
	f.saves++
	return nil
}

func TestRestoresSavedSession(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{}
	store := &fakeStore{blob: []byte(`{"auth_token":"saved"}`)}
	manager := New(client, store)

	assert.Nil(manager.EnsureAuthenticated(context.Background()))
	assert.Equal(Authenticated, manager.State())
	assert.Equal(0, client.logins())
	assert.Equal(1, client.verifyCalls)
	assert.Equal([]byte(`{"auth_token":"saved"}`), client.loadedBlobs[0])
	assert.False(manager.LastValidated().IsZero())
}

func TestLogsInWhenNoSavedSession(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{}
	store := &fakeStore{}
	manager := New(client, store)

	assert.Nil(manager.EnsureAuthenticated(context.Background()))
	assert.Equal(Authenticated, manager.State())
	assert.Equal(1, client.logins())
	assert.Equal(1, store.saves)
	assert.Equal([]byte(`{"auth_token":"fresh"}`), store.blob)
}

func TestLogsInWhenSavedSessionRejected(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{verifyErr: errors.New("expired")}
	store := &fakeStore{blob: []byte(`{"auth_token":"stale"}`)}
	manager := New(client, store)

	assert.Nil(manager.EnsureAuthenticated(context.Background()))
	assert.Equal(1, client.logins())
	assert.Equal(1, store.saves)
}

func TestLoginFailure(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{loginErr: errors.New("bad credentials")}
	store := &fakeStore{}
	manager := New(client, store)

	err := manager.EnsureAuthenticated(context.Background())
	assert.ErrorIs(err, model.ErrorAuthentication)
	assert.Equal(Invalid, manager.State())
	assert.False(manager.Authenticated())
}

func TestAuthenticatedFastPathSkipsRemoteCalls(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{}
	store := &fakeStore{blob: []byte(`{"auth_token":"saved"}`)}
	manager := New(client, store)

	assert.Nil(manager.EnsureAuthenticated(context.Background()))
	assert.Nil(manager.EnsureAuthenticated(context.Background()))
	assert.Equal(1, client.verifyCalls)
}

func TestInvalidateForcesRelogin(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{verifyErr: errors.New("expired")}
	store := &fakeStore{}
	manager := New(client, store)

	assert.Nil(manager.EnsureAuthenticated(context.Background()))
	assert.Equal(1, client.logins())

	manager.Invalidate()
	assert.Equal(Invalid, manager.State())

	assert.Nil(manager.EnsureAuthenticated(context.Background()))
	assert.Equal(2, client.logins())
}

func TestReloadRechecksSavedSession(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{}
	store := &fakeStore{blob: []byte(`{"auth_token":"saved"}`)}
	manager := New(client, store)

	assert.Nil(manager.EnsureAuthenticated(context.Background()))
	manager.Reload()
	assert.Nil(manager.EnsureAuthenticated(context.Background()))

	assert.Equal(2, client.verifyCalls)
	assert.Equal(0, client.logins())
}

func TestSaveFailureDoesNotFailAuthentication(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{}
	store := &fakeStore{saveErr: errors.New("disk full")}
	manager := New(client, store)

	assert.Nil(manager.EnsureAuthenticated(context.Background()))
	assert.True(manager.Authenticated())
}

func TestConcurrentCallersShareOneLogin(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{loginGate: make(chan struct{})}
	store := &fakeStore{}
	manager := New(client, store)

	const callers = 5
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			errs <- manager.EnsureAuthenticated(context.Background())
		}()
	}

	// Let the callers pile up on the single in-flight attempt.
	for client.logins() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(client.loginGate)

	for i := 0; i < callers; i++ {
		assert.Nil(<-errs)
	}
	assert.Equal(1, client.logins())
}

func TestSessionRoundTripThroughCredentialStore(t *testing.T) {
	assert := assert.New(t)

	config := &boot.Config{DataDir: t.TempDir()}
	store, err := credstore.New(config)
	assert.Nil(err)

	// First process: no saved session, full login persists the blob.
	first := &fakeClient{exportBlob: []byte(`{"auth_token":"abc","ct0":"def"}`)}
	assert.Nil(New(first, store).EnsureAuthenticated(context.Background()))
	assert.Equal(1, first.logins())

	// Fresh process: the reloaded blob is accepted without re-login.
	second := &fakeClient{}
	manager := New(second, store)
	assert.Nil(manager.EnsureAuthenticated(context.Background()))
	assert.Equal(0, second.logins())
	assert.Equal([]byte(`{"auth_token":"abc","ct0":"def"}`), second.loadedBlobs[0])
	assert.True(manager.Authenticated())
}
