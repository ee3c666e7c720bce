package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/miroir/internal/client/docstore"
	"github.com/dmitrijs2005/miroir/internal/client/gate"
	"github.com/dmitrijs2005/miroir/internal/client/models"
	"github.com/dmitrijs2005/miroir/internal/client/notify"
	"github.com/dmitrijs2005/miroir/internal/client/profiles"
	"github.com/dmitrijs2005/miroir/internal/client/session"
	"github.com/dmitrijs2005/miroir/internal/logging"
	"github.com/stretchr/testify/require"
)

// ------------ helpers ------------

// readerFromLines feeds each argument as one newline terminated line.
func readerFromLines(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

type testEnv struct {
	app      *App
	out      *bytes.Buffer
	provider *fakeProvider
	verifier *fakeVerifier
	photos   *fakePhotos
	profiles *profiles.Service
	hub      *notify.Hub
	store    *session.Store
}

// newTestEnv builds an App over a real session store, gate, hub and
// profile service; only the remote collaborators are faked.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	provider := newFakeProvider()
	profs := profiles.NewService(docstore.NewMemoryStore())
	store := session.NewStore(provider, newFakeLocal(), session.WithProfiles(profs))
	hub := notify.NewHub()
	verifier := &fakeVerifier{}
	photos := &fakePhotos{url: "https://photos.example/p.jpg"}

	app := NewApp(Deps{
		Session:  store,
		Verifier: verifier,
		Profiles: profs,
		Photos:   photos,
		Hub:      hub,
		Gate:     gate.Default(),
		Logger:   logging.NewDiscardLogger(),
	})
	out := &bytes.Buffer{}
	app.out = out
	app.reader = readerFromLines()

	require.NoError(t, store.Initialize(context.Background()))

	return &testEnv{
		app:      app,
		out:      out,
		provider: provider,
		verifier: verifier,
		photos:   photos,
		profiles: profs,
		hub:      hub,
		store:    store,
	}
}

// signIn registers an account at the provider and signs in through the store.
func (e *testEnv) signIn(t *testing.T, email string) *models.Identity {
	t.Helper()
	e.provider.addAccount(email, "pw")
	id, err := e.store.SignIn(context.Background(), email, "pw")
	require.NoError(t, err)
	e.out.Reset()
	return id
}

// ------------ fakes ------------

var errBadCredentials = errors.New("bad credentials")

type fakeProvider struct {
	mu        sync.Mutex
	passwords map[string]string
	createErr error
	resets    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{passwords: map[string]string{}}
}

func (f *fakeProvider) addAccount(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords[email] = password
}

func (f *fakeProvider) CreateAccount(_ context.Context, email, password string) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return models.Account{}, f.createErr
	}
	f.passwords[email] = password
	return models.Account{UID: "uid-" + email, Email: email}, nil
}

func (f *fakeProvider) VerifyCredentials(_ context.Context, email, password string) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords[email]; !ok || pw != password {
		return models.Account{}, errBadCredentials
	}
	return models.Account{UID: "uid-" + email, Email: email}, nil
}

func (f *fakeProvider) EndSession(context.Context) error { return nil }

func (f *fakeProvider) RequestPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email)
	return nil
}

type fakeLocal struct {
	mu sync.Mutex
	m  map[string]string
}

func newFakeLocal() *fakeLocal { return &fakeLocal{m: map[string]string{}} }

func (f *fakeLocal) Read(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.m[key]
	return v, ok, nil
}

func (f *fakeLocal) Write(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[key] = value
	return nil
}

func (f *fakeLocal) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, key)
	return nil
}

type fakeVerifier struct {
	sent    []string
	sendErr error

	verifyEmail string
	verifyCode  string
	verifyOK    bool
	verifyErr   error
}

func (f *fakeVerifier) Send(_ context.Context, email string) error {
	f.sent = append(f.sent, email)
	return f.sendErr
}

func (f *fakeVerifier) Verify(_ context.Context, email, code string) (bool, error) {
	f.verifyEmail, f.verifyCode = email, code
	return f.verifyOK, f.verifyErr
}

type fakePhotos struct {
	uid, path string
	url       string
	err       error
}

func (f *fakePhotos) Upload(_ context.Context, uid, path string) (string, error) {
	f.uid, f.path = uid, path
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (f *fakePinger) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakePinger) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
