package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/miroir/internal/client/models"
	"github.com/dmitrijs2005/miroir/internal/common"
)

var errRejected = errors.New("invalid credentials")

type fakeProvider struct {
	mu         sync.Mutex
	accounts   map[string]string // email -> uid
	requestIDs []string
	ended      int
	resets     []string

	createErr error
	endErr    error
	resetErr  error
	emptyUID  bool

	// when set, VerifyCredentials waits for it (or ctx) before answering
	block   chan struct{}
	entered chan struct{}

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]string{}}
}

func (f *fakeProvider) track(ctx context.Context) func() {
	n := f.inFlight.Add(1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	f.mu.Lock()
	f.requestIDs = append(f.requestIDs, common.RequestID(ctx))
	f.mu.Unlock()
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeProvider) CreateAccount(ctx context.Context, email, _ string) (models.Account, error) {
	defer f.track(ctx)()
	if f.createErr != nil {
		return models.Account{}, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	uid := fmt.Sprintf("uid-%d", len(f.accounts)+1)
	f.accounts[email] = uid
	if f.emptyUID {
		uid = ""
	}
	return models.Account{UID: uid, Email: email}, nil
}

func (f *fakeProvider) VerifyCredentials(ctx context.Context, email, password string) (models.Account, error) {
	defer f.track(ctx)()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return models.Account{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.accounts[email]
	if !ok || password == "wrong" {
		return models.Account{}, errRejected
	}
	return models.Account{UID: uid, Email: email}, nil
}

func (f *fakeProvider) EndSession(ctx context.Context) error {
	defer f.track(ctx)()
	f.mu.Lock()
	f.ended++
	f.mu.Unlock()
	return f.endErr
}

func (f *fakeProvider) RequestPasswordReset(ctx context.Context, email string) error {
	defer f.track(ctx)()
	if f.resetErr != nil {
		return f.resetErr
	}
	f.mu.Lock()
	f.resets = append(f.resets, email)
	f.mu.Unlock()
	return nil
}

type fakeLocal struct {
	mu       sync.Mutex
	data     map[string]string
	reads    atomic.Int32
	readErr  error
	writeErr error
	delErr   error

	readStarted chan struct{}
	readRelease chan struct{}
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{data: map[string]string{}}
}

func (f *fakeLocal) Read(_ context.Context, key string) (string, bool, error) {
	f.reads.Add(1)
	if f.readStarted != nil {
		f.readStarted <- struct{}{}
		<-f.readRelease
	}
	if f.readErr != nil {
		return "", false, f.readErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeLocal) Write(_ context.Context, key, value string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeLocal) Delete(_ context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeLocal) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

type fakeProfiles struct {
	mu      sync.Mutex
	docs    map[string]*models.Identity
	updates []models.ProfileUpdate
	err     error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{docs: map[string]*models.Identity{}}
}

func (f *fakeProfiles) Create(_ context.Context, id *models.Identity) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id.UID] = id.Clone()
	return nil
}

func (f *fakeProfiles) Load(_ context.Context, uid string) (*models.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.docs[uid]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return id.Clone(), nil
}

func (f *fakeProfiles) Update(_ context.Context, uid string, u models.ProfileUpdate) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.docs[uid]
	if !ok {
		return common.ErrorNotFound
	}
	f.docs[uid] = id.Apply(u)
	f.updates = append(f.updates, u)
	return nil
}
