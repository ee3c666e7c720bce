// Package session holds the identity of the signed-in user for the running
// client. Store is the single source of truth for "who is signed in": it
// delegates credentials to the identity provider, persists the identity in
// the local store so it survives restarts, and tells observers about every
// change.
//
// Mutating operations are serialized: each one holds a single-slot
// semaphore from start to finish, so two rapid sign-ins cannot race on which
// identity becomes current.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/miroir/internal/client/gate"
	"github.com/dmitrijs2005/miroir/internal/client/models"
	"github.com/dmitrijs2005/miroir/internal/common"
	"github.com/dmitrijs2005/miroir/internal/logging"
)

// StorageKey is the local store key holding the persisted identity.
const StorageKey = "miroir_user"

// DefaultCallTimeout bounds each collaborator call.
const DefaultCallTimeout = 10 * time.Second

// IdentityProvider verifies credentials and owns accounts.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string) (models.Account, error)
	VerifyCredentials(ctx context.Context, email, password string) (models.Account, error)
	EndSession(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
}

// LocalStore is durable key/value storage on this device.
type LocalStore interface {
	Read(ctx context.Context, key string) (string, bool, error)
	Write(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ProfileStore keeps the remote profile document of an identity.
type ProfileStore interface {
	Create(ctx context.Context, id *models.Identity) error
	Load(ctx context.Context, uid string) (*models.Identity, error)
	Update(ctx context.Context, uid string, u models.ProfileUpdate) error
}

// State is what observers and the gate see.
type State struct {
	Identity *models.Identity
}

func (s State) SignedIn() bool {
	return s.Identity != nil
}

// Capabilities is the input the access gate decides on.
func (s State) Capabilities() gate.Capabilities {
	if s.Identity == nil {
		return gate.Capabilities{}
	}
	return gate.Capabilities{SignedIn: true, Tier: s.Identity.Tier}
}

// Observer is called synchronously after every state change, while the
// mutation slot is still held. It must not call mutating Store methods on
// the same goroutine.
type Observer func(State)

type Store struct {
	provider IdentityProvider
	local    LocalStore
	profiles ProfileStore
	logger   logging.Logger
	timeout  time.Duration
	newUID   func() string

	sem  chan struct{}
	init singleflight.Group

	mu      sync.RWMutex
	current *models.Identity
	ready   bool

	obsMu     sync.Mutex
	observers []*observerEntry
	nextToken uint64
}

type Option func(*Store)

// WithProfiles enables profile document writes and loads.
func WithProfiles(p ProfileStore) Option {
	return func(s *Store) { s.profiles = p }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithCallTimeout overrides DefaultCallTimeout. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func NewStore(provider IdentityProvider, local LocalStore, opts ...Option) *Store {
	s := &Store{
		provider: provider,
		local:    local,
		logger:   logging.NewDiscardLogger(),
		timeout:  DefaultCallTimeout,
		newUID:   func() string { return uuid.Must(uuid.NewV7()).String() },
		sem:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads the persisted identity. Absent or malformed data leaves
// the store signed out without error; a read failure leaves it signed out
// and returns an error wrapping common.ErrStorage. Concurrent callers share
// one load.
func (s *Store) Initialize(ctx context.Context) error {
	_, err, _ := s.init.Do("initialize", func() (any, error) {
		return nil, s.initialize(ctx)
	})
	return err
}

func (s *Store) initialize(ctx context.Context) error {
	ctx, log := s.begin(ctx, "initialize")
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	defer func() {
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
	}()

	callCtx, cancel := s.bound(ctx)
	raw, ok, err := s.local.Read(callCtx, StorageKey)
	cancel()
	if err != nil {
		log.Error(ctx, "read persisted identity", "error", err)
		s.commit(nil)
		return fmt.Errorf("%w: read persisted identity: %w", common.ErrStorage, err)
	}
	if !ok {
		s.commit(nil)
		return nil
	}

	var id models.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || !id.Valid() {
		log.Warn(ctx, "ignoring malformed persisted identity", "error", err)
		s.commit(nil)
		return nil
	}

	log.Info(ctx, "identity restored", "uid", id.UID)
	s.commit(&id)
	return nil
}

// SignUp creates an account, persists the new identity and makes it current.
func (s *Store) SignUp(ctx context.Context, email, password string, profile models.Profile) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	ctx, log := s.begin(ctx, "sign_up")
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	callCtx, cancel := s.bound(ctx)
	acc, err := s.provider.CreateAccount(callCtx, email, password)
	cancel()
	if err != nil {
		log.Warn(ctx, "account creation rejected", "email", email, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrAuth, err)
	}

	uid := acc.UID
	if uid == "" {
		uid = s.newUID()
		log.Warn(ctx, "provider returned no uid, generated one", "uid", uid)
	}
	id := &models.Identity{UID: uid, Email: email}
	if acc.Email != "" {
		id.Email = acc.Email
	}
	id.MergeProfile(profile)

	if err := s.persist(ctx, id); err != nil {
		log.Error(ctx, "persist identity", "error", err)
		return nil, err
	}

	if s.profiles != nil {
		callCtx, cancel := s.bound(ctx)
		if err := s.profiles.Create(callCtx, id); err != nil {
			log.Warn(ctx, "profile document not created", "uid", uid, "error", err)
		}
		cancel()
	}

	log.Info(ctx, "signed up", "uid", uid)
	s.commit(id)
	return id.Clone(), nil
}

// SignIn verifies credentials with the provider and makes the resolved
// identity current. Profile fields come from the profile document when one
// exists.
func (s *Store) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	ctx, log := s.begin(ctx, "sign_in")
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	callCtx, cancel := s.bound(ctx)
	acc, err := s.provider.VerifyCredentials(callCtx, email, password)
	cancel()
	if err != nil {
		log.Warn(ctx, "credentials rejected", "email", email, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrAuth, err)
	}
	if acc.UID == "" {
		return nil, fmt.Errorf("%w: provider did not resolve an account", common.ErrAuth)
	}

	id := &models.Identity{UID: acc.UID, Email: email}
	if acc.Email != "" {
		id.Email = acc.Email
	}
	s.mergeProfileDocument(ctx, log, id)

	if err := s.persist(ctx, id); err != nil {
		log.Error(ctx, "persist identity", "error", err)
		return nil, err
	}

	log.Info(ctx, "signed in", "uid", id.UID)
	s.commit(id)
	return id.Clone(), nil
}

func (s *Store) mergeProfileDocument(ctx context.Context, log logging.Logger, id *models.Identity) {
	if s.profiles == nil {
		return
	}
	callCtx, cancel := s.bound(ctx)
	defer cancel()

	doc, err := s.profiles.Load(callCtx, id.UID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		log.Debug(ctx, "no profile document", "uid", id.UID)
	case err != nil:
		log.Warn(ctx, "profile document not loaded", "uid", id.UID, "error", err)
	default:
		id.MergeProfile(doc.Profile)
		id.PhotoURL = doc.PhotoURL
		id.Tier = doc.Tier
	}
}

// SignOut ends the provider session and forgets the identity. A provider
// failure is logged and does not stop the local sign out. If the persisted
// entry cannot be removed the identity stays current and the error wraps
// both common.ErrAuth and common.ErrStorage.
func (s *Store) SignOut(ctx context.Context) error {
	ctx, log := s.begin(ctx, "sign_out")
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	callCtx, cancel := s.bound(ctx)
	if err := s.provider.EndSession(callCtx); err != nil {
		log.Warn(ctx, "provider session not ended", "error", err)
	}
	cancel()

	callCtx, cancel = s.bound(ctx)
	err := s.local.Delete(callCtx, StorageKey)
	cancel()
	if err != nil {
		log.Error(ctx, "delete persisted identity", "error", err)
		return fmt.Errorf("%w: %w: delete persisted identity: %w", common.ErrAuth, common.ErrStorage, err)
	}

	if s.Current() == nil {
		return nil
	}
	log.Info(ctx, "signed out")
	s.commit(nil)
	return nil
}

// ResetPassword asks the provider to send a reset link.
func (s *Store) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrValidation)
	}

	ctx, log := s.begin(ctx, "reset_password")
	callCtx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.provider.RequestPasswordReset(callCtx, email); err != nil {
		log.Warn(ctx, "password reset rejected", "email", email, "error", err)
		return fmt.Errorf("%w: %w", common.ErrAuth, err)
	}
	log.Info(ctx, "password reset requested", "email", email)
	return nil
}

// UpdateProfile merges u into the current identity and re-persists it.
func (s *Store) UpdateProfile(ctx context.Context, u models.ProfileUpdate) (*models.Identity, error) {
	ctx, log := s.begin(ctx, "update_profile")
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	cur := s.Current()
	if cur == nil {
		return nil, common.ErrNotSignedIn
	}
	if u.Empty() {
		return cur, nil
	}

	next := cur.Apply(u)
	if err := s.persist(ctx, next); err != nil {
		log.Error(ctx, "persist identity", "error", err)
		return nil, err
	}

	if s.profiles != nil {
		callCtx, cancel := s.bound(ctx)
		err := s.profiles.Update(callCtx, next.UID, u)
		if errors.Is(err, common.ErrorNotFound) {
			err = s.profiles.Create(callCtx, next)
		}
		cancel()
		if err != nil {
			log.Warn(ctx, "profile document not updated", "uid", next.UID, "error", err)
		}
	}

	log.Info(ctx, "profile updated", "uid", next.UID)
	s.commit(next)
	return next.Clone(), nil
}

// Current returns a copy of the current identity, nil when signed out.
func (s *Store) Current() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *Store) State() State {
	return State{Identity: s.Current()}
}

// Ready reports whether Initialize has completed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Store) persist(ctx context.Context, id *models.Identity) error {
	b, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("%w: encode identity: %w", common.ErrStorage, err)
	}
	callCtx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.local.Write(callCtx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("%w: write identity: %w", common.ErrStorage, err)
	}
	return nil
}

// commit swaps the current identity and notifies observers. Callers hold
// the mutation slot.
func (s *Store) commit(id *models.Identity) {
	s.mu.Lock()
	s.current = id.Clone()
	s.mu.Unlock()
	s.notify(State{Identity: id.Clone()})
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.sem
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// begin tags the operation with a request id, forwarded to collaborators.
func (s *Store) begin(ctx context.Context, op string) (context.Context, logging.Logger) {
	id := common.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = common.WithRequestID(ctx, id)
	}
	return ctx, s.logger.With("op", op, "request_id", id)
}
