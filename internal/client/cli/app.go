package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/miroir/internal/client/gate"
	"github.com/dmitrijs2005/miroir/internal/client/models"
	"github.com/dmitrijs2005/miroir/internal/client/notify"
	"github.com/dmitrijs2005/miroir/internal/client/profiles"
	"github.com/dmitrijs2005/miroir/internal/client/session"
	"github.com/dmitrijs2005/miroir/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Session is the part of session.Store the CLI drives.
type Session interface {
	Initialize(ctx context.Context) error
	SignUp(ctx context.Context, email, password string, profile models.Profile) (*models.Identity, error)
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, u models.ProfileUpdate) (*models.Identity, error)
	Current() *models.Identity
	State() session.State
	Subscribe(fn session.Observer) *session.Subscription
}

// Verifier issues and checks email verification codes.
type Verifier interface {
	Send(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (bool, error)
}

// Profiles reads profile documents and records perceptions.
type Profiles interface {
	Get(ctx context.Context, uid string) (*profiles.Document, error)
	AddPerception(ctx context.Context, uid string, p profiles.Perception) (profiles.Stats, error)
}

// Photos uploads profile photos and returns a shareable link.
type Photos interface {
	Upload(ctx context.Context, uid, path string) (string, error)
}

// Pinger probes the identity provider.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services an App is built from. Photos and Pinger are
// optional.
type Deps struct {
	Session      Session
	Verifier     Verifier
	Profiles     Profiles
	Photos       Photos
	Pinger       Pinger
	Hub          *notify.Hub
	Gate         *gate.Gate
	Logger       logging.Logger
	PingInterval time.Duration
}

type App struct {
	session      Session
	verifier     Verifier
	profiles     Profiles
	photos       Photos
	pinger       Pinger
	hub          *notify.Hub
	gate         *gate.Gate
	logger       logging.Logger
	pingInterval time.Duration

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	mu   sync.Mutex
	page string
	mode Mode
	// uid last seen by the session observer
	uid string

	unread atomic.Int64
}

func NewApp(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &App{
		session:      d.Session,
		verifier:     d.Verifier,
		profiles:     d.Profiles,
		photos:       d.Photos,
		pinger:       d.Pinger,
		hub:          d.Hub,
		gate:         d.Gate,
		logger:       logger,
		pingInterval: d.PingInterval,
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		now:          time.Now,
		page:         "/",
	}
}

// Run restores the persisted session, starts the connectivity watcher and
// blocks in the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	if err := a.session.Initialize(ctx); err != nil {
		a.logger.Warn(ctx, "session not restored", "error", err)
		a.println("Could not restore the previous session:", describe(err))
	}

	stop := a.watch()
	defer stop()

	go a.StartOnlineStatusWatcher(ctx, a.pingInterval)

	a.println("Welcome to Miroir (type 'help' for commands)")
	if err := a.Open(ctx, "/"); err != nil {
		a.println("Error:", describe(err))
	}
	runREPL(ctx, a, a.status, a.reader)
}

// watch subscribes the badge and the welcome notifications. The returned
// func undoes both subscriptions.
func (a *App) watch() func() {
	if id := a.session.Current(); id != nil {
		a.mu.Lock()
		a.uid = id.UID
		a.mu.Unlock()
	}
	a.unread.Store(int64(a.hub.UnreadCount()))

	hubSub := a.hub.Subscribe(a.onNotifications)
	sessSub := a.session.Subscribe(a.onSession)
	return func() {
		sessSub.Close()
		hubSub.Close()
	}
}

func (a *App) onNotifications(list []notify.Notification) {
	var n int64
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	a.unread.Store(n)
}

// onSession pushes a SYSTEM notification whenever a different identity
// becomes current.
func (a *App) onSession(st session.State) {
	a.mu.Lock()
	prev := a.uid
	a.uid = ""
	if st.Identity != nil {
		a.uid = st.Identity.UID
	}
	a.mu.Unlock()

	if st.Identity == nil || st.Identity.UID == prev {
		return
	}
	a.hub.Add(notify.Draft{
		Kind:    notify.KindSystem,
		Message: fmt.Sprintf("Bienvenue %s !", st.Identity.DisplayName()),
	})
}

func (a *App) isLoggedIn() bool {
	return a.session.Current() != nil
}

func (a *App) currentPage() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.page
}

func (a *App) setPage(p string) {
	a.mu.Lock()
	a.page = p
	a.mu.Unlock()
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) getMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// status renders the prompt: "email /page online [2 unread]".
func (a *App) status() string {
	var parts []string
	if id := a.session.Current(); id != nil {
		parts = append(parts, id.Email)
	}
	parts = append(parts, a.currentPage())
	if m := a.getMode(); m != "" {
		parts = append(parts, string(m))
	}
	if n := a.unread.Load(); n > 0 {
		parts = append(parts, fmt.Sprintf("[%d unread]", n))
	}
	return strings.Join(parts, " ")
}

// StartOnlineStatusWatcher pings the provider every interval and flips the
// mode shown in the prompt. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if a.pinger == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.pinger.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
