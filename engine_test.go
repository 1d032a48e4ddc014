package portalauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sbiswal/portalauth/store/memstore"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// stubDirectory answers lookups from a fixed role -> email -> password map.
type stubDirectory struct {
	users map[Role]map[string]string // role -> email -> password
	name  string
	err   error
}

func (d *stubDirectory) Lookup(_ context.Context, role Role, email, password string) (Identity, bool, error) {
	if d.err != nil {
		return Identity{}, false, d.err
	}
	pw, ok := d.users[role][email]
	if !ok || pw != password {
		return Identity{}, false, nil
	}
	name := d.name
	if name == "" {
		name = "Test User"
	}
	return Identity{ID: "u-" + email, Name: name, Email: email, Role: role}, true, nil
}

func portalDirectory() *stubDirectory {
	return &stubDirectory{users: map[Role]map[string]string{
		RoleEmployee: {"alok.hotta@company.com": "iamalok@123"},
		RoleMentor:   {"sashi@company.com": "sashi@123"},
		RoleHR:       {"admin@company.com": "admin@123"},
	}}
}

type engineFixture struct {
	engine  *Engine
	backend *memstore.Store
	dir     *stubDirectory
	clock   *testClock
	sink    *ChannelSink
}

func newFixture(t *testing.T, opts ...func(*Builder)) *engineFixture {
	t.Helper()

	f := &engineFixture{
		backend: memstore.New(),
		dir:     portalDirectory(),
		clock:   &testClock{t: time.UnixMilli(1700000000000)},
		sink:    NewChannelSink(64),
	}

	b := New().
		WithBackend(f.backend).
		WithDirectory(f.dir).
		WithClock(f.clock.now).
		WithAuditSink(f.sink).
		WithConfig(Config{Audit: AuditConfig{Enabled: true, BufferSize: 64, DropIfFull: true}})
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
	f.engine = engine
	return f
}

func employeeCreds() Credentials {
	return Credentials{Email: "alok.hotta@company.com", Password: "iamalok@123", Role: RoleEmployee}
}

func waitForAudit(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("audit event %q never arrived", eventType)
		}
	}
}

func TestSignInSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.engine.SignIn(ctx, employeeCreds())
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if !state.Authenticated || state.Role != RoleEmployee {
		t.Fatalf("state = %+v", state)
	}
	if state.SessionID == "" {
		t.Fatal("no session id")
	}
	if !f.engine.IsAuthenticated(ctx) {
		t.Fatal("engine not authenticated after sign in")
	}

	ev := waitForAudit(t, f.sink, "signin_success")
	if !ev.Success || ev.Email != "alok.hotta@company.com" || ev.Role != "employee" {
		t.Fatalf("audit event = %+v", ev)
	}

	snap := f.engine.MetricsSnapshot()
	if snap.Counters[MetricSignInSuccess] != 1 || snap.Counters[MetricSessionCreated] != 1 {
		t.Fatalf("counters = %v", snap.Counters)
	}
}

func TestSignInNormalizesEmail(t *testing.T) {
	f := newFixture(t)

	creds := employeeCreds()
	creds.Email = "  ALOK.HOTTA@company.com "
	state, err := f.engine.SignIn(context.Background(), creds)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if state.Identity.Email != "alok.hotta@company.com" {
		t.Fatalf("email = %q", state.Identity.Email)
	}
}

func TestSignInFailuresDoNotEnumerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []Credentials{
		{Email: "nobody@company.com", Password: "whatever1", Role: RoleEmployee}, // unknown email
		{Email: "alok.hotta@company.com", Password: "wrong1234", Role: RoleEmployee}, // wrong password
		{Email: "alok.hotta@company.com", Password: "iamalok@123", Role: RoleHR}, // wrong role
	}
	for _, creds := range cases {
		_, err := f.engine.SignIn(ctx, creds)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("SignIn(%+v) = %v, want ErrInvalidCredentials", creds, err)
		}
	}
	if f.engine.IsAuthenticated(ctx) {
		t.Fatal("failed sign-ins left engine authenticated")
	}
	if got := f.engine.MetricsSnapshot().Counters[MetricSignInFailure]; got != 3 {
		t.Fatalf("failure counter = %d, want 3", got)
	}
}

func TestSignInRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []Credentials{
		{Email: "", Password: "x1y2z3", Role: RoleEmployee},
		{Email: "not-an-email", Password: "x1y2z3", Role: RoleEmployee},
		{Email: "a@company.com", Password: "", Role: RoleEmployee},
		{Email: "a@company.com", Password: "x1y2z3", Role: Role("superadmin")},
	}
	for _, creds := range cases {
		_, err := f.engine.SignIn(ctx, creds)
		if !errors.Is(err, ErrRejectedInput) {
			t.Fatalf("SignIn(%+v) = %v, want ErrRejectedInput", creds, err)
		}
	}
	// Rejected input must not consume limiter attempts.
	if got := f.engine.MetricsSnapshot().Counters[MetricSignInRateLimited]; got != 0 {
		t.Fatalf("rate limited counter = %d", got)
	}
}

func TestSignInRateLimiting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := employeeCreds()
	bad.Password = "wrong1234"

	for i := 0; i < 5; i++ {
		if _, err := f.engine.SignIn(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	// Sixth attempt is blocked even with the correct password.
	if _, err := f.engine.SignIn(ctx, employeeCreds()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("blocked attempt = %v, want ErrRateLimited", err)
	}
	waitForAudit(t, f.sink, "signin_rate_limited")

	// Another slot (same email, different role) is unaffected.
	if _, err := f.engine.SignIn(ctx, Credentials{Email: "admin@company.com", Password: "admin@123", Role: RoleHR}); err != nil {
		t.Fatalf("other slot: %v", err)
	}
	if err := f.engine.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	// Past the window the slot opens again and success clears it.
	f.clock.advance(15*time.Minute + time.Millisecond)
	if _, err := f.engine.SignIn(ctx, employeeCreds()); err != nil {
		t.Fatalf("after window: %v", err)
	}
}

func TestRateLimitClearsOnSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := employeeCreds()
	bad.Password = "wrong1234"
	for i := 0; i < 4; i++ {
		f.engine.SignIn(ctx, bad)
	}
	if _, err := f.engine.SignIn(ctx, employeeCreds()); err != nil {
		t.Fatalf("success within budget: %v", err)
	}
	f.engine.SignOut(ctx)

	// A fresh budget after the successful sign-in.
	for i := 0; i < 5; i++ {
		if _, err := f.engine.SignIn(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d after reset: %v", i+1, err)
		}
	}
}

func TestDirectoryUnavailable(t *testing.T) {
	f := newFixture(t)
	f.dir.err = errors.New("ldap timeout")

	_, err := f.engine.SignIn(context.Background(), employeeCreds())
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("err = %v, want ErrDirectoryUnavailable", err)
	}
	ev := waitForAudit(t, f.sink, "storage_error")
	if ev.Error != "backend_unavailable" {
		t.Fatalf("audit error code = %q", ev.Error)
	}
}

func TestSignOutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.SignOut(ctx); err != nil {
		t.Fatalf("anonymous sign out: %v", err)
	}

	f.engine.SignIn(ctx, employeeCreds())
	if err := f.engine.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if f.engine.IsAuthenticated(ctx) {
		t.Fatal("still authenticated after sign out")
	}
	if err := f.engine.SignOut(ctx); err != nil {
		t.Fatalf("second sign out: %v", err)
	}
}

func TestSessionExpiresLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.SignIn(ctx, employeeCreds())
	f.clock.advance(24*time.Hour + time.Millisecond)

	if f.engine.IsAuthenticated(ctx) {
		t.Fatal("authenticated past expiry")
	}
	waitForAudit(t, f.sink, "session_expired")
	if got := f.engine.MetricsSnapshot().Counters[MetricSessionExpired]; got != 1 {
		t.Fatalf("expired counter = %d", got)
	}
}

func TestSignInReplacesExistingSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _ := f.engine.SignIn(ctx, employeeCreds())
	second, err := f.engine.SignIn(ctx, Credentials{Email: "sashi@company.com", Password: "sashi@123", Role: RoleMentor})
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if second.SessionID == first.SessionID {
		t.Fatal("session id reused across sign-ins")
	}
	state := f.engine.State(ctx)
	if state.Role != RoleMentor || state.Identity.Email != "sashi@company.com" {
		t.Fatalf("state = %+v", state)
	}
}

func TestBuildAdoptsPersistedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.engine.SignIn(ctx, employeeCreds())
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	f.engine.Close()

	// A second engine over the same backend picks the session back up.
	sink := NewChannelSink(16)
	engine2, err := New().
		WithBackend(f.backend).
		WithDirectory(f.dir).
		WithClock(f.clock.now).
		WithAuditSink(sink).
		WithConfig(Config{Audit: AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}}).
		Build()
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer engine2.Close()

	got := engine2.State(ctx)
	if !got.Authenticated || got.SessionID != state.SessionID {
		t.Fatalf("adopted state = %+v, want session %q", got, state.SessionID)
	}
	waitForAudit(t, sink, "session_adopted")
	if engine2.MetricsSnapshot().Counters[MetricSessionAdopted] != 1 {
		t.Fatal("adoption not counted")
	}
}

func TestBuildWithExpiredSessionStaysAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.SignIn(ctx, employeeCreds())
	f.engine.Close()
	f.clock.advance(25 * time.Hour)

	engine2, err := New().
		WithBackend(f.backend).
		WithDirectory(f.dir).
		WithClock(f.clock.now).
		Build()
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer engine2.Close()

	if engine2.IsAuthenticated(ctx) {
		t.Fatal("expired session adopted")
	}
}

func TestUpdateIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, _ := f.engine.SignIn(ctx, employeeCreds())
	f.clock.advance(12 * time.Hour)

	name := "Alok <b>Hotta</b>"
	got, err := f.engine.UpdateIdentity(ctx, IdentityPatch{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Alok bHotta/b" {
		t.Fatalf("name not sanitized: %q", got.Name)
	}

	// Update restarts the TTL: 12h after the original expiry would have
	// passed 24h total, but the session is still live.
	f.clock.advance(13 * time.Hour)
	state := f.engine.State(ctx)
	if !state.Authenticated {
		t.Fatal("session expired despite update refresh")
	}
	if state.SessionID != before.SessionID {
		t.Fatal("update changed the session id")
	}
	waitForAudit(t, f.sink, "identity_updated")
}

func TestUpdateIdentityRequiresSession(t *testing.T) {
	f := newFixture(t)

	name := "Nobody"
	_, err := f.engine.UpdateIdentity(context.Background(), IdentityPatch{Name: &name})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestUpdateIdentityRejectsBadEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.SignIn(ctx, employeeCreds())
	bad := "nonsense"
	if _, err := f.engine.UpdateIdentity(ctx, IdentityPatch{Email: &bad}); !errors.Is(err, ErrRejectedInput) {
		t.Fatalf("err = %v, want ErrRejectedInput", err)
	}
	// The persisted identity is untouched.
	if got := f.engine.State(ctx).Identity.Email; got != "alok.hotta@company.com" {
		t.Fatalf("email = %q", got)
	}
}

func TestStorageLossReadsAsSignedOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.SignIn(ctx, employeeCreds())
	f.backend.Close()

	if f.engine.IsAuthenticated(ctx) {
		t.Fatal("authenticated with storage gone")
	}
}

func TestBuilderValidation(t *testing.T) {
	if _, err := New().WithDirectory(portalDirectory()).Build(); err == nil {
		t.Fatal("build without backend succeeded")
	}
	if _, err := New().WithBackend(memstore.New()).Build(); err == nil {
		t.Fatal("build without directory succeeded")
	}

	b := New().WithBackend(memstore.New()).WithDirectory(portalDirectory())
	if _, err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("builder reuse succeeded")
	}

	bad := Config{Session: SessionConfig{TTL: -time.Hour}}
	if _, err := New().WithBackend(memstore.New()).WithDirectory(portalDirectory()).WithConfig(bad).Build(); err == nil {
		t.Fatal("negative TTL accepted")
	}
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	if _, err := e.SignIn(context.Background(), employeeCreds()); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("nil engine sign in = %v", err)
	}
	if err := e.SignOut(context.Background()); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("nil engine sign out = %v", err)
	}
	if e.IsAuthenticated(context.Background()) {
		t.Fatal("nil engine authenticated")
	}
	e.Close()
}

func TestSignInSanitizesDirectoryIdentity(t *testing.T) {
	f := newFixture(t)
	f.dir.name = "Alok <img src=x onerror=alert(1)>"
	ctx := context.Background()

	state, err := f.engine.SignIn(ctx, employeeCreds())
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if state.Identity.Name != "Alok img src=x alert(1)" {
		t.Fatalf("persisted name = %q", state.Identity.Name)
	}
	// The persisted record is scrubbed too, not just the returned state.
	if got := f.engine.State(ctx).Identity.Name; got != "Alok img src=x alert(1)" {
		t.Fatalf("stored name = %q", got)
	}
}

func TestConcurrentIdentityUpdatesCompose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.SignIn(ctx, employeeCreds()); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	name := "Renamed User"
	email := "new.address@company.com"

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := f.engine.UpdateIdentity(ctx, IdentityPatch{Name: &name}); err != nil {
			t.Errorf("name update: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := f.engine.UpdateIdentity(ctx, IdentityPatch{Email: &email}); err != nil {
			t.Errorf("email update: %v", err)
		}
	}()
	wg.Wait()

	got := f.engine.State(ctx).Identity
	if got.Name != "Renamed User" || got.Email != "new.address@company.com" {
		t.Fatalf("updates did not compose: %+v", got)
	}
}

func TestSignOutSucceedsOnStorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.SignIn(ctx, employeeCreds()); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	f.backend.Close()

	if err := f.engine.SignOut(ctx); err != nil {
		t.Fatalf("sign out with dead storage: %v", err)
	}
	if f.engine.IsAuthenticated(ctx) {
		t.Fatal("still authenticated after sign out")
	}
	waitForAudit(t, f.sink, "storage_error")
	waitForAudit(t, f.sink, "signout")
}
