package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cyimg.org/internal/apperr"
	"cyimg.org/internal/kv"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*User)}
}

func (f *fakeUserStore) Create(_ context.Context, u *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return ErrAlreadyExists
		}
	}
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, ErrNotFound
}

func (f *fakeUserStore) FindByIdentifier(_ context.Context, identifier string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byEmail := strings.Contains(identifier, "@")
	for _, u := range f.users {
		if (byEmail && u.Email == identifier) || (!byEmail && u.Username == identifier) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeUserStore) List(_ context.Context, _ UserFilter) ([]User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeUserStore) Update(_ context.Context, id string, upd UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return ErrNotFound
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.UserType != nil {
		u.UserType = *upd.UserType
	}
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeSettings struct {
	registration bool
	ttl          time.Duration
}

func (f *fakeSettings) RegistrationEnabled(context.Context) (bool, error) {
	return f.registration, nil
}

func (f *fakeSettings) TokenTTL(context.Context) (time.Duration, bool, error) {
	return f.ttl, f.ttl > 0, nil
}

type testAuth struct {
	service *Service
	users   *fakeUserStore
	cipher  *Cipher
	kv      *kv.Mem
}

func newTestAuth(t *testing.T, opts ...ServiceOption) *testAuth {
	t.Helper()

	cipher, err := NewCipher(testCipherKey)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	tokens, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	store := kv.NewMem()
	t.Cleanup(store.Close)

	users := newFakeUserStore()
	svc, err := NewService(users, tokens, cipher, NewRevocationList(store), opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testAuth{service: svc, users: users, cipher: cipher, kv: store}
}

func (ta *testAuth) seedUser(t *testing.T, username, email, password, userType string) *User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &User{
		ID:           "id-" + username,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		UserType:     userType,
		CreatedAt:    time.Now().UTC(),
	}
	if err := ta.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (ta *testAuth) wirePassword(t *testing.T, plaintext string) string {
	t.Helper()
	wire, err := ta.cipher.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return wire
}

func TestLoginThenAuthenticateRoundTrip(t *testing.T) {
	ta := newTestAuth(t)
	ta.seedUser(t, "alice", "alice@example.com", "hunter2", RoleAdmin)
	ctx := context.Background()

	for _, identifier := range []string{"alice@example.com", "alice"} {
		token, expiresAt, err := ta.service.Login(ctx, identifier, ta.wirePassword(t, "hunter2"))
		if err != nil {
			t.Fatalf("Login(%q): %v", identifier, err)
		}
		if !expiresAt.After(time.Now()) {
			t.Fatalf("expected future expiry")
		}

		principal, raw, err := ta.service.Authenticate(ctx, "Bearer "+token)
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if raw != token {
			t.Fatalf("expected raw token to round-trip")
		}
		if principal.ID != "id-alice" || principal.Username != "alice" ||
			principal.Email != "alice@example.com" || principal.Role != RoleAdmin {
			t.Fatalf("principal does not match issued claims: %+v", principal)
		}
	}
}

func TestLoginFailureModes(t *testing.T) {
	ta := newTestAuth(t)
	ta.seedUser(t, "alice", "alice@example.com", "hunter2", RoleUser)
	ctx := context.Background()

	cases := map[string]struct {
		identifier string
		password   string
	}{
		"wrong password": {"alice@example.com", ta.wirePassword(t, "wrong")},
		"unknown user":   {"bob@example.com", ta.wirePassword(t, "hunter2")},
		"garbled wire":   {"alice@example.com", "!!!not-a-ciphertext!!!"},
	}
	for name, tc := range cases {
		_, _, err := ta.service.Login(ctx, tc.identifier, tc.password)
		if !errors.Is(err, apperr.Authentication("")) {
			t.Fatalf("%s: expected authentication error, got %v", name, err)
		}
	}

	if _, _, err := ta.service.Login(ctx, "", ""); !errors.Is(err, apperr.Validation("")) {
		t.Fatalf("expected validation error for missing fields")
	}
}

func TestLogoutRevokesStillValidToken(t *testing.T) {
	ta := newTestAuth(t)
	ta.seedUser(t, "alice", "alice@example.com", "hunter2", RoleUser)
	ctx := context.Background()

	token, _, err := ta.service.Login(ctx, "alice", ta.wirePassword(t, "hunter2"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, _, err := ta.service.Authenticate(ctx, "Bearer "+token); err != nil {
		t.Fatalf("Authenticate before logout: %v", err)
	}

	if err := ta.service.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// Signature and expiry are still valid; only the revocation entry blocks it.
	_, _, err = ta.service.Authenticate(ctx, "Bearer "+token)
	if !errors.Is(err, apperr.Authentication("")) {
		t.Fatalf("expected authentication error after logout, got %v", err)
	}
}

func TestAuthenticateFailureModesShareOneShape(t *testing.T) {
	ta := newTestAuth(t)
	ctx := context.Background()

	headers := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"empty bearer":   "Bearer ",
		"garbage token":  "Bearer not.a.token",
	}
	var messages []string
	for name, header := range headers {
		_, _, err := ta.service.Authenticate(ctx, header)
		var typed *apperr.Error
		if !errors.As(err, &typed) || typed.Type != apperr.TypeAuthentication {
			t.Fatalf("%s: expected typed authentication error, got %v", name, err)
		}
		messages = append(messages, typed.Message)
	}
	for _, msg := range messages {
		if msg != messages[0] {
			t.Fatalf("authentication failures must not reveal which check failed: %v", messages)
		}
	}
}

func TestEnsureAdmin(t *testing.T) {
	ta := newTestAuth(t)
	ta.seedUser(t, "alice", "alice@example.com", "hunter2", RoleAdmin)
	ta.seedUser(t, "bob", "bob@example.com", "hunter2", RoleUser)
	ctx := context.Background()

	adminToken, _, err := ta.service.Login(ctx, "alice", ta.wirePassword(t, "hunter2"))
	if err != nil {
		t.Fatalf("Login alice: %v", err)
	}
	userToken, _, err := ta.service.Login(ctx, "bob", ta.wirePassword(t, "hunter2"))
	if err != nil {
		t.Fatalf("Login bob: %v", err)
	}

	if _, _, err := ta.service.EnsureAdmin(ctx, "Bearer "+adminToken); err != nil {
		t.Fatalf("EnsureAdmin(admin): %v", err)
	}
	_, _, err = ta.service.EnsureAdmin(ctx, "Bearer "+userToken)
	if !errors.Is(err, apperr.Permission("")) {
		t.Fatalf("expected permission error for non-admin, got %v", err)
	}
}

func TestRegisterGateAndDuplicates(t *testing.T) {
	ctx := context.Background()

	closed := newTestAuth(t, WithSettings(&fakeSettings{registration: false}))
	err := closed.service.Register(ctx, "carol", "carol@example.com", closed.wirePassword(t, "pw"))
	if !errors.Is(err, apperr.Validation("")) {
		t.Fatalf("expected validation error while registration is disabled, got %v", err)
	}

	open := newTestAuth(t, WithSettings(&fakeSettings{registration: true}))
	if err := open.service.Register(ctx, "carol", "carol@example.com", open.wirePassword(t, "pw")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	user, err := open.users.FindByIdentifier(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("registered user not found: %v", err)
	}
	if user.UserType != RoleUser {
		t.Fatalf("self-registration must produce the user role, got %s", user.UserType)
	}
	if user.PasswordHash == "pw" {
		t.Fatalf("stored hash must not be the plaintext")
	}

	err = open.service.Register(ctx, "carol", "other@example.com", open.wirePassword(t, "pw"))
	if !errors.Is(err, apperr.Validation("")) {
		t.Fatalf("expected validation error for duplicate username, got %v", err)
	}
}

func TestLoginHonorsTTLSettingOverride(t *testing.T) {
	ta := newTestAuth(t, WithSettings(&fakeSettings{registration: true, ttl: 2 * time.Hour}))
	ta.seedUser(t, "alice", "alice@example.com", "hunter2", RoleUser)

	_, expiresAt, err := ta.service.Login(context.Background(), "alice", ta.wirePassword(t, "hunter2"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	remaining := time.Until(expiresAt)
	if remaining < 115*time.Minute || remaining > 125*time.Minute {
		t.Fatalf("expected ~2h lifetime from setting override, got %v", remaining)
	}
}

func TestUpdateAdminPasswordRevokesCallerToken(t *testing.T) {
	ta := newTestAuth(t)
	admin := ta.seedUser(t, "alice", "alice@example.com", "hunter2", RoleAdmin)
	ctx := context.Background()

	token, _, err := ta.service.Login(ctx, "alice", ta.wirePassword(t, "hunter2"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	newPassword := ta.wirePassword(t, "n3w-secret")
	err = ta.service.UpdateUser(ctx, UpdateUserInput{ID: admin.ID, Password: &newPassword}, token)
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if _, _, err := ta.service.Authenticate(ctx, "Bearer "+token); err == nil {
		t.Fatalf("caller token must be revoked after an admin password change")
	}
	if _, _, err := ta.service.Login(ctx, "alice", ta.wirePassword(t, "n3w-secret")); err != nil {
		t.Fatalf("login with the new password: %v", err)
	}
}

func TestUpdateUserValidation(t *testing.T) {
	ta := newTestAuth(t)
	ctx := context.Background()

	if err := ta.service.UpdateUser(ctx, UpdateUserInput{}, ""); !errors.Is(err, apperr.Validation("")) {
		t.Fatalf("expected validation error for missing id, got %v", err)
	}
	name := "ghost"
	err := ta.service.UpdateUser(ctx, UpdateUserInput{ID: "nope", Username: &name}, "")
	if !errors.Is(err, apperr.NotFound("")) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
