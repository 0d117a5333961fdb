package mem

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cyimg.org/internal/auth"
	"cyimg.org/internal/settings"
)

// Store is the demo-mode backend: users and settings in process memory.
type Store struct {
	mu       sync.RWMutex
	users    map[string]auth.User
	settings map[string]settings.Setting
	order    []string
}

var (
	_ auth.UserStore = (*Store)(nil)
	_ settings.Store = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:    make(map[string]auth.User),
		settings: make(map[string]settings.Setting),
	}
}

// SeedSettings loads the default settings rows, replacing any existing ones.
func (s *Store) SeedSettings(rows []settings.Setting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.settings[row.Key] = row
	}
}

func (s *Store) Create(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return auth.ErrAlreadyExists
		}
	}
	s.users[u.ID] = *u
	s.order = append(s.order, u.ID)
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &u, nil
}

func (s *Store) FindByIdentifier(_ context.Context, identifier string) (*auth.User, error) {
	byEmail := strings.Contains(identifier, "@")
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if byEmail && u.Email == identifier {
			return &u, nil
		}
		if !byEmail && u.Username == identifier {
			return &u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *Store) List(_ context.Context, filter auth.UserFilter) ([]auth.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []auth.User
	for _, id := range s.order {
		u, ok := s.users[id]
		if !ok {
			continue
		}
		if filter.Username != "" && !strings.Contains(u.Username, filter.Username) {
			continue
		}
		if filter.Email != "" && !strings.Contains(u.Email, filter.Email) {
			continue
		}
		matched = append(matched, u)
	}
	// Newest first, matching the SQL backend.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (filter.Page - 1) * filter.PerPage
	if start >= total {
		return nil, total, nil
	}
	end := start + filter.PerPage
	if end > total {
		end = total
	}
	page := make([]auth.User, end-start)
	copy(page, matched[start:end])
	return page, total, nil
}

func (s *Store) Update(_ context.Context, id string, upd auth.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
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
	s.users[id] = u
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) AllSettings(_ context.Context) ([]settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]settings.Setting, 0, len(s.settings))
	for _, row := range s.settings {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) GetSetting(_ context.Context, key string) (settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.settings[key]
	if !ok {
		return settings.Setting{}, settings.ErrNotFound
	}
	return row, nil
}

func (s *Store) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.settings[key]
	if !ok {
		return settings.ErrNotFound
	}
	row.Value = value
	s.settings[key] = row
	return nil
}

// DefaultSettings mirrors the seed data shipped with the migrations.
func DefaultSettings() []settings.Setting {
	return []settings.Setting{
		{Key: settings.KeyEnableRegister, Value: "true", ValueType: "boolean"},
		{Key: settings.KeyExpirationTime, Value: "24", ValueType: "integer"},
		{Key: settings.KeyUploadRequireAuth, Value: "false", ValueType: "boolean"},
	}
}
