package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/pkg/async"
)

type countingFinder struct {
	calls atomic.Int32
	user  *domain.User
	err   error
	gate  chan struct{}
}

func (f *countingFinder) FindByUsername(_ context.Context, _ string) *async.Future[*domain.User] {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return async.Resolved(f.user, f.err)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.Principal
	getErr  error
}

func (c *mapCache) Get(_ context.Context, username string) (domain.Principal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return domain.Principal{}, false, c.getErr
	}
	p, ok := c.entries[username]
	return p, ok, nil
}

func (c *mapCache) Set(_ context.Context, p domain.Principal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]domain.Principal)
	}
	c.entries[p.Username] = p
	return nil
}

func storedUser(id, username string, roles ...domain.Role) *domain.User {
	u := &domain.User{Username: username, Email: username + "@example.com", Roles: roles}
	u.ID = id
	u.Status = domain.StatusActive
	return u
}

func TestPrincipalResolver_Resolve(t *testing.T) {
	finder := &countingFinder{user: storedUser("u1", "alice", domain.RoleUser, domain.RoleAdmin)}
	r := NewPrincipalResolver(finder, nil, zerolog.Nop())

	p, err := r.Resolve(context.Background(), domain.TokenClaims{Subject: "alice", ID: "u1", Roles: []domain.Role{domain.RoleUser}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p == nil {
		t.Fatalf("expected principal")
	}
	if !p.HasRole(domain.RoleAdmin) {
		t.Fatalf("expected roles from the store, got %v", p.Roles)
	}
}

func TestPrincipalResolver_UnknownUser(t *testing.T) {
	r := NewPrincipalResolver(&countingFinder{}, nil, zerolog.Nop())

	p, err := r.Resolve(context.Background(), domain.TokenClaims{Subject: "ghost"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil principal, got %+v", p)
	}
}

func TestPrincipalResolver_ReplacedAccount(t *testing.T) {
	finder := &countingFinder{user: storedUser("u2", "alice")}
	r := NewPrincipalResolver(finder, nil, zerolog.Nop())

	p, err := r.Resolve(context.Background(), domain.TokenClaims{Subject: "alice", ID: "u1"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p != nil {
		t.Fatalf("token of a replaced account must not resolve, got %+v", p)
	}
}

func TestPrincipalResolver_StoreError(t *testing.T) {
	boom := errors.New("boom")
	r := NewPrincipalResolver(&countingFinder{err: boom}, nil, zerolog.Nop())

	if _, err := r.Resolve(context.Background(), domain.TokenClaims{Subject: "alice"}); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestPrincipalResolver_Cache(t *testing.T) {
	finder := &countingFinder{user: storedUser("u1", "alice", domain.RoleUser)}
	cache := &mapCache{}
	r := NewPrincipalResolver(finder, cache, zerolog.Nop())
	claims := domain.TokenClaims{Subject: "alice", ID: "u1"}

	for i := 0; i < 3; i++ {
		p, err := r.Resolve(context.Background(), claims)
		if err != nil || p == nil {
			t.Fatalf("Resolve #%d: %v, %v", i, p, err)
		}
	}
	if n := finder.calls.Load(); n != 1 {
		t.Fatalf("expected one store lookup, got %d", n)
	}
}

func TestPrincipalResolver_CacheErrorFallsBack(t *testing.T) {
	finder := &countingFinder{user: storedUser("u1", "alice")}
	r := NewPrincipalResolver(finder, &mapCache{getErr: errors.New("down")}, zerolog.Nop())

	p, err := r.Resolve(context.Background(), domain.TokenClaims{Subject: "alice", ID: "u1"})
	if err != nil || p == nil {
		t.Fatalf("expected store fallback, got %v, %v", p, err)
	}
}

func TestPrincipalResolver_ConcurrentLookups(t *testing.T) {
	finder := &countingFinder{user: storedUser("u1", "alice"), gate: make(chan struct{})}
	r := NewPrincipalResolver(finder, nil, zerolog.Nop())

	const n = 10
	var wg sync.WaitGroup
	var started sync.WaitGroup
	started.Add(n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			if _, err := r.Resolve(context.Background(), domain.TokenClaims{Subject: "alice", ID: "u1"}); err != nil {
				t.Errorf("Resolve failed: %v", err)
			}
		}()
	}
	started.Wait()
	close(finder.gate)
	wg.Wait()

	if c := finder.calls.Load(); c == 0 {
		t.Fatalf("expected at least one store lookup")
	}
}
