// Package memory is an in-process storage backend. It keeps the same row
// locking semantics as the Postgres adapter: a row read "for update" stays
// locked until the owning transaction commits or rolls back.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"palmpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store holds every table in maps guarded by one mutex. Row locks are
// separate one-slot channels so that waiting for a lock never holds mu.
type Store struct {
	mu               sync.RWMutex
	wallets          map[uuid.UUID]domain.Wallet
	walletByIdentity map[uuid.UUID]uuid.UUID
	transactions     map[uuid.UUID]domain.Transaction
	embeddings       map[uuid.UUID]domain.EnrolledEmbedding
	identities       map[uuid.UUID]domain.Identity
	terminals        map[string]domain.Terminal
	gatewayEvents    []domain.GatewayEvent
	auditLogs        []domain.AuditLog

	lockMu sync.Mutex
	locks  map[string]chan struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		wallets:          make(map[uuid.UUID]domain.Wallet),
		walletByIdentity: make(map[uuid.UUID]uuid.UUID),
		transactions:     make(map[uuid.UUID]domain.Transaction),
		embeddings:       make(map[uuid.UUID]domain.EnrolledEmbedding),
		identities:       make(map[uuid.UUID]domain.Identity),
		terminals:        make(map[string]domain.Terminal),
		locks:            make(map[string]chan struct{}),
	}
}

// Begin starts a transaction. It implements ports.DBTransactor.
func (s *Store) Begin(_ context.Context) (pgx.Tx, error) {
	return newTx(s), nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Ping implements ports.HealthChecker.
func (s *Store) Ping(_ context.Context) error { return nil }

// AddIdentity inserts or replaces an identity. Identities are owned by the
// signup and KYC workflow, so this is only used for seeding.
func (s *Store) AddIdentity(identity domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}
	s.identities[identity.ID] = identity
}

// AddTerminal inserts or replaces a terminal registry row.
func (s *Store) AddTerminal(terminal domain.Terminal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if terminal.ID == uuid.Nil {
		terminal.ID = uuid.New()
	}
	if terminal.CreatedAt.IsZero() {
		terminal.CreatedAt = time.Now().UTC()
	}
	s.terminals[terminal.TerminalID] = terminal
}

// Seed is the document accepted by LoadSeed.
type Seed struct {
	Identities []domain.Identity `json:"identities"`
	Terminals  []struct {
		TerminalID string `json:"terminal_id"`
		APIKeyHash string `json:"api_key_hash"`
		Merchant   string `json:"merchant"`
		Location   string `json:"location"`
		Active     bool   `json:"active"`
	} `json:"terminals"`
}

// LoadSeed reads a JSON Seed document and adds its rows.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for _, identity := range seed.Identities {
		if identity.ID == uuid.Nil {
			return fmt.Errorf("seed identity %q has no id", identity.Phone)
		}
		s.AddIdentity(identity)
	}
	for _, t := range seed.Terminals {
		s.AddTerminal(domain.Terminal{
			TerminalID: t.TerminalID,
			APIKeyHash: t.APIKeyHash,
			Merchant:   t.Merchant,
			Location:   t.Location,
			Active:     t.Active,
		})
	}
	return nil
}

func (s *Store) rowLock(key string) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	return ch
}

// acquire blocks until the row lock is free or ctx is done.
func (s *Store) acquire(ctx context.Context, key string) (chan struct{}, error) {
	ch := s.rowLock(key)
	select {
	case ch <- struct{}{}:
		return ch, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
	}
}

func walletKey(id uuid.UUID) string      { return "wallet:" + id.String() }
func transactionKey(id uuid.UUID) string { return "transaction:" + id.String() }

func lessUUID(a, b uuid.UUID) bool { return bytes.Compare(a[:], b[:]) < 0 }

func sortEmbeddings(list []domain.EnrolledEmbedding) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return lessUUID(list[i].IdentityID, list[j].IdentityID)
	})
}
