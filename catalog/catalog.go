/*
Package catalog provides the editable reward catalog.

PURPOSE:
  Holds the list of redeemable rewards. Members read it; administrators
  edit it. The redemption coordinator consumes entries as read-only
  input. Two implementations: an in-memory store (default, matching the
  reference behaviour of state lost on restart) and a SQLite store for
  deployments that want the catalog to survive restarts.

SEE ALSO:
  - sqlite.go: SQLite-backed implementation
  - redeem/: Consumes entries for redemption
*/
package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/binrewards/loyalty-engine/ledger"
)

// =============================================================================
// REWARD - One redeemable catalog entry
// =============================================================================

type Category string

const (
	CategoryVoucher    Category = "voucher"
	CategoryProduct    Category = "product"
	CategoryExperience Category = "experience"
	// CategoryAISpecial marks rewards minted from a recommendation.
	// Never stored in the catalog; present so redemption records can
	// carry it.
	CategoryAISpecial Category = "ai-special"
)

type Reward struct {
	ID          string
	Title       string
	Description string
	Cost        ledger.Points // positive
	Category    Category
	Icon        string
}

// ErrRewardNotFound is returned for lookups and edits of unknown IDs.
var ErrRewardNotFound = errors.New("reward not found")

// =============================================================================
// STORE - Catalog persistence interface
// =============================================================================

type Store interface {
	List(ctx context.Context) ([]Reward, error)
	Get(ctx context.Context, id string) (*Reward, error)
	Create(ctx context.Context, r Reward) (Reward, error)
	Update(ctx context.Context, r Reward) error
	Delete(ctx context.Context, id string) error
}

// DefaultRewards is the seed catalog loaded into an empty store.
var DefaultRewards = []Reward{
	{ID: "r1", Title: "$5 Eco-Voucher", Description: "Redeemable at participating sustainable shops.", Cost: 500, Category: CategoryVoucher, Icon: "🌱"},
	{ID: "r2", Title: "Bamboo Straw Set", Description: "4-pack with cleaning brush and carrying pouch.", Cost: 1200, Category: CategoryProduct, Icon: "🎋"},
	{ID: "r3", Title: "Spotify Premium 1m", Description: "One month of ad-free music.", Cost: 3000, Category: CategoryExperience, Icon: "🎧"},
	{ID: "r4", Title: "$25 Amazon Gift Card", Description: "Universal shopping credit.", Cost: 5000, Category: CategoryVoucher, Icon: "💳"},
	{ID: "r5", Title: "Tree Planting", Description: "We plant a tree in a reforestation project in your name.", Cost: 8000, Category: CategoryExperience, Icon: "🌳"},
}

// Seed inserts the default rewards into an empty store. A store that
// already has entries is left alone.
func Seed(ctx context.Context, s Store) error {
	existing, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, r := range DefaultRewards {
		if _, err := s.Create(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// MEMORY STORE - In-memory implementation (default)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	rewards map[string]Reward
	order   map[string]int // insertion order for stable listing
	next    int
}

func NewMemory() *Memory {
	return &Memory{
		rewards: make(map[string]Reward),
		order:   make(map[string]int),
	}
}

func (m *Memory) List(_ context.Context) ([]Reward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Reward, 0, len(m.rewards))
	for _, r := range m.rewards {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (*Reward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rewards[id]
	if !ok {
		return nil, ErrRewardNotFound
	}
	return &r, nil
}

func (m *Memory) Create(_ context.Context, r Reward) (Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.rewards[r.ID] = r
	m.order[r.ID] = m.next
	m.next++
	return r, nil
}

func (m *Memory) Update(_ context.Context, r Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rewards[r.ID]; !ok {
		return ErrRewardNotFound
	}
	m.rewards[r.ID] = r
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rewards[id]; !ok {
		return ErrRewardNotFound
	}
	delete(m.rewards, id)
	delete(m.order, id)
	return nil
}
