package orders

import (
	"sync"
	"time"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
)

// Intent is a locally requested transition the store has not confirmed yet.
type Intent struct {
	Action    enums.OrderAction
	Expected  enums.OrderStatus
	StartedAt time.Time
}

// View holds what an order screen renders: the last authoritative snapshot
// and at most one pending intent. The intent is never merged into the
// snapshot; it is dropped when the next authoritative snapshot arrives.
type View struct {
	mu       sync.Mutex
	snapshot *Order
	pending  *Intent
}

// NewView seeds a view with a snapshot fetched from the store.
func NewView(initial *Order) *View {
	return &View{snapshot: initial}
}

// Snapshot returns the last authoritative order snapshot.
func (v *View) Snapshot() *Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot
}

// Pending returns the in-flight intent, if any. Screens disable the action
// buttons while it is set.
func (v *View) Pending() *Intent {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending == nil {
		return nil
	}
	intent := *v.pending
	return &intent
}

func (v *View) begin(intent Intent) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending != nil {
		return false
	}
	v.pending = &intent
	return true
}

// settle drops the pending intent and, when snapshot is non-nil, replaces the
// authoritative snapshot wholesale.
func (v *View) settle(snapshot *Order) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = nil
	if snapshot != nil {
		v.snapshot = snapshot
	}
}

// observe replaces the snapshot without touching a pending intent.
func (v *View) observe(snapshot *Order) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapshot = snapshot
}
