package conversation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Flow string

const (
	FlowAddItem     Flow = "add_item"
	FlowEditItem    Flow = "edit_item"
	FlowUpdateStock Flow = "update_stock"
	FlowArrival     Flow = "arrival"
	FlowSell        Flow = "sell"
	FlowAddLeader   Flow = "add_leader"
	FlowDeleteItem  Flow = "delete_item"
	FlowChangePrice Flow = "change_price"
	FlowChangeName  Flow = "change_name"
)

// Step names the input a session is waiting for.
type Step string

const (
	StepAddName     Step = "add_item.name"
	StepAddCategory Step = "add_item.category"
	StepAddPrice    Step = "add_item.price"
	StepAddCost     Step = "add_item.cost"
	StepAddMinStock Step = "add_item.min_stock"

	StepEditSelect Step = "edit_item.select"
	StepEditField  Step = "edit_item.field"
	StepEditValue  Step = "edit_item.value"

	StepStockSelect Step = "update_stock.select"
	StepStockCount  Step = "update_stock.count"

	StepArrivalSelect Step = "arrival.select"
	StepArrivalQty    Step = "arrival.quantity"

	StepSellSelect Step = "sell.select"
	StepSellQty    Step = "sell.quantity"

	StepLeaderID Step = "add_leader.actor"

	StepDeleteSelect  Step = "delete_item.select"
	StepDeleteConfirm Step = "delete_item.confirm"

	StepPriceSelect Step = "change_price.select"
	StepPriceValue  Step = "change_price.value"

	StepNameSelect Step = "change_name.select"
	StepNameValue  Step = "change_name.value"
)

// Field bag keys.
const (
	KeyName     = "name"
	KeyCategory = "category"
	KeyPrice    = "price"
	KeyCost     = "cost"
	KeyMinStock = "min_stock"
	KeyItem     = "item"
	KeyField    = "field"
	KeyValue    = "value"
	KeyCount    = "count"
	KeyQuantity = "quantity"
	KeyActor    = "actor"
	KeyConfirm  = "confirm"
)

var ErrFieldSet = errors.New("conversation field already set")

// Bag accumulates a conversation's inputs. Every key is written at most once.
type Bag map[string]any

func (b Bag) Set(key string, v any) error {
	if _, ok := b[key]; ok {
		return fmt.Errorf("%w: %s", ErrFieldSet, key)
	}
	b[key] = v
	return nil
}

func (b Bag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

func Get[T any](b Bag, key string) (T, bool) {
	v, ok := b[key].(T)
	return v, ok
}

type Session struct {
	ID      uuid.UUID
	Actor   int64
	Flow    Flow
	Step    Step
	Bag     Bag
	Started time.Time
	Touched time.Time
}

// Sessions holds at most one session per actor. Each actor has its own lock
// so two actions of one actor never interleave, while different actors run
// in parallel.
type Sessions struct {
	mu    sync.Mutex
	slots map[int64]*slot
	ttl   time.Duration
	now   func() time.Time
}

type slot struct {
	mu sync.Mutex
	s  *Session
}

// NewSessions keeps idle sessions for ttl; zero keeps them forever.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{slots: map[int64]*slot{}, ttl: ttl, now: time.Now}
}

// SetClock replaces the time source.
func (ss *Sessions) SetClock(now func() time.Time) { ss.now = now }

func (ss *Sessions) expired(s *Session) bool {
	return ss.ttl > 0 && ss.now().Sub(s.Touched) > ss.ttl
}

// Lock returns the actor's slot, held until Unlock.
func (ss *Sessions) Lock(actor int64) *Slot {
	for {
		ss.mu.Lock()
		sl, ok := ss.slots[actor]
		if !ok {
			sl = &slot{}
			ss.slots[actor] = sl
		}
		ss.mu.Unlock()

		sl.mu.Lock()
		ss.mu.Lock()
		live := ss.slots[actor] == sl
		ss.mu.Unlock()
		if live {
			return &Slot{owner: ss, actor: actor, sl: sl}
		}
		// swept while we waited
		sl.mu.Unlock()
	}
}

// Sweep drops expired and empty slots that nobody holds.
func (ss *Sessions) Sweep() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	n := 0
	for actor, sl := range ss.slots {
		if !sl.mu.TryLock() {
			continue
		}
		if sl.s == nil || ss.expired(sl.s) {
			if sl.s != nil {
				n++
			}
			delete(ss.slots, actor)
		}
		sl.mu.Unlock()
	}
	return n
}

// Active counts live sessions.
func (ss *Sessions) Active() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	n := 0
	for _, sl := range ss.slots {
		if sl.mu.TryLock() {
			if sl.s != nil && !ss.expired(sl.s) {
				n++
			}
			sl.mu.Unlock()
		} else {
			n++
		}
	}
	return n
}

// Slot is an actor's locked session slot.
type Slot struct {
	owner *Sessions
	actor int64
	sl    *slot
}

// Current returns the live session or nil. An expired session is dropped.
func (s *Slot) Current() *Session {
	if s.sl.s != nil && s.owner.expired(s.sl.s) {
		s.sl.s = nil
	}
	return s.sl.s
}

// Begin replaces any session with a fresh one at step.
func (s *Slot) Begin(flow Flow, step Step) *Session {
	now := s.owner.now()
	s.sl.s = &Session{ID: uuid.New(), Actor: s.actor, Flow: flow, Step: step, Bag: Bag{}, Started: now, Touched: now}
	return s.sl.s
}

// Advance moves the session on and refreshes its idle timer.
func (s *Slot) Advance(step Step) {
	if s.sl.s != nil {
		s.sl.s.Step = step
		s.sl.s.Touched = s.owner.now()
	}
}

func (s *Slot) Touch() {
	if s.sl.s != nil {
		s.sl.s.Touched = s.owner.now()
	}
}

func (s *Slot) Clear() { s.sl.s = nil }

func (s *Slot) Unlock() { s.sl.mu.Unlock() }
