package agent

import (
	"errors"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

var (
	ErrAlreadyAttached = errors.New("agent already attached")
	ErrNotFound        = errors.New("agent not found")
	ErrStaleHandle     = errors.New("stale agent handle")
)

// Handle addresses one slot of the store. A handle stops resolving once the
// agent it was issued for detaches, even if the slot is reused.
type Handle struct {
	index      uint32
	generation uint32
}

func (h Handle) Valid() bool {
	return h.generation != 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.index, h.generation)
}

type slot struct {
	mutex      deadlock.Mutex
	generation uint32
	live       bool

	identity Identity
	control  Control
	body     Body
}

// Store holds every agent attached to a region.
//
// Locks are always taken store first, record second, and the store lock is
// never held while a caller's callback runs.
type Store struct {
	mutex deadlock.RWMutex
	slots []*slot
	free  []uint32
	index *orderedmap.OrderedMap[uuid.UUID, Handle]
}

func NewStore() *Store {
	return &Store{
		index: orderedmap.NewOrderedMap[uuid.UUID, Handle](),
	}
}

func (s *Store) Attach(identity Identity, body Body) (Handle, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.index.Get(identity.ID); ok {
		return Handle{}, fmt.Errorf("%s: %w", identity.ID, ErrAlreadyAttached)
	}

	var (
		index uint32
		next  *slot
	)
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
		next = s.slots[index]
	} else {
		index = uint32(len(s.slots))
		next = &slot{generation: 1}
		s.slots = append(s.slots, next)
	}

	next.mutex.Lock()
	next.live = true
	next.identity = identity
	next.control = NewControl()
	next.body = body
	handle := Handle{index: index, generation: next.generation}
	next.mutex.Unlock()

	s.index.Set(identity.ID, handle)
	return handle, nil
}

func (s *Store) Detach(id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	handle, ok := s.index.Get(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	old := s.slots[handle.index]
	old.mutex.Lock()
	old.live = false
	old.generation++
	old.identity = Identity{}
	old.control = Control{}
	old.body = Body{}
	old.mutex.Unlock()

	s.index.Delete(id)
	s.free = append(s.free, handle.index)
	return nil
}

func (s *Store) Lookup(id uuid.UUID) (Handle, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.index.Get(id)
}

func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.index.Len()
}

// Snapshot returns the handles of every attached agent in attach order.
// Agents that detach after the snapshot is taken are skipped by the
// accessors with ErrStaleHandle.
func (s *Store) Snapshot() []Handle {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	handles := make([]Handle, 0, s.index.Len())
	for el := s.index.Front(); el != nil; el = el.Next() {
		handles = append(handles, el.Value)
	}
	return handles
}

// acquire returns the slot for h with its lock held.
func (s *Store) acquire(h Handle) (*slot, error) {
	s.mutex.RLock()
	if !h.Valid() || int(h.index) >= len(s.slots) {
		s.mutex.RUnlock()
		return nil, ErrStaleHandle
	}
	target := s.slots[h.index]
	s.mutex.RUnlock()

	target.mutex.Lock()
	if !target.live || target.generation != h.generation {
		target.mutex.Unlock()
		return nil, ErrStaleHandle
	}
	return target, nil
}

// UpdateControl gives the control input path exclusive access to one agent's
// control block.
func (s *Store) UpdateControl(h Handle, update func(*Control)) error {
	target, err := s.acquire(h)
	if err != nil {
		return err
	}
	defer target.mutex.Unlock()

	update(&target.control)
	return nil
}

func (s *Store) UpdateControlByID(id uuid.UUID, update func(*Control)) error {
	h, ok := s.Lookup(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s.UpdateControl(h, update)
}

// Simulate gives the tick path exclusive access to one agent's body. The
// control block is passed by value. Changes to the body are committed only if
// step returns normally.
func (s *Store) Simulate(h Handle, step func(Identity, Control, *Body)) error {
	target, err := s.acquire(h)
	if err != nil {
		return err
	}
	defer target.mutex.Unlock()

	body := target.body
	step(target.identity, target.control, &body)
	target.body = body
	return nil
}

func (s *Store) Read(h Handle) (Record, error) {
	target, err := s.acquire(h)
	if err != nil {
		return Record{}, err
	}
	defer target.mutex.Unlock()

	return Record{
		Identity: target.identity,
		Control:  target.control,
		Body:     target.body,
	}, nil
}

func (s *Store) ReadByID(id uuid.UUID) (Record, error) {
	h, ok := s.Lookup(id)
	if !ok {
		return Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s.Read(h)
}
