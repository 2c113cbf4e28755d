package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/event-seating/internal/model"
	"github.com/iliyamo/event-seating/internal/queue"
	"github.com/iliyamo/event-seating/internal/repository"
)

// memStore is an in-memory AssignmentStore.  A single mutex plays the
// part of the event row lock and the seats index plays the part of the
// (event_id, seat_number) primary key.
type memStore struct {
	mu          sync.Mutex
	events      map[string]*string
	assignments map[string]*model.SeatAssignment
	order       []string
	seats       map[string]map[int]string

	skipGuard  bool   // simulate a writer that lost the race after its check
	err        error  // returned by every call when set
	beforeList func() // runs once, unlocked, at the start of the next ListByEvent
}

func newMemStore() *memStore {
	return &memStore{
		events:      map[string]*string{},
		assignments: map[string]*model.SeatAssignment{},
		seats:       map[string]map[int]string{},
	}
}

func (m *memStore) addEvent(id string, venueType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if venueType == "" {
		m.events[id] = nil
		return
	}
	v := venueType
	m.events[id] = &v
}

func clone(a *model.SeatAssignment) *model.SeatAssignment {
	c := *a
	c.SeatNumbers = append([]int(nil), a.SeatNumbers...)
	c.RowNumbers = append([]int(nil), a.RowNumbers...)
	return &c
}

func (m *memStore) EventVenue(_ context.Context, eventID string) (*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.events[eventID]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return v, nil
}

func (m *memStore) ClaimedSeats(_ context.Context, eventID, excludeID string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.claimedLocked(eventID, excludeID), nil
}

func (m *memStore) claimedLocked(eventID, excludeID string) []int {
	out := []int{}
	for seat, owner := range m.seats[eventID] {
		if owner != excludeID {
			out = append(out, seat)
		}
	}
	sort.Ints(out)
	return out
}

func (m *memStore) ListByEvent(_ context.Context, eventID string) ([]model.SeatAssignment, error) {
	m.mu.Lock()
	hook := m.beforeList
	m.beforeList = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []model.SeatAssignment{}
	for _, id := range m.order {
		if a, ok := m.assignments[id]; ok && a.EventID == eventID {
			out = append(out, *clone(a))
		}
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.SeatAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.assignments[id]
	if !ok {
		return nil, repository.ErrAssignmentNotFound
	}
	return clone(a), nil
}

func (m *memStore) Create(_ context.Context, a *model.SeatAssignment, guard repository.SeatGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	v, ok := m.events[a.EventID]
	if !ok {
		return repository.ErrEventNotFound
	}
	if v != nil && *v != a.VenueType {
		return repository.ErrVenueMismatch
	}
	if guard != nil && !m.skipGuard {
		if err := guard(m.claimedLocked(a.EventID, "")); err != nil {
			return err
		}
	}
	if err := m.claimLocked(a.EventID, a.ID, a.SeatNumbers); err != nil {
		return err
	}
	if v == nil {
		vt := a.VenueType
		m.events[a.EventID] = &vt
	}
	m.assignments[a.ID] = clone(a)
	m.order = append(m.order, a.ID)
	return nil
}

func (m *memStore) UpdateSeats(_ context.Context, a *model.SeatAssignment, guard repository.SeatGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cur, ok := m.assignments[a.ID]
	if !ok {
		return repository.ErrAssignmentNotFound
	}
	if guard != nil && !m.skipGuard {
		if err := guard(m.claimedLocked(cur.EventID, a.ID)); err != nil {
			return err
		}
	}
	old := cur.SeatNumbers
	m.releaseLocked(cur.EventID, a.ID)
	if err := m.claimLocked(cur.EventID, a.ID, a.SeatNumbers); err != nil {
		_ = m.claimLocked(cur.EventID, a.ID, old)
		return err
	}
	cur.SeatNumbers = append([]int(nil), a.SeatNumbers...)
	cur.RowNumbers = append([]int(nil), a.RowNumbers...)
	cur.UpdatedAt = a.UpdatedAt
	a.EventID = cur.EventID
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	a, ok := m.assignments[id]
	if !ok {
		return false, nil
	}
	m.releaseLocked(a.EventID, id)
	delete(m.assignments, id)
	return true, nil
}

func (m *memStore) claimLocked(eventID, assignmentID string, seats []int) error {
	idx := m.seats[eventID]
	if idx == nil {
		idx = map[int]string{}
		m.seats[eventID] = idx
	}
	for _, s := range seats {
		if _, taken := idx[s]; taken {
			return repository.ErrSeatTaken
		}
	}
	for _, s := range seats {
		idx[s] = assignmentID
	}
	return nil
}

func (m *memStore) releaseLocked(eventID, assignmentID string) {
	for s, owner := range m.seats[eventID] {
		if owner == assignmentID {
			delete(m.seats[eventID], s)
		}
	}
}

// memCache is an in-memory SeatMapStore.
type memCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	versions    map[string]int64
	invalidated []string
	err         error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}, versions: map[string]int64{}}
}

func (c *memCache) Get(_ context.Context, eventID string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	bs, ok := c.entries[eventID]
	return bs, ok, nil
}

func (c *memCache) Version(_ context.Context, eventID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.versions[eventID], nil
}

func (c *memCache) Set(_ context.Context, eventID string, payload []byte, version int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if c.versions[eventID] != version {
		return false, nil
	}
	c.entries[eventID] = payload
	return true, nil
}

func (c *memCache) Invalidate(_ context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, eventID)
	c.versions[eventID]++
	delete(c.entries, eventID)
	return c.err
}

// recordingPublisher keeps every published change.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.SeatAssignmentChangedEvent
	err    error
}

func (p *recordingPublisher) PublishSeatAssignmentChanged(_ context.Context, ev queue.SeatAssignmentChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Action
	}
	return out
}

// memEventStore is an in-memory EventStore.
type memEventStore struct {
	events []model.Event
	err    error
}

func (s *memEventStore) Create(_ context.Context, e *model.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, *e)
	return nil
}

func (s *memEventStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.events {
		if s.events[i].ID == id {
			e := s.events[i]
			return &e, nil
		}
	}
	return nil, repository.ErrEventNotFound
}

func (s *memEventStore) ListActive(_ context.Context, limit int) ([]model.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := []model.Event{}
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].IsActive {
			out = append(out, s.events[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memEventStore) ListForStudent(_ context.Context, department, year string, from time.Time) ([]model.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := []model.Event{}
	for _, e := range s.events {
		if !e.IsActive || e.EventDate.Before(from) {
			continue
		}
		if !openTo(e.TargetDepartments, department) || !openTo(e.TargetYears, year) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	return out, nil
}

func openTo(targets []string, v string) bool {
	if len(targets) == 0 {
		return true
	}
	for _, t := range targets {
		if t == v {
			return true
		}
	}
	return false
}

// memRegistrationStore is an in-memory RegistrationStore backed by a
// memEventStore for the event policy.
type memRegistrationStore struct {
	mu         sync.Mutex
	events     *memEventStore
	regs       []model.Registration
	attendance map[string]model.Attendance // keyed by event_id/student_id
	err        error
}

func newMemRegistrationStore(events *memEventStore) *memRegistrationStore {
	return &memRegistrationStore{events: events, attendance: map[string]model.Attendance{}}
}

func (m *memRegistrationStore) Register(ctx context.Context, reg *model.Registration, guard repository.RegistrationGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	e, err := m.events.GetByID(ctx, reg.EventID)
	if err != nil || !e.IsActive {
		return repository.ErrEventNotFound
	}
	if guard != nil {
		registered := 0
		for _, r := range m.regs {
			if r.EventID == reg.EventID {
				registered++
			}
		}
		p := repository.RegistrationPolicy{
			AllowRegistration: e.AllowRegistration,
			RegistrationEnd:   e.RegistrationEnd,
			EventDate:         e.EventDate,
			MaxParticipants:   e.MaxParticipants,
		}
		if err := guard(p, registered); err != nil {
			return err
		}
	}
	for _, r := range m.regs {
		if r.EventID == reg.EventID && r.StudentID == reg.StudentID {
			return repository.ErrAlreadyRegistered
		}
	}
	m.regs = append(m.regs, *reg)
	return nil
}

func (m *memRegistrationStore) ListByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []model.Registration{}
	for _, r := range m.regs {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRegistrationStore) MarkAttendance(_ context.Context, a *model.Attendance, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.regs {
		r := &m.regs[i]
		if r.EventID != a.EventID || r.StudentID != a.StudentID {
			continue
		}
		a.RegistrationID = r.ID
		key := a.EventID + "/" + a.StudentID
		if prev, ok := m.attendance[key]; ok {
			a.ID = prev.ID
		}
		m.attendance[key] = *a
		r.Status = status
		return nil
	}
	return repository.ErrRegistrationNotFound
}

var errStoreDown = errors.New("connection refused")
