package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/apperror"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
)

// MemoryStore is an in-process Store. RunAtomic holds a per-event mutex for
// the duration of fn and stages writes so a failing fn leaves no trace.
type MemoryStore struct {
	mu      sync.RWMutex
	events  map[string]*model.Event
	regs    map[string]map[string]*model.Registration
	reviews map[string]map[string]*model.Review
	emails  []model.EmailLog

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:  make(map[string]*model.Event),
		regs:    make(map[string]map[string]*model.Registration),
		reviews: make(map[string]map[string]*model.Review),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) eventLock(eventID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[eventID] = l
	}
	return l
}

// RunAtomic implements Store.
func (s *MemoryStore) RunAtomic(ctx context.Context, eventID string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.eventLock(eventID)
	l.Lock()
	defer l.Unlock()

	tx := &memTx{
		store:   s,
		eventID: eventID,
		regs:    make(map[string]*model.Registration),
		reviews: make(map[string]*model.Review),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

// CreateEvent implements Store.
func (s *MemoryStore) CreateEvent(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *event
	s.events[event.ID] = &e
	return nil
}

// DeleteEvent implements Store.
func (s *MemoryStore) DeleteEvent(_ context.Context, eventID string) error {
	l := s.eventLock(eventID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return apperror.ErrNotFound
	}
	delete(s.events, eventID)
	return nil
}

// GetEvent implements Store.
func (s *MemoryStore) GetEvent(_ context.Context, eventID string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	c := *e
	return &c, nil
}

// ListEvents implements Store. Newest events come first.
func (s *MemoryStore) ListEvents(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// GetRegistration implements Store.
func (s *MemoryStore) GetRegistration(_ context.Context, id model.TicketID) (*model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regs[id.EventID][id.UserID]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return r.Clone(), nil
}

// ListRegistrations implements Store, ordered by creation time.
func (s *MemoryStore) ListRegistrations(_ context.Context, eventID string) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regs := make([]model.Registration, 0, len(s.regs[eventID]))
	for _, r := range s.regs[eventID] {
		regs = append(regs, *r.Clone())
	}
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].UserID < regs[j].UserID
		}
		return regs[i].CreatedAt.Before(regs[j].CreatedAt)
	})
	return regs, nil
}

// ListAttended implements Store.
func (s *MemoryStore) ListAttended(_ context.Context) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var regs []model.Registration
	for _, byUser := range s.regs {
		for _, r := range byUser {
			if r.Status == model.StatusAttended {
				regs = append(regs, *r.Clone())
			}
		}
	}
	return regs, nil
}

// ListReviews implements Store, newest first.
func (s *MemoryStore) ListReviews(_ context.Context, eventID string) ([]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviews := make([]model.Review, 0, len(s.reviews[eventID]))
	for _, r := range s.reviews[eventID] {
		reviews = append(reviews, *r)
	}
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return reviews, nil
}

// RecordEmail implements Store.
func (s *MemoryStore) RecordEmail(_ context.Context, entry *model.EmailLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, *entry)
	return nil
}

// ListEmailLogs implements Store, newest first.
func (s *MemoryStore) ListEmailLogs(_ context.Context, eventID string) ([]model.EmailLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var logs []model.EmailLog
	for i := len(s.emails) - 1; i >= 0; i-- {
		if s.emails[i].EventID == eventID {
			logs = append(logs, s.emails[i])
		}
	}
	return logs, nil
}

// memTx stages writes until RunAtomic applies them.
type memTx struct {
	store   *MemoryStore
	eventID string

	event   *model.Event
	regs    map[string]*model.Registration
	reviews map[string]*model.Review
}

func (t *memTx) Event(_ context.Context) (*model.Event, error) {
	if t.event != nil {
		c := *t.event
		return &c, nil
	}
	t.store.mu.RLock()
	e, ok := t.store.events[t.eventID]
	t.store.mu.RUnlock()
	if !ok {
		return nil, apperror.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (t *memTx) SaveEvent(_ context.Context, event *model.Event) error {
	e := *event
	t.event = &e
	return nil
}

func (t *memTx) Registration(_ context.Context, userID string) (*model.Registration, error) {
	if r, ok := t.regs[userID]; ok {
		return r.Clone(), nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if r, ok := t.store.regs[t.eventID][userID]; ok {
		return r.Clone(), nil
	}
	return nil, nil
}

func (t *memTx) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	if err := checkRegistration(t.eventID, reg); err != nil {
		return err
	}
	existing, err := t.Registration(ctx, reg.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperror.ErrAlreadyBooked
	}
	t.regs[reg.UserID] = reg.Clone()
	return nil
}

func (t *memTx) UpdateRegistration(ctx context.Context, reg *model.Registration) error {
	if err := checkRegistration(t.eventID, reg); err != nil {
		return err
	}
	existing, err := t.Registration(ctx, reg.UserID)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperror.ErrNotFound
	}
	t.regs[reg.UserID] = reg.Clone()
	return nil
}

func (t *memTx) FindTeamLeader(_ context.Context, teamCode string) (*model.Registration, error) {
	isLeader := func(r *model.Registration) bool {
		return r.Type == model.TypeTeamLeader && r.Team != nil && r.Team.Code == teamCode
	}
	for _, r := range t.regs {
		if isLeader(r) {
			return r.Clone(), nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for userID, r := range t.store.regs[t.eventID] {
		if _, staged := t.regs[userID]; staged {
			continue
		}
		if isLeader(r) {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (t *memTx) Review(_ context.Context, userID string) (*model.Review, error) {
	if r, ok := t.reviews[userID]; ok {
		c := *r
		return &c, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if r, ok := t.store.reviews[t.eventID][userID]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (t *memTx) InsertReview(ctx context.Context, review *model.Review) error {
	existing, err := t.Review(ctx, review.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperror.ErrAlreadyReviewed
	}
	c := *review
	t.reviews[review.UserID] = &c
	return nil
}

func (t *memTx) apply() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.event != nil {
		if _, ok := s.events[t.eventID]; ok {
			s.events[t.eventID] = t.event
		}
	}
	if len(t.regs) > 0 {
		byUser, ok := s.regs[t.eventID]
		if !ok {
			byUser = make(map[string]*model.Registration)
			s.regs[t.eventID] = byUser
		}
		for userID, r := range t.regs {
			byUser[userID] = r
		}
	}
	if len(t.reviews) > 0 {
		byUser, ok := s.reviews[t.eventID]
		if !ok {
			byUser = make(map[string]*model.Review)
			s.reviews[t.eventID] = byUser
		}
		for userID, r := range t.reviews {
			byUser[userID] = r
		}
	}
}
