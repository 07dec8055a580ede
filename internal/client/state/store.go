// Package state holds the client-side view of the task board: the current
// page of tasks, active filters, and the signed-in user. Incoming broadcast
// events are reconciled into the local page using the same authorization
// policy the server enforces, so a client never surfaces a task it could not
// have fetched.
package state

import (
	"encoding/json"
	"sync"

	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/domain/policy"
	"github.com/taskboard/taskboard/internal/events"
)

// Pagination mirrors the list metadata returned by the server.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Filters is the active task list query.
type Filters struct {
	Status   string
	Priority string
	Search   string
	DueDate  string
	Page     int
	Limit    int
}

// pageOnlyChange reports whether next differs from prev only in Page.
func pageOnlyChange(prev, next Filters) bool {
	prev.Page = 0
	next.Page = 0
	return prev == next
}

// Store is a concurrency-safe snapshot of client state. All mutating methods
// are idempotent with respect to broadcast replays.
type Store struct {
	mu sync.RWMutex

	user  *entity.PublicProfile
	token string

	tasks      []entity.ExpandedTask
	current    *entity.ExpandedTask
	pagination Pagination
	filters    Filters

	loading bool
	err     string
}

func NewStore() *Store {
	return &Store{filters: Filters{Page: 1, Limit: 10}}
}

func (s *Store) SetAuth(user entity.PublicProfile, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
	s.token = token
}

// ClearAuth drops the session and everything fetched under it.
func (s *Store) ClearAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
	s.tasks = nil
	s.current = nil
	s.pagination = Pagination{}
	s.err = ""
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) User() *entity.PublicProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
	if v {
		s.err = ""
	}
}

func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.err = msg
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// SetFilters replaces the active query. Changing anything other than the page
// resets the cursor to page 1; a page-only change keeps the rest intact.
func (s *Store) SetFilters(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !pageOnlyChange(s.filters, f) {
		f.Page = 1
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	s.filters = f
}

func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// ApplyList replaces the page with a fetch result.
func (s *Store) ApplyList(tasks []entity.ExpandedTask, p Pagination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]entity.ExpandedTask(nil), tasks...)
	s.pagination = p
	s.loading = false
	s.err = ""
}

func (s *Store) SetCurrent(t *entity.ExpandedTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == nil {
		s.current = nil
		return
	}
	cp := *t
	s.current = &cp
}

func (s *Store) Current() *entity.ExpandedTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

func (s *Store) Tasks() []entity.ExpandedTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.ExpandedTask(nil), s.tasks...)
}

func (s *Store) Pagination() Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// visible applies the read policy for the signed-in user. The server
// broadcasts every mutation to every session, so filtering happens here.
func (s *Store) visible(t *entity.ExpandedTask) bool {
	if s.user == nil {
		return false
	}
	refs := policy.TaskRefs{CreatedBy: t.CreatedBy.ID}
	if t.AssignedTo != nil {
		refs.AssignedTo = t.AssignedTo.ID
	}
	return policy.CanRead(policy.Actor{ID: s.user.ID, Role: string(s.user.Role)}, refs)
}

// ApplyEvent reconciles one broadcast event into the local page. Unknown
// event types and malformed payloads are ignored.
func (s *Store) ApplyEvent(ev events.Event) {
	switch ev.Type {
	case events.TaskCreated, events.TaskUpdated:
		var t entity.ExpandedTask
		if err := json.Unmarshal(ev.Payload, &t); err != nil {
			return
		}
		if ev.Type == events.TaskCreated {
			s.applyCreated(t)
		} else {
			s.applyUpdated(t)
		}
	case events.TaskDeleted:
		var p events.DeletedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		s.applyDeleted(p.ID)
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) applyCreated(t entity.ExpandedTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible(&t) {
		return
	}
	if s.indexOf(t.ID) >= 0 {
		// replay, already merged
		return
	}
	s.tasks = append([]entity.ExpandedTask{t}, s.tasks...)
	s.pagination.Total++
	s.recomputePages()
}

func (s *Store) applyUpdated(t entity.ExpandedTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(t.ID)
	if !s.visible(&t) {
		// reassigned away from us: drop it from the page
		if i >= 0 {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.pagination.Total--
			s.recomputePages()
		}
		if s.current != nil && s.current.ID == t.ID {
			s.current = nil
		}
		return
	}
	if i >= 0 {
		s.tasks[i] = t
	} else {
		// gained visibility through this update (e.g. assigned to us)
		s.tasks = append([]entity.ExpandedTask{t}, s.tasks...)
		s.pagination.Total++
		s.recomputePages()
	}
	if s.current != nil && s.current.ID == t.ID {
		cp := t
		s.current = &cp
	}
}

func (s *Store) applyDeleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		s.pagination.Total--
		s.recomputePages()
	}
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
}

func (s *Store) recomputePages() {
	if s.pagination.Total < 0 {
		s.pagination.Total = 0
	}
	if s.pagination.Limit > 0 {
		s.pagination.Pages = (s.pagination.Total + s.pagination.Limit - 1) / s.pagination.Limit
	}
}
