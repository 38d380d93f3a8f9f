package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Strob0t/PlanForge/internal/domain"
	"github.com/Strob0t/PlanForge/internal/domain/plan"
	"github.com/Strob0t/PlanForge/internal/port/database"
)

// fakePlanner implements planner.Planner for testing.
type fakePlanner struct {
	tasks       []plan.TaskItem
	err         error
	healthy     bool
	healthGate  chan struct{} // when set, CheckHealth blocks until closed
	calls       atomic.Int32
	healthCalls atomic.Int32
	lastGoal    atomic.Value
}

func (p *fakePlanner) RequestPlan(_ context.Context, goal string) ([]plan.TaskItem, error) {
	p.calls.Add(1)
	p.lastGoal.Store(goal)
	if p.err != nil {
		return nil, p.err
	}
	return p.tasks, nil
}

func (p *fakePlanner) CheckHealth(_ context.Context) bool {
	p.healthCalls.Add(1)
	if p.healthGate != nil {
		<-p.healthGate
	}
	return p.healthy
}

func (p *fakePlanner) BaseURL() string { return "http://planner.test" }

type fakeGoal struct {
	id   int64
	text string
}

type fakePhase struct {
	id     int64
	goalID int64
	name   string
	order  int
}

type fakeTask struct {
	id      int64
	goalID  int64
	phaseID int64
	name    string
	weeks   *int
}

type fakeLink struct {
	taskID   int64
	lookupID int64
}

// fakeStore implements database.Store in memory. Goals, phases, tasks and
// links are staged per transaction and only become visible on commit.
// Lookup tables are shared and non-transactional, like rows already
// committed by a concurrent plan.
type fakeStore struct {
	mu        sync.Mutex
	nextID    atomic.Int64
	goals     []fakeGoal
	phases    []fakePhase
	tasks     []fakeTask
	techLinks []fakeLink
	delLinks  []fakeLink

	technologies *fakeLookup
	deliverables *fakeLookup

	failTaskN int // InsertTask fails on this 1-based call within a tx; 0 never
	pingErr   error
	txCount   atomic.Int32
}

func newFakeStore() *fakeStore {
	s := &fakeStore{}
	s.technologies = &fakeLookup{ids: map[string]int64{}, next: &s.nextID}
	s.deliverables = &fakeLookup{ids: map[string]int64{}, next: &s.nextID}
	return s
}

var _ database.Store = (*fakeStore)(nil)

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx database.Tx) error) error {
	s.txCount.Add(1)
	tx := &fakeTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, tx.goals...)
	s.phases = append(s.phases, tx.phases...)
	s.tasks = append(s.tasks, tx.tasks...)
	s.techLinks = append(s.techLinks, tx.techLinks...)
	s.delLinks = append(s.delLinks, tx.delLinks...)
	return nil
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) counts() (goals, phases, tasks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.goals), len(s.phases), len(s.tasks)
}

func (s *fakeStore) phasesOf(goalID int64) []fakePhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []fakePhase
	for _, p := range s.phases {
		if p.goalID == goalID {
			out = append(out, p)
		}
	}
	return out
}

func (s *fakeStore) tasksOf(goalID int64) []fakeTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []fakeTask
	for _, t := range s.tasks {
		if t.goalID == goalID {
			out = append(out, t)
		}
	}
	return out
}

type fakeTx struct {
	store     *fakeStore
	goals     []fakeGoal
	phases    []fakePhase
	tasks     []fakeTask
	techLinks []fakeLink
	delLinks  []fakeLink
}

func (t *fakeTx) InsertGoal(_ context.Context, goal string) (int64, error) {
	id := t.store.nextID.Add(1)
	t.goals = append(t.goals, fakeGoal{id: id, text: goal})
	return id, nil
}

func (t *fakeTx) UpsertPhase(_ context.Context, goalID int64, name string, order int) (int64, error) {
	for i := range t.phases {
		if t.phases[i].goalID == goalID && t.phases[i].order == order {
			t.phases[i].name = name
			return t.phases[i].id, nil
		}
	}
	id := t.store.nextID.Add(1)
	t.phases = append(t.phases, fakePhase{id: id, goalID: goalID, name: name, order: order})
	return id, nil
}

func (t *fakeTx) InsertTask(_ context.Context, goalID, phaseID int64, item *plan.TaskItem, weeks *int) (int64, error) {
	if t.store.failTaskN > 0 && len(t.tasks)+1 == t.store.failTaskN {
		return 0, errors.Join(domain.ErrStorage, errors.New("forced constraint violation"))
	}
	id := t.store.nextID.Add(1)
	t.tasks = append(t.tasks, fakeTask{id: id, goalID: goalID, phaseID: phaseID, name: item.Task, weeks: weeks})
	return id, nil
}

func (t *fakeTx) Technologies() database.Lookup { return t.store.technologies }
func (t *fakeTx) Deliverables() database.Lookup { return t.store.deliverables }

func (t *fakeTx) LinkTechnology(_ context.Context, taskID, technologyID int64) error {
	t.techLinks = appendLink(t.techLinks, fakeLink{taskID, technologyID})
	return nil
}

func (t *fakeTx) LinkDeliverable(_ context.Context, taskID, deliverableID int64) error {
	t.delLinks = appendLink(t.delLinks, fakeLink{taskID, deliverableID})
	return nil
}

// appendLink ignores duplicate pairs like ON CONFLICT DO NOTHING.
func appendLink(links []fakeLink, l fakeLink) []fakeLink {
	for _, x := range links {
		if x == l {
			return links
		}
	}
	return append(links, l)
}

// fakeLookup is a name-unique table guarded by a mutex.
type fakeLookup struct {
	mu   sync.Mutex
	ids  map[string]int64
	next *atomic.Int64
}

func (l *fakeLookup) GetOrCreate(_ context.Context, name string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.ids[name]; ok {
		return id, nil
	}
	id := l.next.Add(1)
	l.ids[name] = id
	return id, nil
}

func (l *fakeLookup) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

// fakeQueue implements messagequeue.Queue for testing.
type fakeQueue struct {
	mu         sync.Mutex
	published  []publishedMsg
	publishErr error
}

type publishedMsg struct {
	subject string
	data    []byte
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, publishedMsg{subject, data})
	return nil
}

func (q *fakeQueue) Drain() error { return nil }
func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) messages() []publishedMsg {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]publishedMsg(nil), q.published...)
}

// memCache implements cache.Cache with a map.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
