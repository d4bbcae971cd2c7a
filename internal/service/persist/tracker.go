package persist

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// TrackedMutation — состояние мутации вместе с адресом сущности.
type TrackedMutation struct {
	Entity domain.Entity
	ID     string
	State  domain.MutationState
}

type trackerKey struct {
	entity domain.Entity
	id     string
}

// Tracker хранит состояние последней мутации по каждой сущности.
type Tracker struct {
	mu      sync.RWMutex
	states  map[trackerKey]domain.MutationState
	aliases map[trackerKey]string
	now     func() time.Time
}

// NewTracker создаёт пустой tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states:  make(map[trackerKey]domain.MutationState),
		aliases: make(map[trackerKey]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// MarkPending отмечает мутацию как ожидающую подтверждения.
func (t *Tracker) MarkPending(entity domain.Entity, id, op string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[t.key(entity, id)] = domain.PendingSince(op, t.now())
}

// MarkAttempt увеличивает счётчик попыток ожидающей мутации.
func (t *Tracker) MarkAttempt(entity domain.Entity, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := t.key(entity, id)
	if state, ok := t.states[key]; ok {
		state.Attempts++
		t.states[key] = state
	}
}

// MarkCommitted отмечает мутацию как подтверждённую хранилищем.
func (t *Tracker) MarkCommitted(entity domain.Entity, id, op string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := t.key(entity, id)
	state := domain.Committed(op, t.now())
	state.Attempts = t.states[key].Attempts
	t.states[key] = state
}

// MarkFailed отмечает мутацию как отклонённую.
func (t *Tracker) MarkFailed(entity domain.Entity, id, op string, reason error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := t.key(entity, id)
	msg := ""
	if reason != nil {
		msg = reason.Error()
	}
	state := domain.Failed(op, msg, t.now())
	state.Attempts = t.states[key].Attempts
	t.states[key] = state
}

// Rekey переносит состояние с временного идентификатора на подтверждённый.
// Последующие обращения по временному идентификатору адресуют подтверждённый.
func (t *Tracker) Rekey(entity domain.Entity, fromID, toID string) {
	if fromID == toID || toID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	from := trackerKey{entity, fromID}
	t.aliases[from] = toID
	if state, ok := t.states[from]; ok {
		t.states[trackerKey{entity, toID}] = state
		delete(t.states, from)
	}
}

// Forget удаляет состояние сущности.
func (t *Tracker) Forget(entity domain.Entity, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, t.key(entity, id))
}

// State возвращает состояние мутации сущности.
func (t *Tracker) State(entity domain.Entity, id string) (domain.MutationState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.states[t.key(entity, id)]
	return state, ok
}

// Failed возвращает отклонённые мутации, от старых к новым.
func (t *Tracker) Failed() []TrackedMutation {
	return t.collect(domain.MutationFailed)
}

// Pending возвращает неподтверждённые мутации, от старых к новым.
func (t *Tracker) Pending() []TrackedMutation {
	return t.collect(domain.MutationPending)
}

// PendingCount возвращает число неподтверждённых мутаций.
func (t *Tracker) PendingCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	for _, state := range t.states {
		if state.Phase == domain.MutationPending {
			count++
		}
	}
	return count
}

func (t *Tracker) key(entity domain.Entity, id string) trackerKey {
	if target, ok := t.aliases[trackerKey{entity, id}]; ok {
		return trackerKey{entity, target}
	}
	return trackerKey{entity, id}
}

func (t *Tracker) collect(phase domain.MutationPhase) []TrackedMutation {
	t.mu.RLock()
	out := make([]TrackedMutation, 0)
	for key, state := range t.states {
		if state.Phase == phase {
			out = append(out, TrackedMutation{Entity: key.entity, ID: key.id, State: state})
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].State.Since.Equal(out[j].State.Since) {
			return out[i].ID < out[j].ID
		}
		return out[i].State.Since.Before(out[j].State.Since)
	})
	return out
}
