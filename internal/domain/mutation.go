package domain

import "time"

// Entity — тип коллекции, к которой относится мутация.
type Entity string

const (
	EntityCustomer    Entity = "customer"
	EntityColor       Entity = "color"
	EntityCombination Entity = "combination"
	EntityOrder       Entity = "order"
)

// MutationPhase — стадия подтверждения локальной (оптимистичной) мутации.
type MutationPhase string

const (
	// MutationCommitted — хранилище подтвердило изменение.
	MutationCommitted MutationPhase = "committed"
	// MutationPending — изменение применено локально и ждёт подтверждения.
	MutationPending MutationPhase = "pending"
	// MutationFailed — хранилище отклонило изменение; локальное состояние не откатывается.
	MutationFailed MutationPhase = "failed"
)

// MutationState описывает состояние последней мутации сущности.
type MutationState struct {
	Phase    MutationPhase
	Op       string
	Since    time.Time
	Reason   string
	Attempts int
}

// PendingSince создаёт состояние ожидания подтверждения.
func PendingSince(op string, at time.Time) MutationState {
	return MutationState{Phase: MutationPending, Op: op, Since: at}
}

// Committed создаёт подтверждённое состояние.
func Committed(op string, at time.Time) MutationState {
	return MutationState{Phase: MutationCommitted, Op: op, Since: at}
}

// Failed создаёт состояние ошибки с причиной.
func Failed(op, reason string, at time.Time) MutationState {
	return MutationState{Phase: MutationFailed, Op: op, Since: at, Reason: reason}
}

// Speculative сообщает, что состояние ещё не подтверждено хранилищем.
func (s MutationState) Speculative() bool {
	return s.Phase != MutationCommitted
}
