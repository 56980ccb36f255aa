package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority — приоритет задачи.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid сообщает, входит ли приоритет в допустимое множество.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}

	return false
}

// Todo — задача пользователя.
//
// Владелец (UserID) назначается при создании и далее не меняется;
// все owner-only операции сверяют субъекта запроса с этим полем.
// Description — чувствительное поле: в общих списках оно скрывается
// для чужих задач (см. service.Decide).
type Todo struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	Priority    *Priority
	DueDate     *time.Time
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TodoStats — агрегированная статистика задач одного пользователя.
type TodoStats struct {
	Total      int64
	Completed  int64
	Pending    int64
	ByPriority map[string]int64
}
