package service

import "github.com/google/uuid"

// Operation — операции над задачами, требующие решения о доступе.
type Operation string

const (
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpToggle Operation = "toggle"
)

// Decision — результат проверки доступа.
type Decision int

const (
	// DecisionDeny — доступ запрещён.
	DecisionDeny Decision = iota
	// DecisionFull — полный доступ к задаче.
	DecisionFull
	// DecisionRedacted — доступ к задаче с сокрытием приватных полей.
	DecisionRedacted
)

// Decide — чистая функция авторизации: по операции, субъекту и владельцу
// задачи возвращает решение о доступе. Не обращается к хранилищу и не
// зависит от состояния Service.
//
// Правила:
//   - владелец получает полный доступ на любую операцию;
//   - list разрешён всем аутентифицированным, но чужие задачи отдаются
//     в редуцированном виде (описание скрывается на уровне транспорта);
//   - остальные операции (get/update/delete/toggle) — только владельцу.
func Decide(op Operation, subject, owner uuid.UUID) Decision {
	if subject == owner {
		return DecisionFull
	}

	if op == OpList {
		return DecisionRedacted
	}

	return DecisionDeny
}
