package models

// Status: статус модерации записи.
type Status string

const (
	// StatusPending: начальный статус, запись ждет решения администратора
	StatusPending Status = "pending"
	// StatusApproved: запись видна публично, допускает комментарии и правку
	StatusApproved Status = "approved"
	// StatusRejected: конечный статус, файлы удалены
	StatusRejected Status = "rejected"
)

// Operation: операция над записью, разрешенная или запрещенная статусом.
type Operation string

const (
	OpComment Operation = "comment"
	OpEdit    Operation = "edit"
	OpList    Operation = "list"
	OpRandom  Operation = "random"
)

// reviewTransitions: допустимые переходы при рассмотрении.
// Повторное рассмотрение одобренной записи разрешено (исправление решения),
// из rejected вернуться нельзя, в pending вернуться нельзя.
var reviewTransitions = map[Status]map[Status]bool{
	StatusPending:  {StatusApproved: true, StatusRejected: true},
	StatusApproved: {StatusApproved: true, StatusRejected: true},
	StatusRejected: {StatusRejected: true},
}

// publicOperations: операции, разрешенные для каждого статуса.
var publicOperations = map[Status]map[Operation]bool{
	StatusPending:  {},
	StatusApproved: {OpComment: true, OpEdit: true, OpList: true, OpRandom: true},
	StatusRejected: {},
}

// allStatuses: все статусы в порядке жизненного цикла.
var allStatuses = []Status{StatusPending, StatusApproved, StatusRejected}

// StatusesAllowing возвращает статусы, в которых разрешена операция op.
func StatusesAllowing(op Operation) []Status {
	var out []Status
	for _, st := range allStatuses {
		if st.Allows(op) {
			out = append(out, st)
		}
	}
	return out
}

// ParseStatus разбирает строку статуса. Второе значение false для неизвестных строк.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, true
	}
	return "", false
}

// IsReviewTarget сообщает, может ли статус быть результатом рассмотрения.
func (s Status) IsReviewTarget() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanReviewTo проверяет переход s → target.
func (s Status) CanReviewTo(target Status) bool {
	return reviewTransitions[s][target]
}

// Allows сообщает, разрешена ли операция в статусе s.
func (s Status) Allows(op Operation) bool {
	return publicOperations[s][op]
}
