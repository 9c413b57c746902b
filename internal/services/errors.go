package services

import "errors"

// Ошибки предметной области. Обработчики сопоставляют их с HTTP-статусами
// через errors.Is; все прочие ошибки считаются ошибками хранилища.
var (
	ErrValidation        = errors.New("некорректные данные")
	ErrRateLimited       = errors.New("лимит загрузок на сегодня исчерпан")
	ErrInvalidKey        = errors.New("недействительный ключ загрузки")
	ErrNotFound          = errors.New("не найдено")
	ErrInvalidStatus     = errors.New("недопустимый статус")
	ErrInvalidTransition = errors.New("недопустимый переход статуса")
	ErrNotEditable       = errors.New("запись нельзя редактировать")
	ErrUnauthorized      = errors.New("неверный пароль")
)

// IsDomain сообщает, относится ли ошибка к предметной области
// (в отличие от ошибок хранилища).
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrRateLimited, ErrInvalidKey, ErrNotFound,
		ErrInvalidStatus, ErrInvalidTransition, ErrNotEditable, ErrUnauthorized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
