package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"picwall/internal/models"
)

// Identity описывает клиента парой из сетевого адреса и строки user-agent.
type Identity struct {
	Address string
	Agent   string
}

// Fingerprint строит идентичность клиента. Чистая функция без побочных эффектов.
func Fingerprint(networkAddress, clientAgent string) Identity {
	return Identity{
		Address: strings.TrimSpace(networkAddress),
		Agent:   strings.TrimSpace(clientAgent),
	}
}

// Hash: стабильный ключ идентичности для лимитов и хранения.
func (i Identity) Hash() string {
	return digest(i.Address, i.Agent)
}

// TokenFor: детерминированный токен загрузки на календарную дату date.
func (i Identity) TokenFor(date string) string {
	return digest(i.Address, i.Agent, date)
}

func digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		// Нулевой байт-разделитель исключает склейку "ab"+"c" == "a"+"bc"
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Clock: источник текущего времени.
type Clock func() time.Time

// DateOf возвращает календарную дату t в формате models.DateLayout.
func DateOf(t time.Time) string {
	return t.Format(models.DateLayout)
}

// DayBounds возвращает границы календарного дня t: [start, end).
func DayBounds(t time.Time) (start, end time.Time) {
	y, m, d := t.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
