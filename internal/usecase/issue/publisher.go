// Package issue реализует координатор жизненного цикла обращений: создание, смена статуса
// с начислением баллов, удаление и чтение.
package issue

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/cityfix-backend/internal/domain/event"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/keylock"
)

// Publisher доставляет события наблюдателям. Publish не должен блокироваться
// на сети и не возвращает ошибок доставки.
type Publisher interface {
	Publish(e event.Event)
}

// IssueLocks упорядочивает «запись + публикацию» для одного обращения внутри процесса.
// Один экземпляр должен разделяться между use case смены статуса и удаления.
type IssueLocks = keylock.KeyedMutex[uuid.UUID]

func NewIssueLocks() *IssueLocks {
	return keylock.New[uuid.UUID]()
}
