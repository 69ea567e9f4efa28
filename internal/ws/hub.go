package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/cityfix-backend/internal/domain/event"
	"github.com/ignatzorin/cityfix-backend/internal/goroutine"
	"github.com/ignatzorin/cityfix-backend/internal/metrics"
)

// Observer: подключённый получатель событий.
type Observer interface {
	ID() uuid.UUID
	// Enqueue ставит сообщение в очередь без блокировки; false означает, что
	// очередь переполнена или наблюдатель уже закрыт.
	Enqueue(payload []byte) bool
	Close()
}

// Hub хранит реестр наблюдателей и рассылает им события жизненного цикла.
//
// Рассылка выполняется под единой блокировкой, поэтому все наблюдатели получают
// события в одном и том же относительном порядке. Publish никогда не ждёт сеть:
// наблюдатель с заполненной очередью отключается.
type Hub struct {
	mu        sync.Mutex
	observers map[uuid.UUID]Observer
	closed    bool

	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	recovery *goroutine.RecoveryHandler
}

// NewHub создаёт новый хаб.
func NewHub(log logrus.FieldLogger, m *metrics.Metrics) *Hub {
	return &Hub{
		observers: make(map[uuid.UUID]Observer),
		log:       log,
		metrics:   m,
		recovery:  goroutine.NewFieldLoggerHandler(log),
	}
}

// Run ждёт отмены контекста и отключает всех наблюдателей.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Shutdown()
}

// Register добавляет наблюдателя. После Shutdown новые подключения сразу закрываются.
func (h *Hub) Register(o Observer) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		o.Close()
		return
	}
	h.observers[o.ID()] = o
	n := len(h.observers)
	h.mu.Unlock()

	h.metrics.ObserversConnected.Set(float64(n))
	h.log.WithFields(logrus.Fields{"observer_id": o.ID(), "observers": n}).Debug("ws: observer connected")
}

// Unregister удаляет наблюдателя, если он всё ещё зарегистрирован.
func (h *Hub) Unregister(o Observer) {
	h.mu.Lock()
	current, ok := h.observers[o.ID()]
	if ok && current == o {
		delete(h.observers, o.ID())
	}
	n := len(h.observers)
	h.mu.Unlock()

	if ok {
		h.metrics.ObserversConnected.Set(float64(n))
		h.log.WithFields(logrus.Fields{"observer_id": o.ID(), "observers": n}).Debug("ws: observer disconnected")
	}
}

// Publish доставляет событие всем наблюдателям, подключённым в момент вызова.
// Ошибки отдельных наблюдателей не возвращаются вызывающему.
func (h *Hub) Publish(e event.Event) {
	payload, err := event.Encode(e)
	if err != nil {
		h.log.WithError(err).Error("ws: событие не отправлено")
		return
	}

	var dropped []Observer

	h.mu.Lock()
	for id, o := range h.observers {
		if !o.Enqueue(payload) {
			delete(h.observers, id)
			dropped = append(dropped, o)
		}
	}
	n := len(h.observers)
	h.mu.Unlock()

	h.metrics.EventsPublished.WithLabelValues(string(e.Kind())).Inc()
	if len(dropped) == 0 {
		return
	}

	h.metrics.ObserversConnected.Set(float64(n))
	h.metrics.ObserversDropped.Add(float64(len(dropped)))
	for _, o := range dropped {
		o := o
		h.log.WithField("observer_id", o.ID()).Warn("ws: очередь наблюдателя переполнена, отключаем")
		// Закрываем клиент асинхронно с panic recovery
		h.recovery.SafeGo(o.Close)
	}
}

// Count возвращает количество подключённых наблюдателей.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

// Shutdown отключает всех наблюдателей и запрещает новые регистрации.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	observers := make([]Observer, 0, len(h.observers))
	for id, o := range h.observers {
		observers = append(observers, o)
		delete(h.observers, id)
	}
	h.mu.Unlock()

	h.metrics.ObserversConnected.Set(0)
	for _, o := range observers {
		h.recovery.Run(o.Close)
	}
}
