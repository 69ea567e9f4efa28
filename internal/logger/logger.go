package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Log доступен до Init, чтобы пакеты и тесты могли писать в лог без проверки на nil.
var Log = logrus.New()

// Init инициализирует структурированный логгер.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Discard глушит вывод, используется в тестах.
func Discard() {
	Log.SetOutput(io.Discard)
}
