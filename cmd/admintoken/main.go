// Команда admintoken выпускает JWT администратора для заголовка
// "Authorization: Bearer <token>". Секрет берётся из той же конфигурации, что и у сервера.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ignatzorin/cityfix-backend/internal/config"
	"github.com/ignatzorin/cityfix-backend/internal/logger"
	"github.com/ignatzorin/cityfix-backend/internal/service"
)

func main() {
	subject := flag.String("subject", "operator", "кому выдаётся токен (попадает в claim sub)")
	ttl := flag.Duration("ttl", 0, "срок действия; 0 — ADMIN_TOKEN_TTL из конфигурации")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("admintoken: %v", err)
	}

	lifetime := cfg.AdminTokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, exp, err := service.NewAdminTokenManager(cfg.JWTSecret, lifetime).Generate(*subject)
	if err != nil {
		logger.Log.Fatalf("admintoken: не удалось выпустить токен: %v", err)
	}

	fmt.Fprintln(os.Stdout, token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", exp.UTC().Format(time.RFC3339))
}
