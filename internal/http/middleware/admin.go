package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextIsAdminKey: ключ gin.Context с признаком администратора.
const ContextIsAdminKey = "isAdmin"

const AdminPasswordHeader = "X-Admin-Password"

// AdminChecker проверяет учётные данные администратора.
type AdminChecker interface {
	IsAdmin(password, bearerToken string) bool
}

// AdminMiddleware вычисляет признак администратора и кладёт его в контекст.
// Запрос не прерывается: решение об отказе принимают use case.
func AdminMiddleware(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := ""
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			bearer = strings.TrimPrefix(auth, "Bearer ")
		}
		c.Set(ContextIsAdminKey, checker.IsAdmin(c.GetHeader(AdminPasswordHeader), bearer))
		c.Next()
	}
}

// IsAdmin возвращает признак, вычисленный AdminMiddleware.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextIsAdminKey)
}
