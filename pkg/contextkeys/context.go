package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

const (
	// DBContextKey - ключ, по которому хранится *gorm.DB (пул или транзакция)
	DBContextKey = contextKey("db")

	// UserIDKey и RoleKey - ключи gin.Context, которые выставляет AuthMiddleware
	UserIDKey = contextKey("userID")
	RoleKey   = contextKey("role")
)

// String возвращает ключ в виде строки для c.Set / c.Get
func (k contextKey) String() string {
	return string(k)
}
