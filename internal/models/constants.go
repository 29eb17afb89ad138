package models

// Роли пользователей, приходящие из слоя идентификации.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// ValidRoles список ролей, для которых открываются аккаунты.
var ValidRoles = map[string]struct{}{
	RoleStudent: {},
	RoleAdmin:   {},
}
