package model

import "time"

// Role разделяет пользователей на менеджеров и клиентов. Назначается при
// регистрации и больше не меняется.
type Role string

const (
	RoleManager Role = "manager"
	RoleClient  Role = "client"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleManager || r == RoleClient
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserPublic struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
