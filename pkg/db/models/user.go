package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pierrevannier/freelancehub-backend/pkg/enums"
)

// User is the account profile row. Credentials live with the external auth
// provider; this service only needs identity and role.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string         `gorm:"column:email;not null;unique"`
	FullName  string         `gorm:"column:full_name"`
	Role      enums.UserRole `gorm:"column:role;type:user_role;not null;default:'member'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
