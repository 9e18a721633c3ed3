package users

import "time"

// User is an operator account. Operators create installation tokens and
// browse registered assets; agents never authenticate as users.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

const RoleOperator = "operator"
