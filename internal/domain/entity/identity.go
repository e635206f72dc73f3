package entity

// Identity is the caller as resolved by the authentication provider.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (i Identity) Valid() bool {
	return i.UserID != "" && i.Role.Valid()
}
