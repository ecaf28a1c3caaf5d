package models

// User is a registered account. Its player id is "user-<ID>".
type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
}

// RegisterRequest defines the structure for a user registration request.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,alphanum,min=3,max=20"`
	Password string `json:"password" binding:"required,min=6,max=50"`
}

// LoginRequest defines the structure for a user login request.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the token of a registered user.
type LoginResponse struct {
	Token string `json:"token"`
}

// GuestLoginResponse carries the generated player id and its token.
type GuestLoginResponse struct {
	PlayerID string `json:"player_id"`
	Token    string `json:"token"`
}
