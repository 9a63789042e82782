package dto

type RegisteredUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
