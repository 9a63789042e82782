package mapper

import (
	"github.com/AlibekovAA/jwt-auth-api/internal/common/dto"
	userdomain "github.com/AlibekovAA/jwt-auth-api/internal/user/domain"
)

// UserToRegistered is the body returned by registration. It never carries the
// password hash.
func UserToRegistered(user userdomain.User) dto.RegisteredUser {
	return dto.RegisteredUser{
		ID:    string(user.ID),
		Email: user.Email,
	}
}

func UserToProfile(user userdomain.User) dto.UserProfile {
	return dto.UserProfile{
		ID:       string(user.ID),
		Username: user.Username,
		Email:    user.Email,
	}
}
