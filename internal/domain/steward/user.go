package steward

import "fmt"

// AuthUser is the account owning the GitHub token.
type AuthUser struct {
	// Login is the GitHub handle.
	Login string
	// Name is the public display name, falling back to Login.
	Name string
	// Email is the public email, falling back to the noreply address.
	Email string
}

// NewAuthUser builds an AuthUser, filling missing profile fields.
func NewAuthUser(login, name, email string) AuthUser {
	if name == "" {
		name = login
	}

	if email == "" {
		email = fmt.Sprintf("%s@users.noreply.github.com", login)
	}

	return AuthUser{
		Login: login,
		Name:  name,
		Email: email,
	}
}

// GitHubAppInfo identifies the GitHub App Scala Steward authenticates as.
type GitHubAppInfo struct {
	// ID is the numeric app id.
	ID string
	// KeyFile is the path to the app's private key.
	KeyFile string
}
