// Package auth defines the authentication collaborator interface. The core
// never authenticates anyone; it only reads the current identity and signals
// the host UI when it wants a login surface presented.
package auth

// User is the identity supplied by the host's authentication provider.
type User struct {
	ID    string
	Name  string
	Email string
}

// Identity supplies the current, possibly absent, authenticated user.
type Identity interface {
	CurrentUser() (User, bool)
}

// Anonymous is an Identity with nobody signed in.
type Anonymous struct{}

func (Anonymous) CurrentUser() (User, bool) { return User{}, false }

// Static is an Identity resolved once, out of band, by the host.
type Static struct {
	User User
}

func (s Static) CurrentUser() (User, bool) { return s.User, s.User.ID != "" }
