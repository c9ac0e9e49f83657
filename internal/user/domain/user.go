package domain

import "errors"

var ErrUserNotFound = errors.New("user not found")

// User is the slice of the profile checkout needs: shipping defaults and a
// password hash that must never serialize.
type User struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PhoneNumber  string `json:"phoneNumber"`
	Address      string `json:"address"`
	PasswordHash string `json:"-"`
}

func (u User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
