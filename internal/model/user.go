package model

import "time"

// User represents a registered account.
//
// The Phone column is the unique login identifier. It is overloaded: for SMS
// logins it holds a real phone number, for GitHub OAuth logins it holds
// "github_<id>" (see LoginID for the prefixing convention). One column, two
// identifier kinds — the prefix keeps them from colliding, since phone
// numbers never start with a letter.
//
// WHY Password string (not a hash)?
// Accounts are created by SMS code or OAuth — the password is never verified.
// It is stored as a placeholder marker only: "N/A" for SMS-origin accounts,
// "OAUTH_LOGIN" for OAuth-origin ones. `json:"-"` keeps it out of every
// response regardless.
type User struct {
	ID         int64     `json:"id"`
	Phone      string    `json:"phone"` // unique login identifier (or github_<id>)
	Username   string    `json:"username"`
	Password   string    `json:"-"` // placeholder marker, never verified
	CreateTime time.Time `json:"createTime"`
}
