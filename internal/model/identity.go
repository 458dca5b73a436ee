package model

import "fmt"

// LoginKind distinguishes the two kinds of login identifier that share the
// users.phone column.
type LoginKind int

const (
	// LoginKindPhone is a real phone number from the SMS flow.
	LoginKindPhone LoginKind = iota
	// LoginKindOAuth is a third-party subject id (e.g. GitHub's numeric id).
	LoginKindOAuth
)

// LoginID is a tagged-union login identifier.
//
// The database persists a single string column, but treating that string as
// "maybe a phone, maybe github_123" at every call site invites ambiguity
// bugs. Construct a LoginID with PhoneLogin or OAuthLogin and call Key()
// exactly once, at the storage boundary.
type LoginID struct {
	Kind     LoginKind
	Phone    string // set when Kind == LoginKindPhone
	Provider string // set when Kind == LoginKindOAuth, e.g. "github"
	Subject  string // provider's subject id, e.g. "123456"
}

// PhoneLogin builds a LoginID for a real phone number.
func PhoneLogin(phone string) LoginID {
	return LoginID{Kind: LoginKindPhone, Phone: phone}
}

// OAuthLogin builds a LoginID for a third-party subject.
func OAuthLogin(provider, subject string) LoginID {
	return LoginID{Kind: LoginKindOAuth, Provider: provider, Subject: subject}
}

func (k LoginKind) String() string {
	if k == LoginKindOAuth {
		return "oauth"
	}
	return "phone"
}

// Key renders the identifier as the string persisted in users.phone.
// OAuth subjects get a "<provider>_" prefix so they can never collide with
// a phone number ("github_123456" vs "13800001234").
func (l LoginID) Key() string {
	if l.Kind == LoginKindOAuth {
		return fmt.Sprintf("%s_%s", l.Provider, l.Subject)
	}
	return l.Phone
}
