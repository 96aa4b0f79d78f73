package auth

import (
	"strings"

	"trivia-rank-service/internal/domain"
)

// EmailAllowlist grants administrative privilege to a fixed set of emails.
type EmailAllowlist struct {
	emails map[string]struct{}
}

func NewEmailAllowlist(emails []string) *EmailAllowlist {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	return &EmailAllowlist{emails: set}
}

// IsPrivileged matches the identity's email case-insensitively.
func (a *EmailAllowlist) IsPrivileged(id domain.Identity) bool {
	if id.Email == "" {
		return false
	}
	_, ok := a.emails[strings.ToLower(id.Email)]
	return ok
}
