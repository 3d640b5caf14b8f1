// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a registered identity. Username and Email are globally unique;
// PasswordHash is never plaintext. Tokens lists the hashes of the bearer
// tokens currently valid for this account, in issue order.
type Account struct {
	ID           string
	Username     string
	Email        string
	Disabled     bool
	PasswordHash string
	Tokens       []TokenRecord
	CreatedAt    time.Time
}

// TokenRecord is persisted proof that a bearer token is active. TokenHash is
// a salted one-way hash of the raw token, never the token itself.
type TokenRecord struct {
	TokenHash string    `json:"token_hash"`
	IssuedAt  time.Time `json:"issued_at"`
}

// AddToken appends a record for an already hashed token.
func (a *Account) AddToken(tokenHash string, issuedAt time.Time) {
	a.Tokens = append(a.Tokens, TokenRecord{TokenHash: tokenHash, IssuedAt: issuedAt})
}

// FindToken returns the index of the first record whose hash satisfies
// match, or -1.
func (a *Account) FindToken(match func(tokenHash string) bool) int {
	for i, rec := range a.Tokens {
		if match(rec.TokenHash) {
			return i
		}
	}
	return -1
}

// RemoveTokenAt drops the record at i, keeping the order of the rest.
// Out of range indexes are ignored.
func (a *Account) RemoveTokenAt(i int) {
	if i < 0 || i >= len(a.Tokens) {
		return
	}
	a.Tokens = append(a.Tokens[:i:i], a.Tokens[i+1:]...)
}

// ClearTokens drops every record.
func (a *Account) ClearTokens() {
	a.Tokens = []TokenRecord{}
}

// Clone returns a deep copy so callers can mutate it freely.
func (a *Account) Clone() *Account {
	c := *a
	c.Tokens = append([]TokenRecord(nil), a.Tokens...)
	return &c
}
