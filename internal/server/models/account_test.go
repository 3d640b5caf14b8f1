package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func hashes(a *Account) []string {
	out := make([]string, 0, len(a.Tokens))
	for _, r := range a.Tokens {
		out = append(out, r.TokenHash)
	}
	return out
}

func TestAccount_TokenList(t *testing.T) {
	now := time.Now()
	a := &Account{Username: "Dummy1"}

	a.AddToken("h1", now)
	a.AddToken("h2", now)
	a.AddToken("h3", now)
	a.AddToken("h2", now)
	assert.Equal(t, []string{"h1", "h2", "h3", "h2"}, hashes(a))

	i := a.FindToken(func(h string) bool { return h == "h2" })
	assert.Equal(t, 1, i)
	assert.Equal(t, -1, a.FindToken(func(h string) bool { return h == "nope" }))

	a.RemoveTokenAt(i)
	assert.Equal(t, []string{"h1", "h3", "h2"}, hashes(a))

	a.RemoveTokenAt(-1)
	a.RemoveTokenAt(10)
	assert.Len(t, a.Tokens, 3)

	a.ClearTokens()
	assert.Empty(t, a.Tokens)
	assert.NotNil(t, a.Tokens)
}

func TestAccount_RemoveDoesNotAliasClone(t *testing.T) {
	a := &Account{}
	a.AddToken("h1", time.Time{})
	a.AddToken("h2", time.Time{})

	c := a.Clone()
	c.RemoveTokenAt(0)

	assert.Equal(t, []string{"h1", "h2"}, hashes(a))
	assert.Equal(t, []string{"h2"}, hashes(c))
}
