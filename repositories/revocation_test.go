package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Revoke_Token(t *testing.T) {
	req := require.New(t)
	repository := NewRevocationRepository(openDB(t))

	revoked, err := repository.IsRevoked("jti-1")
	req.NoError(err)
	req.False(revoked)

	req.NoError(repository.Revoke("jti-1", time.Now().Add(time.Hour)))
	revoked, err = repository.IsRevoked("jti-1")
	req.NoError(err)
	req.True(revoked)
}

func Test_Revoke_Expired_Token_Is_Noop(t *testing.T) {
	req := require.New(t)
	repository := NewRevocationRepository(openDB(t))

	req.NoError(repository.Revoke("jti-old", time.Now().Add(-time.Minute)))
	revoked, err := repository.IsRevoked("jti-old")
	req.NoError(err)
	req.False(revoked)
}
