package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "s3cret-pass"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong-pass", hash)
	req.NoError(err)
	req.False(match)

	_, err = ComparePassword(password, "$bcrypt$nope")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr string
	}{
		{"Valid request", RegisterRequest{"alice", "alice@example.com", "secret"}, ""},
		{"Missing username", RegisterRequest{"", "alice@example.com", "secret"}, "Username is required."},
		{"Missing email", RegisterRequest{"alice", "", "secret"}, "Email is required."},
		{"Invalid email", RegisterRequest{"alice", "notanemail", "secret"}, "Enter a valid email address."},
		{"Missing password", RegisterRequest{"alice", "alice@example.com", ""}, "Password is required."},
		{"Password too short", RegisterRequest{"alice", "alice@example.com", "12345"}, "Password must be at least 6 characters long."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.wantErr == "" {
				req.NoError(err)
				return
			}
			req.EqualError(err, tt.wantErr)
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := require.New(t)

	token, ok := BearerToken("Bearer abc.def")
	req.True(ok)
	req.Equal("abc.def", token)

	token, ok = BearerToken("bearer xyz")
	req.True(ok)
	req.Equal("xyz", token)

	_, ok = BearerToken("Basic abc")
	req.False(ok)

	_, ok = BearerToken("Bearer ")
	req.False(ok)
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
