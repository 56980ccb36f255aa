package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "alice@example.com", want: "al***@example.com"},
		{in: "ab@example.com", want: "***@example.com"},
		{in: "a@example.com", want: "***@example.com"},
		{in: "not-an-email", want: "***"},
		{in: "", want: "***"},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, Email(tc.in), "email=%q", tc.in)
	}
}
