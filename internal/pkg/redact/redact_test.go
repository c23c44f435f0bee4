package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"alice@edubloom.io": "al***@edubloom.io",
		"ab@x.com":          "***@x.com",
		"not-an-email":      "***",
		"a@b@c":             "***",
		"trailing@":         "***",
	}

	for in, want := range cases {
		require.Equal(t, want, Email(in), in)
	}
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	require.Equal(t, "[REDACTED_TOKEN]", Token())
	require.Equal(t, "[REDACTED_PASSWORD]", Password())
}
