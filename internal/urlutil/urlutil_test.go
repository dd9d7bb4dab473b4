package urlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTP://Example.COM/Path",
			want: "http://example.com/Path",
		},
		{
			name: "empty path becomes root",
			in:   "https://example.com",
			want: "https://example.com/",
		},
		{
			name: "fragment dropped",
			in:   "https://example.com/p#section",
			want: "https://example.com/p",
		},
		{
			name: "query pairs sorted",
			in:   "http://a.com/p?b=2&a=1#x",
			want: "http://a.com/p?a=1&b=2",
		},
		{
			name: "empty query fragments dropped",
			in:   "http://a.com/p?&a=1&",
			want: "http://a.com/p?a=1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{
		"http://a.com/p?b=2&a=1#x",
		"HTTPS://WWW.Example.com",
		"https://example.com/a/b?z=9&y=8&x=7",
	}
	for _, in := range inputs {
		once, err := Canonicalize(in)
		require.NoError(t, err)
		twice, err := Canonicalize(once)
		require.NoError(t, err)
		require.Equal(t, once, twice)
	}
}

func TestCanonicalizeEquivalentForms(t *testing.T) {
	a, err := Canonicalize("http://a.com/p?b=2&a=1#x")
	require.NoError(t, err)
	b, err := Canonicalize("http://a.com/p?a=1&b=2")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestCanonicalizeInvalid(t *testing.T) {
	for _, in := range []string{"", "not a url", "/relative/only", "%%%"} {
		_, err := Canonicalize(in)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidURL)
	}
}

func TestSameSite(t *testing.T) {
	tests := []struct {
		name      string
		seed      string
		candidate string
		want      bool
	}{
		{"same host", "https://example.com/", "https://example.com/about", true},
		{"subdomain in scope", "https://example.com/", "https://blog.example.com/post", true},
		{"different domain", "https://example.com/", "https://other.com/", false},
		{"non http scheme", "https://example.com/", "mailto:info@example.com", false},
		{"multi-label suffix", "https://shop.example.co.uk/", "https://example.co.uk/x", true},
		{"same suffix different domain", "https://example.co.uk/", "https://other.co.uk/", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SameSite(tt.seed, tt.candidate))
		})
	}
}

func TestAbsolute(t *testing.T) {
	got, ok := Absolute("https://example.com/a/b", "../img/logo.png")
	require.True(t, ok)
	require.Equal(t, "https://example.com/img/logo.png", got)

	got, ok = Absolute("https://example.com/", "https://cdn.example.com/x.jpg")
	require.True(t, ok)
	require.Equal(t, "https://cdn.example.com/x.jpg", got)

	_, ok = Absolute("https://example.com/", "javascript:void(0)")
	require.False(t, ok)

	_, ok = Absolute("https://example.com/", "")
	require.False(t, ok)
}
