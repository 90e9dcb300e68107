package address

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		suffix   string
		wantAddr string
		wantName string
		wantErr  error
	}{
		{name: "plain", token: "alice@example.com", wantAddr: "alice@example.com"},
		{name: "suffix appended", token: "bob", suffix: "@example.com", wantAddr: "bob@example.com"},
		{name: "suffix ignored when token has domain", token: "bob@corp.test", suffix: "@example.com", wantAddr: "bob@corp.test"},
		{name: "no suffix", token: "bob", wantErr: ErrNoDomain},
		{name: "suffix without at", token: "bob", suffix: "example.com", wantErr: ErrNoDomain},
		{name: "quoted display name", token: `"Jane Doe" <jane@example.com>`, wantAddr: "jane@example.com", wantName: "Jane Doe"},
		{name: "bare display name", token: "Jane Doe <jane@example.com>", wantAddr: "jane@example.com", wantName: "Jane Doe"},
		{name: "malformed", token: "bob@@example", wantErr: ErrInvalid},
		{name: "empty", token: "  ", wantErr: ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.token, tt.suffix, "")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "error %v is not %v", err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, got.Addr)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, DefaultCharset, got.Charset)
		})
	}
}

func TestAddressString(t *testing.T) {
	plain := &Address{Addr: "a@example.com", Charset: "UTF-8"}
	assert.Equal(t, "<a@example.com>", plain.String())

	ascii := &Address{Name: "Ann", Addr: "a@example.com", Charset: "ISO-8859-1"}
	assert.Equal(t, `"Ann" <a@example.com>`, ascii.String())

	utf := &Address{Name: "José", Addr: "jose@example.com", Charset: "UTF-8"}
	assert.Equal(t, "=?utf-8?q?Jos=C3=A9?= <jose@example.com>", utf.String())

	latin := &Address{Name: "José", Addr: "jose@example.com", Charset: "ISO-8859-1"}
	assert.Equal(t, "=?ISO-8859-1?b?Sm9z6Q==?= <jose@example.com>", latin.String())

	unknown := &Address{Name: "José", Addr: "jose@example.com", Charset: "x-klingon"}
	assert.True(t, strings.HasPrefix(unknown.String(), "=?utf-8?"), "unknown charset falls back to UTF-8: %s", unknown.String())
}

func TestTokenize(t *testing.T) {
	got := Tokenize(" a@x.org,b@x.org\tc \n upstream-individuals:lib ,, ")
	assert.Equal(t, []string{"a@x.org", "b@x.org", "c", "upstream-individuals:lib"}, got)
	assert.Empty(t, Tokenize(" \t\n"))
}

func TestValidCharset(t *testing.T) {
	assert.True(t, ValidCharset("UTF-8"))
	assert.True(t, ValidCharset("ISO-8859-1"))
	assert.False(t, ValidCharset("x-klingon"))
}

func TestSet(t *testing.T) {
	a1, err := Normalize("Alice <Alice@Example.com>", "", "")
	require.NoError(t, err)
	a2, err := Normalize("alice@example.com", "", "")
	require.NoError(t, err)
	b, err := Normalize("bob", "@example.com", "")
	require.NoError(t, err)

	s := NewSet()
	assert.True(t, s.Add(a1))
	assert.False(t, s.Add(a2), "case-insensitive duplicate")
	assert.True(t, s.Add(b))
	assert.False(t, s.Add(nil))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"Alice@Example.com", "bob@example.com"}, s.Addrs())
	assert.True(t, s.Contains(a2))
	assert.True(t, s.ContainsAddr("BOB@example.com"))

	other := NewSet(b, &Address{Addr: "carol@example.com"})
	s.Merge(other)
	s.Merge(nil)
	assert.Equal(t, 3, s.Len())

	filtered := s.Filter(func(a *Address) bool { return !strings.HasPrefix(a.Key(), "bob") })
	assert.Equal(t, []string{"Alice@Example.com", "carol@example.com"}, filtered.Addrs())
	assert.Equal(t, 3, s.Len(), "Filter does not mutate the receiver")

	var nilSet *Set
	assert.Equal(t, 0, nilSet.Len())
	assert.Nil(t, nilSet.Addrs())
}

func TestEncodeWord(t *testing.T) {
	assert.Equal(t, "Build failed", EncodeWord("ISO-8859-1", "Build failed"))
	assert.Equal(t, "=?ISO-8859-1?b?Sm9z6Q==?=", EncodeWord("ISO-8859-1", "José"))
	assert.Equal(t, "=?utf-8?q?Jos=C3=A9?=", EncodeWord("UTF-8", "José"))
	assert.Equal(t, "=?utf-8?q?=E2=9C=93?=", EncodeWord("ISO-8859-1", "✓"), "unrepresentable text falls back to UTF-8")
}

func TestTranscode(t *testing.T) {
	assert.Equal(t, "Jos\xe9", Transcode("ISO-8859-1", "José"))
	assert.Equal(t, "José", Transcode("UTF-8", "José"))
	assert.Equal(t, "José", Transcode("x-klingon", "José"))
	assert.Len(t, Transcode("ISO-8859-1", "ok✓"), 3, "unsupported runes become one replacement byte")
}
