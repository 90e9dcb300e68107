// Package address turns free-text recipient tokens into validated mail
// addresses and collects them into de-duplicated sets.
package address

import (
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultCharset is used when no charset is configured.
const DefaultCharset = "UTF-8"

var (
	// ErrNoDomain is returned for a token without '@' when no usable suffix is configured.
	ErrNoDomain = errors.New("address has no domain")
	// ErrInvalid is returned when a token does not parse as an RFC 5322 address.
	ErrInvalid = errors.New("invalid address")
)

// Address is a validated mailbox with an optional display name.
type Address struct {
	Name    string
	Addr    string
	Charset string
}

// Normalize parses token into an Address. A token without '@' gets
// defaultSuffix appended when the suffix itself contains '@'. The display name
// is kept and encoded with charset when rendered.
func Normalize(token, defaultSuffix, charset string) (*Address, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalid)
	}
	if !strings.Contains(token, "@") {
		if !strings.Contains(defaultSuffix, "@") {
			return nil, fmt.Errorf("%w: %s", ErrNoDomain, token)
		}
		token += defaultSuffix
	}

	parsed, err := mail.ParseAddress(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, token, err)
	}
	if charset == "" {
		charset = DefaultCharset
	}
	return &Address{Name: parsed.Name, Addr: parsed.Address, Charset: charset}, nil
}

// Key is the identity used for set membership. Addresses are compared
// case-insensitively.
func (a *Address) Key() string {
	return strings.ToLower(a.Addr)
}

// Equal reports whether two addresses identify the same mailbox.
func (a *Address) Equal(b *Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Key() == b.Key()
}

// String renders the address for a mail header. Non-ASCII display names are
// encoded as RFC 2047 words in the address charset.
func (a *Address) String() string {
	if a.Name == "" || isASCII(a.Name) || isUTF8(a.Charset) || lookupCharset(a.Charset) == nil {
		return (&mail.Address{Name: a.Name, Address: a.Addr}).String()
	}
	return EncodeWord(a.Charset, a.Name) + " " + (&mail.Address{Address: a.Addr}).String()
}

// EncodeWord returns s unchanged when it is ASCII, and otherwise as an
// RFC 2047 encoded-word in charset. Text the charset cannot represent, or an
// unknown charset, falls back to UTF-8.
func EncodeWord(charset, s string) string {
	if isASCII(s) {
		return s
	}
	if !isUTF8(charset) {
		if enc := lookupCharset(charset); enc != nil {
			if raw, err := enc.NewEncoder().String(s); err == nil {
				return mime.BEncoding.Encode(charset, raw)
			}
		}
	}
	return mime.QEncoding.Encode("utf-8", s)
}

// Transcode converts UTF-8 text to charset. Characters the charset cannot
// represent are replaced. Unknown charsets leave s untouched.
func Transcode(charset, s string) string {
	if isUTF8(charset) {
		return s
	}
	enc := lookupCharset(charset)
	if enc == nil {
		return s
	}
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).String(s)
	if err != nil {
		return s
	}
	return out
}

// Mail returns the address as a go-message mail.Address.
func (a *Address) Mail() *mail.Address {
	return &mail.Address{Name: a.Name, Address: a.Addr}
}

// Tokenize splits a recipients string on whitespace and commas.
func Tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isUTF8(charset string) bool {
	switch strings.ToUpper(strings.ReplaceAll(charset, "_", "-")) {
	case "", "UTF-8", "UTF8":
		return true
	}
	return false
}

func lookupCharset(name string) encoding.Encoding {
	enc, err := ianaindex.MIME.Encoding(name)
	if err != nil {
		return nil
	}
	return enc
}

// ValidCharset reports whether name is a charset messages can be encoded in.
func ValidCharset(name string) bool {
	return isUTF8(name) || lookupCharset(name) != nil
}
