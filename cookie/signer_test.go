package cookie

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hsSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte(strings.Repeat("k", 32)),
		Issuer:        "goaccount",
	})
	require.NoError(t, err)
	return s
}

func TestSignParseRoundTrip(t *testing.T) {
	s := hsSigner(t)

	value, err := s.Sign("sid-123")
	require.NoError(t, err)

	sid, err := s.Parse(value)
	require.NoError(t, err)
	assert.Equal(t, "sid-123", sid)
}

func TestParseRejectsTamperedAndExpired(t *testing.T) {
	s := hsSigner(t)
	value, err := s.Sign("sid-123")
	require.NoError(t, err)

	_, err = s.Parse(value[:len(value)-2] + "xx")
	assert.True(t, errors.Is(err, ErrInvalidCookie))

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Parse(value)
	assert.True(t, errors.Is(err, ErrInvalidCookie))
}

func TestParseRejectsOtherKey(t *testing.T) {
	a := hsSigner(t)
	b, err := NewSigner(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("z", 32)), Issuer: "goaccount"})
	require.NoError(t, err)

	value, err := a.Sign("sid")
	require.NoError(t, err)
	_, err = b.Parse(value)
	assert.ErrorIs(t, err, ErrInvalidCookie)
}

func TestEd25519Signer(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	s, err := NewSigner(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	require.NoError(t, err)

	value, err := s.Sign("sid-ed")
	require.NoError(t, err)
	sid, err := s.Parse(value)
	require.NoError(t, err)
	assert.Equal(t, "sid-ed", sid)
}

func TestNewSignerValidation(t *testing.T) {
	_, err := NewSigner(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("short")})
	assert.Error(t, err)
	_, err = NewSigner(Config{SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("k", 32))})
	assert.Error(t, err)
	_, err = NewSigner(Config{TTL: time.Hour, SigningMethod: "none"})
	assert.Error(t, err)
}

func TestWriteReadClear(t *testing.T) {
	s := hsSigner(t)

	rec := httptest.NewRecorder()
	require.NoError(t, s.Write(rec, "sid-cookie"))

	resp := rec.Result()
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, "sid-cookie", s.Read(req))

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", s.Read(bare))

	rec = httptest.NewRecorder()
	s.Clear(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func FuzzParse(f *testing.F) {
	s, err := NewSigner(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("k", 32))})
	if err != nil {
		f.Fatal(err)
	}
	valid, _ := s.Sign("sid")
	f.Add(valid)
	f.Add("")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJub25lIn0.e30.")

	f.Fuzz(func(t *testing.T, value string) {
		_, _ = s.Parse(value)
	})
}
