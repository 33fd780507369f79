package cookie

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCookie is returned for missing, tampered or expired cookies.
var ErrInvalidCookie = errors.New("invalid session cookie")

// SigningMethod selects the JWT algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Config describes the cookie and its signature.
type Config struct {
	Name          string
	Path          string
	Domain        string
	Secure        bool
	TTL           time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret for HS256 or the Ed25519 private key
	// (raw or PEM).
	PrivateKey []byte
	// PublicKey is the Ed25519 public key (raw or PEM). Unused for HS256.
	PublicKey []byte
	Issuer    string
	Leeway    time.Duration
}

// Claims is the JWT payload.
type Claims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Signer signs and verifies session cookies.
type Signer struct {
	config    Config
	signKey   interface{}
	verifyKey interface{}
	now       func() time.Time
}

// NewSigner validates cfg and prepares its keys.
func NewSigner(cfg Config) (*Signer, error) {
	if cfg.Name == "" {
		cfg.Name = "goaccount_session"
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("cookie ttl must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	s := &Signer{config: cfg, now: time.Now}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a key of at least 32 bytes")
		}
		s.signKey = cfg.PrivateKey
		s.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		s.signKey = priv
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			s.verifyKey = pub
		} else {
			s.verifyKey = priv.Public()
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return s, nil
}

// Name returns the cookie name.
func (s *Signer) Name() string {
	return s.config.Name
}

// Sign returns the signed JWT for sessionID.
func (s *Signer) Sign(sessionID string) (string, error) {
	now := s.now()
	claims := Claims{
		SID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}
	return jwt.NewWithClaims(s.method(), claims).SignedString(s.signKey)
}

// Parse verifies value and returns the session id it carries.
func (s *Signer) Parse(value string) (string, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(value, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != s.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return s.verifyKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SID == "" {
		return "", ErrInvalidCookie
	}
	return claims.SID, nil
}

// Write sets the session cookie for sessionID on w.
func (s *Signer) Write(w http.ResponseWriter, sessionID string) error {
	value, err := s.Sign(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.Name,
		Value:    value,
		Path:     s.config.Path,
		Domain:   s.config.Domain,
		MaxAge:   int(s.config.TTL / time.Second),
		Secure:   s.config.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the session id carried by r's cookie, or "" when the cookie
// is absent or invalid.
func (s *Signer) Read(r *http.Request) string {
	c, err := r.Cookie(s.config.Name)
	if err != nil || c.Value == "" {
		return ""
	}
	sid, err := s.Parse(c.Value)
	if err != nil {
		return ""
	}
	return sid
}

// Clear expires the session cookie on w.
func (s *Signer) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.Name,
		Value:    "",
		Path:     s.config.Path,
		Domain:   s.config.Domain,
		MaxAge:   -1,
		Secure:   s.config.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Signer) method() jwt.SigningMethod {
	if s.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
