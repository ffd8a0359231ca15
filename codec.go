package tokenauth

import (
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Codec signs and verifies wire tokens. The signing method is chosen once at
// construction: HMAC-SHA256 when a key is supplied, otherwise the unsigned
// "none" fallback. The fallback makes tokens forgeable by anyone and exists
// only so local development works without provisioning a secret; its sole
// integrity check is that the header and payload segments are non-blank.
type Codec struct {
	method  jwt.SigningMethod
	signKey any
	keyFunc jwt.Keyfunc
	logger  Logger
	now     func() time.Time
}

type CodecOption func(*Codec)

// WithCodecLogger overrides the codec logger.
func WithCodecLogger(l Logger) CodecOption {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source. Used by tests to pin expiry
// boundaries.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithJWKS verifies tokens against remote JWK sets instead of the local
// signing key. Signing still uses the local key; this is for deployments
// that also accept tokens minted elsewhere.
func WithJWKS(urls ...string) CodecOption {
	return func(c *Codec) {
		if len(urls) == 0 {
			return
		}
		m := make(map[string]keyfunc.Options, len(urls))
		for _, url := range urls {
			m[url] = keyfunc.Options{
				RefreshInterval:   time.Hour,
				RefreshRateLimit:  time.Minute * 5,
				RefreshTimeout:    time.Second * 10,
				RefreshUnknownKID: true,
			}
		}
		multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
			KeySelector: keyfunc.KeySelectorFirst,
		})
		if err != nil {
			panic("TOKENAUTH: failed to create keyfunc from JWK Set URL: " + err.Error())
		}
		c.keyFunc = multi.Keyfunc
	}
}

// NewCodec builds a codec. An empty signing key selects the insecure
// unsigned fallback and logs a warning; never run that in production.
func NewCodec(signingKey []byte, opts ...CodecOption) *Codec {
	c := &Codec{
		logger: defLogger{},
		now:    time.Now,
	}

	if len(signingKey) > 0 {
		c.method = jwt.SigningMethodHS256
		c.signKey = signingKey
	} else {
		c.method = jwt.SigningMethodNone
		c.signKey = jwt.UnsafeAllowNoneSignatureType
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.method == jwt.SigningMethodNone {
		c.logger.Warn("no signing key configured, tokens are unsigned and forgeable")
	}

	if c.keyFunc == nil {
		c.keyFunc = c.localKeyFunc()
	}

	return c
}

func (c *Codec) localKeyFunc() jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if c.method == jwt.SigningMethodNone {
			if t.Method != jwt.SigningMethodNone {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return jwt.UnsafeAllowNoneSignatureType, nil
		}
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("unexpected signing method: %v", t.Header["alg"])
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.signKey, nil
	}
}

// Sign serializes and signs the claim set.
func (c *Codec) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.signKey)
	if err != nil {
		return "", WrapAuthError(KindServiceUnavailable, err)
	}
	return signed, nil
}

// Parse verifies the token signature and decodes claims into dst. Time
// validity is deliberately not checked here; callers run ValidateWindow so
// the leeway rule lives in one place. Signature mismatch and malformed input
// collapse to the same KindInvalidToken: no oracle about why.
func (c *Codec) Parse(tokenString string, dst jwt.Claims) error {
	if err := checkSegments(tokenString); err != nil {
		return err
	}

	token, err := jwt.ParseWithClaims(tokenString, dst, c.keyFunc,
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return WrapAuthError(KindInvalidToken, err)
	}
	if !token.Valid {
		return NewAuthError(KindInvalidToken)
	}
	return nil
}

// Verify reports whether the token's signature checks out, without trusting
// or returning any claims.
func (c *Codec) Verify(tokenString string) bool {
	return c.Parse(tokenString, &AccessClaims{}) == nil
}

// ValidateWindow enforces the validity window [nbf, exp+leeway] against the
// codec clock. Both bounds are inclusive.
func (c *Codec) ValidateWindow(claims jwt.Claims, leeway time.Duration) error {
	now := c.now()

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return WrapAuthError(KindInvalidToken, err)
	}
	if exp == nil {
		return NewAuthError(KindInvalidToken)
	}
	if now.After(exp.Add(leeway)) {
		return NewAuthError(KindExpired)
	}

	nbf, err := claims.GetNotBefore()
	if err != nil {
		return WrapAuthError(KindInvalidToken, err)
	}
	if nbf != nil && now.Before(nbf.Time) {
		return NewAuthError(KindExpired)
	}

	return nil
}

// checkSegments is the integrity floor shared by both signing modes: a wire
// token has three dot-separated segments and the first two are non-blank.
func checkSegments(tokenString string) error {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return NewAuthError(KindInvalidToken)
	}
	if strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return NewAuthError(KindInvalidToken)
	}
	return nil
}
