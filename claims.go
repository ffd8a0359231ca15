package tokenauth

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the claim set carried by access tokens. Beyond the
// registered claims it adds two compact private claims: "s" for the run-as
// uid and "f" for the packed status flags as a decimal string. Both are
// omitted when empty so a plain token stays as small as possible.
type AccessClaims struct {
	jwt.RegisteredClaims
	RunAs string `json:"s,omitempty"`
	Flags string `json:"f,omitempty"`
}

// StatusFlags decodes the packed flags claim. An absent or unparsable claim
// decodes to the zero value: absence of the claim means "nothing set".
func (c *AccessClaims) StatusFlags() StatusFlags {
	if c.Flags == "" {
		return StatusFlags{}
	}
	v, err := strconv.Atoi(c.Flags)
	if err != nil {
		return StatusFlags{}
	}
	return UnpackStatusFlags(v)
}

// SetStatusFlags encodes flags onto the claim, eliding the claim entirely
// when the packed value is zero.
func (c *AccessClaims) SetStatusFlags(flags StatusFlags) {
	if flags.IsZero() {
		c.Flags = ""
		return
	}
	c.Flags = strconv.Itoa(flags.Pack())
}

// RefreshClaims is the claim set carried by refresh tokens. The subject is
// not a uid: it is the hash binding the refresh token to the access token it
// was issued alongside and to the password hash at issuance time.
type RefreshClaims struct {
	jwt.RegisteredClaims
}
