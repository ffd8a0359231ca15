package tokenauth

// Token is the externally visible credential pair. It has no storage of its
// own: everything it represents lives inside the signed wire values.
type Token struct {
	// UID is the subject identity.
	UID string `json:"uid"`
	// RunAs is the identity being impersonated, when distinct from UID.
	RunAs string `json:"run_as,omitempty"`

	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// StatusFlags is the account status snapshot that was packed into the
	// access token at issuance.
	StatusFlags StatusFlags `json:"-"`
}

// Issued reports whether the token has been through issuance. An issued
// token always carries a non-empty access token.
func (t *Token) Issued() bool {
	return t != nil && t.AccessToken != ""
}

// EffectiveUID returns the identity requests should act as: the run-as uid
// when impersonating, the subject uid otherwise.
func (t *Token) EffectiveUID() string {
	if t.RunAs != "" {
		return t.RunAs
	}
	return t.UID
}
