package tokenauth

// StatusFlags is the account status snapshot embedded in the access token.
// On the wire it is a single packed integer; in memory it is named fields so
// call sites never touch bit masks directly.
//
// Bit layout, low to high: mfa level (2 bits), credentials expired, unbound,
// deactivated, locked, expired, disabled.
type StatusFlags struct {
	MFALevel           uint8
	CredentialsExpired bool
	Unbound            bool
	Deactivated        bool
	Locked             bool
	Expired            bool
	Disabled           bool
}

const (
	mfaLevelMask           = 0b11
	bitCredentialsExpired  = 1 << 2
	bitUnbound             = 1 << 3
	bitDeactivated         = 1 << 4
	bitLocked              = 1 << 5
	bitExpired             = 1 << 6
	bitDisabled            = 1 << 7
)

// MaxMFALevel is the highest value the 2-bit mfa field can carry.
const MaxMFALevel = 3

// Pack encodes the flags into the wire integer. MFA levels above MaxMFALevel
// are clamped.
func (f StatusFlags) Pack() int {
	v := int(f.MFALevel & mfaLevelMask)
	if f.CredentialsExpired {
		v |= bitCredentialsExpired
	}
	if f.Unbound {
		v |= bitUnbound
	}
	if f.Deactivated {
		v |= bitDeactivated
	}
	if f.Locked {
		v |= bitLocked
	}
	if f.Expired {
		v |= bitExpired
	}
	if f.Disabled {
		v |= bitDisabled
	}
	return v
}

// UnpackStatusFlags decodes the wire integer. Zero, including the elided
// "claim absent" case, decodes to the zero value.
func UnpackStatusFlags(v int) StatusFlags {
	return StatusFlags{
		MFALevel:           uint8(v & mfaLevelMask),
		CredentialsExpired: v&bitCredentialsExpired != 0,
		Unbound:            v&bitUnbound != 0,
		Deactivated:        v&bitDeactivated != 0,
		Locked:             v&bitLocked != 0,
		Expired:            v&bitExpired != 0,
		Disabled:           v&bitDisabled != 0,
	}
}

// IsZero reports whether the flags pack to zero, which is elided from the
// wire claim entirely.
func (f StatusFlags) IsZero() bool {
	return f.Pack() == 0
}
