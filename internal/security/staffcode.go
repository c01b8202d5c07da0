package security

import (
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// staffCodeIssuer brands provisioning URIs scanned by the staff device.
const staffCodeIssuer = "hotplate"

// NewStaffSecret generates a TOTP secret for a merchant's staff stamp
// device and returns the secret together with its provisioning URI.
func NewStaffSecret(merchantName string) (secret, uri string, err error) {
	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      staffCodeIssuer,
		AccountName: strings.TrimSpace(merchantName),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if errGenerate != nil {
		return "", "", errGenerate
	}
	return key.Secret(), key.URL(), nil
}

// ValidateStaffCode checks a live staff confirmation code against the
// merchant's TOTP secret.
func ValidateStaffCode(secret, code string) bool {
	return totp.Validate(strings.TrimSpace(code), strings.TrimSpace(secret))
}
