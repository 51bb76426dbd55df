package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/singnet/snet-marketplace-service-sub000/internal/chain"
)

var (
	// EmailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// usernameRegex matches usernames issued by the identity provider
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._@+\-]{1,128}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

func IsValidUsername(name string) bool {
	return usernameRegex.MatchString(name)
}

// IsValidWalletAddress checks for a 20 byte hex address, with or without 0x.
func IsValidWalletAddress(addr string) bool {
	return common.IsHexAddress(addr)
}

// IsValidTxHash checks for a 0x prefixed 32 byte transaction hash.
func IsValidTxHash(hash string) bool {
	return chain.ValidTxHash(hash)
}

// IsValidWebURL accepts absolute http and https URLs.
func IsValidWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsValidAssetURL accepts the object storage locations publishers upload to.
func IsValidAssetURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return false
	}
	return u.Scheme == "s3" || u.Scheme == "https"
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}
