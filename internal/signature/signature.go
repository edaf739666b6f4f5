package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the keyed digest the card processor expects over a flat
// field set. The secret is inserted into the set under secretKey so it is
// sorted together with the payload fields, keys are ordered by code point,
// and the values are concatenated without separators before hashing.
//
// Callers must pass only top-level scalar fields and must not include the
// digest field itself; nested objects are excluded from signing per the
// provider protocol.
func Sign(fields map[string]string, secretKey, secret string) string {
	keys := make([]string, 0, len(fields)+1)
	for k := range fields {
		if k == secretKey {
			continue
		}
		keys = append(keys, k)
	}
	keys = append(keys, secretKey)
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if k == secretKey {
			b.WriteString(secret)
			continue
		}
		b.WriteString(fields[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest over fields and compares it with the
// candidate the provider sent. The comparison is constant-time.
func Verify(fields map[string]string, secretKey, secret, candidate string) bool {
	expected := Sign(fields, secretKey, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(candidate))) == 1
}

// SignHMAC returns the lowercase hex HMAC-SHA256 of body keyed with secret.
// The installment provider signs its callbacks this way.
func SignHMAC(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks an HMAC-SHA256 callback signature in constant time.
func VerifyHMAC(body []byte, secret, candidate string) bool {
	expected := SignHMAC(body, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(candidate))) == 1
}
