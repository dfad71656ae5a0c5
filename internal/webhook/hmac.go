package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// HMACValidator authenticates notification items against the gateway's
// standard webhook HMAC scheme: an HMAC-SHA256 over colon-joined canonical
// fields, keyed with the hex-decoded shared secret and compared base64 to
// additionalData.hmacSignature.
type HMACValidator struct{}

// NewHMACValidator creates a new HMACValidator.
func NewHMACValidator() *HMACValidator {
	return &HMACValidator{}
}

// Validate reports whether the item's signature matches any candidate key.
// Keys are tried in order (current first, then previous) so webhook secrets
// can be rotated without downtime.
func (v *HMACValidator) Validate(item NotificationRequestItem, keys []string) bool {
	signature := item.HMACSignature()
	if signature == "" {
		return false
	}

	for _, key := range keys {
		if key == "" {
			continue
		}
		expected, err := v.Sign(item, key)
		if err != nil {
			continue
		}
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return true
		}
	}
	return false
}

// Sign computes the item's signature with the given hex-encoded key.
func (v *HMACValidator) Sign(item NotificationRequestItem, hexKey string) (string, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return "", fmt.Errorf("hmac key is not valid hex: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(signingPayload(item)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// signingPayload joins the canonical notification fields in the order the
// gateway signs them.
func signingPayload(item NotificationRequestItem) string {
	fields := []string{
		item.PSPReference,
		item.OriginalReference,
		item.MerchantAccountCode,
		item.MerchantReference,
		strconv.FormatInt(item.Amount.Value, 10),
		item.Amount.Currency,
		item.EventCode,
		item.Success,
	}
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = escapeField(f)
	}
	return strings.Join(escaped, ":")
}

func escapeField(field string) string {
	field = strings.ReplaceAll(field, `\`, `\\`)
	return strings.ReplaceAll(field, ":", `\:`)
}
