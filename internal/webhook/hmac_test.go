package webhook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helioscommerce/payment-service/internal/webhook"
)

const (
	testHMACKey      = "44782DEF547AAA06C910C43932B1EB0C71FC68D9D0C057550C48EC2ACF6BA056"
	rotatedHMACKey   = "11112222333344445555666677778888AAAABBBBCCCCDDDDEEEEFFFF00001111"
	unrelatedHMACKey = "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF"
)

func signedItem(t *testing.T, key string) webhook.NotificationRequestItem {
	t.Helper()

	item := webhook.NotificationRequestItem{
		Amount:              webhook.Amount{Currency: "EUR", Value: 1000},
		EventCode:           webhook.EventCodeAuthorisation,
		MerchantAccountCode: "HeliosECOM",
		MerchantReference:   "R400001",
		PSPReference:        "7914073381342284",
		Success:             "true",
	}

	signature, err := webhook.NewHMACValidator().Sign(item, key)
	assert.NoError(t, err)
	item.AdditionalData = map[string]string{"hmacSignature": signature}
	return item
}

func TestHMACValidator_Sign(t *testing.T) {
	validator := webhook.NewHMACValidator()

	t.Run("matches the gateway's documented test vector", func(t *testing.T) {
		item := webhook.NotificationRequestItem{
			Amount:              webhook.Amount{Currency: "EUR", Value: 1000},
			EventCode:           "AUTHORISATION",
			MerchantAccountCode: "TestMerchant",
			MerchantReference:   "TestPayment-1407325143704",
			PSPReference:        "7914073381342284",
			Success:             "true",
		}

		signature, err := validator.Sign(item, testHMACKey)

		assert.NoError(t, err)
		assert.Equal(t, "coqCmt/IZ4E3CzPvMY8zTjQVL5hYJUiBRg8UU+iCWo0=", signature)
	})

	t.Run("rejects keys that are not hex", func(t *testing.T) {
		_, err := validator.Sign(webhook.NotificationRequestItem{}, "not-hex")
		assert.Error(t, err)
	})
}

func TestHMACValidator_Validate(t *testing.T) {
	validator := webhook.NewHMACValidator()

	t.Run("accepts a signature made with the current key", func(t *testing.T) {
		item := signedItem(t, testHMACKey)
		assert.True(t, validator.Validate(item, []string{testHMACKey}))
	})

	t.Run("accepts a signature made with the previous key after rotation", func(t *testing.T) {
		item := signedItem(t, rotatedHMACKey)
		assert.True(t, validator.Validate(item, []string{testHMACKey, rotatedHMACKey}))
	})

	t.Run("rejects a signature made with an unknown key", func(t *testing.T) {
		item := signedItem(t, unrelatedHMACKey)
		assert.False(t, validator.Validate(item, []string{testHMACKey, rotatedHMACKey}))
	})

	t.Run("rejects a missing signature", func(t *testing.T) {
		item := signedItem(t, testHMACKey)
		item.AdditionalData = nil
		assert.False(t, validator.Validate(item, []string{testHMACKey}))
	})

	t.Run("rejects a tampered item", func(t *testing.T) {
		item := signedItem(t, testHMACKey)
		item.Amount.Value = 999999
		assert.False(t, validator.Validate(item, []string{testHMACKey}))
	})

	t.Run("skips empty candidate keys", func(t *testing.T) {
		item := signedItem(t, testHMACKey)
		assert.True(t, validator.Validate(item, []string{"", testHMACKey}))
	})

	t.Run("covers colons and backslashes in signed fields", func(t *testing.T) {
		item := webhook.NotificationRequestItem{
			Amount:              webhook.Amount{Currency: "EUR", Value: 500},
			EventCode:           webhook.EventCodeCapture,
			MerchantAccountCode: "HeliosECOM",
			MerchantReference:   `order:R400002\part-1`,
			PSPReference:        "8835544088660594",
			Success:             "true",
		}
		signature, err := validator.Sign(item, testHMACKey)
		assert.NoError(t, err)
		item.AdditionalData = map[string]string{"hmacSignature": signature}

		assert.True(t, validator.Validate(item, []string{testHMACKey}))

		// Moving the separator across the field boundary must change the
		// signed payload.
		moved := item
		moved.MerchantReference = `order`
		moved.PSPReference = `R400002\part-1:8835544088660594`
		assert.False(t, validator.Validate(moved, []string{testHMACKey}))
	})
}
