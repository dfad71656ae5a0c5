package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/helioscommerce/payment-service/internal/domain/model"
)

func TestSessionTransition(t *testing.T) {
	allowed := []struct {
		from  model.PaymentSessionState
		event model.PaymentSessionEvent
		to    model.PaymentSessionState
	}{
		{model.SessionStateInitial, model.SessionEventProcess, model.SessionStatePending},
		{model.SessionStateInitial, model.SessionEventComplete, model.SessionStateCompleted},
		{model.SessionStatePending, model.SessionEventComplete, model.SessionStateCompleted},
		{model.SessionStateInitial, model.SessionEventCancel, model.SessionStateCanceled},
		{model.SessionStatePending, model.SessionEventCancel, model.SessionStateCanceled},
		{model.SessionStateInitial, model.SessionEventRefuse, model.SessionStateRefused},
		{model.SessionStatePending, model.SessionEventRefuse, model.SessionStateRefused},
	}

	for _, tc := range allowed {
		next, err := model.SessionTransition(tc.from, tc.event)
		assert.NoError(t, err, "%s on %s", tc.event, tc.from)
		assert.Equal(t, tc.to, next)
	}

	denied := []struct {
		from  model.PaymentSessionState
		event model.PaymentSessionEvent
	}{
		{model.SessionStatePending, model.SessionEventProcess},
		{model.SessionStateCompleted, model.SessionEventCancel},
		{model.SessionStateCanceled, model.SessionEventComplete},
		{model.SessionStateRefused, model.SessionEventProcess},
	}

	for _, tc := range denied {
		_, err := model.SessionTransition(tc.from, tc.event)
		assert.Error(t, err, "%s on %s", tc.event, tc.from)
	}
}

func TestPaymentSession_ApplyIfPossible(t *testing.T) {
	session := &model.PaymentSession{Status: model.SessionStateInitial}

	assert.True(t, session.ApplyIfPossible(model.SessionEventProcess))
	assert.Equal(t, model.SessionStatePending, session.Status)

	assert.False(t, session.ApplyIfPossible(model.SessionEventProcess))
	assert.Equal(t, model.SessionStatePending, session.Status)

	assert.True(t, session.ApplyIfPossible(model.SessionEventComplete))
	assert.True(t, session.Completed())
}

func TestPaymentSession_Expired(t *testing.T) {
	now := time.Now()
	session := &model.PaymentSession{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, session.Expired(now))
	assert.True(t, session.Expired(now.Add(time.Minute)))
	assert.True(t, session.Expired(now.Add(2*time.Minute)))
}

func TestPaymentSession_ExternalData(t *testing.T) {
	t.Run("empty external data falls back to defaults", func(t *testing.T) {
		session := &model.PaymentSession{}
		assert.Equal(t, model.ChannelWeb, session.Channel())
		assert.Equal(t, "", session.ReturnURL())
		assert.Equal(t, "", session.SessionData())
	})

	t.Run("reads the values stored at creation time", func(t *testing.T) {
		session := &model.PaymentSession{
			ExternalData: model.JSONB{
				"channel":      model.ChannelIOS,
				"return_url":   "https://shop.example/return",
				"session_data": "Ab02b4c0...",
			},
		}
		assert.Equal(t, model.ChannelIOS, session.Channel())
		assert.Equal(t, "https://shop.example/return", session.ReturnURL())
		assert.Equal(t, "Ab02b4c0...", session.SessionData())
	})
}
