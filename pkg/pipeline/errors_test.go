package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := &Error{
		Kind:       KindProtocol,
		StatusCode: 503,
		Endpoint:   "/v1/markets",
		Message:    "upstream unavailable",
	}
	msg := err.Error()
	assert.Contains(t, msg, "protocol")
	assert.Contains(t, msg, "503")
	assert.Contains(t, msg, "/v1/markets")
	assert.Contains(t, msg, "upstream unavailable")
}

func TestError_UnwrapChain(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &Error{Kind: KindTransport, Cause: cause}

	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("request failed: %w", err)
	var pe *Error
	assert.ErrorAs(t, wrapped, &pe)
	assert.Equal(t, KindTransport, pe.Kind)
}

func TestError_IsMatchesKind(t *testing.T) {
	err := &Error{Kind: KindDecoding, Message: "unexpected shape"}
	assert.ErrorIs(t, err, &Error{Kind: KindDecoding})
	assert.NotErrorIs(t, err, &Error{Kind: KindTransport})
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", &Error{Kind: KindTransport}, true},
		{"protocol 500", &Error{Kind: KindProtocol, StatusCode: 500}, true},
		{"protocol 503", &Error{Kind: KindProtocol, StatusCode: 503}, true},
		{"protocol 429", &Error{Kind: KindProtocol, StatusCode: 429}, true},
		{"protocol 404", &Error{Kind: KindProtocol, StatusCode: 404}, false},
		{"protocol 400", &Error{Kind: KindProtocol, StatusCode: 400}, false},
		{"configuration", &Error{Kind: KindConfiguration}, false},
		{"decoding", &Error{Kind: KindDecoding}, false},
		{"cancelled", &Error{Kind: KindCancelled}, false},
		{"plain error", errors.New("something"), false},
		{"wrapped transport", fmt.Errorf("attempt 2: %w", &Error{Kind: KindTransport}), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Retryable(tc.err))
		})
	}
}
