package settlement

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/partnerpay/internal/settlement/domain"
)

func newTestVerifier(secret string, now time.Time) *Verifier {
	v := NewVerifier(secret)
	v.now = func() time.Time { return now }
	return v
}

func TestVerifyAcceptsSignedPayload(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier("whsec_test", now)
	payload := []byte(`{"invoiceId":"123","chargeId":"ch_1"}`)

	headers := http.Header{}
	headers.Set(SignatureHeader, v.Sign(payload, now))

	if err := v.Verify(payload, headers); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier("whsec_test", now)

	headers := http.Header{}
	headers.Set(SignatureHeader, v.Sign([]byte(`{"invoiceId":"123"}`), now))

	err := v.Verify([]byte(`{"invoiceId":"999"}`), headers)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid_signature, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := newTestVerifier("whsec_other", now)
	v := newTestVerifier("whsec_test", now)
	payload := []byte(`{"invoiceId":"123"}`)

	headers := http.Header{}
	headers.Set(SignatureHeader, signer.Sign(payload, now))

	if err := v.Verify(payload, headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid_signature, got %v", err)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier("whsec_test", now)
	payload := []byte(`{"invoiceId":"123"}`)

	headers := http.Header{}
	headers.Set(SignatureHeader, v.Sign(payload, now.Add(-6*time.Minute)))

	if err := v.Verify(payload, headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid_signature for stale timestamp, got %v", err)
	}
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	v := newTestVerifier("whsec_test", time.Now())

	if err := v.Verify([]byte(`{}`), http.Header{}); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid_signature, got %v", err)
	}
}

func TestVerifyRejectsMalformedHeader(t *testing.T) {
	v := newTestVerifier("whsec_test", time.Now())

	headers := http.Header{}
	headers.Set(SignatureHeader, "garbage")

	if err := v.Verify([]byte(`{}`), headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid_signature, got %v", err)
	}
}

func TestVerifyRejectsWhenUnconfigured(t *testing.T) {
	now := time.Now()
	v := newTestVerifier("", now)
	signer := newTestVerifier("whsec_test", now)
	payload := []byte(`{}`)

	headers := http.Header{}
	headers.Set(SignatureHeader, signer.Sign(payload, now))

	if err := v.Verify(payload, headers); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid_signature with empty secret, got %v", err)
	}
}
