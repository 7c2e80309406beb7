package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/vendorpay/vendorpay/provider"
)

// DefaultTolerance bounds how old a signed payload may be before it is
// treated as a replay.
const DefaultTolerance = 300 * time.Second

// Event is a verified processor notification. The payload inside Data.Object
// stays raw JSON; interpretation belongs to whichever manager handles the
// event type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ObjectID extracts the processor identifier of the object the event refers
// to.
func (e *Event) ObjectID() string {
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(e.Data.Object, &obj); err != nil {
		return ""
	}
	return obj.ID
}

// Verifier authenticates inbound webhook deliveries with a shared signing
// secret.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a verifier. A non-positive tolerance falls back to
// DefaultTolerance.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify authenticates the raw request body against the signature header and
// returns the parsed event. The signature must be computed over the exact
// bytes received; body must never be a re-serialization of parsed JSON.
//
// The header carries a unix timestamp and one or more hex HMAC-SHA256
// signatures: "t=1700000000,v1=abc...,v1=def...". The expected signature is
// HMAC-SHA256(secret, "<timestamp>.<body>"); any matching candidate passes.
func (v *Verifier) Verify(body []byte, header string) (*Event, error) {
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return nil, err
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return nil, provider.NewErrorf(provider.ErrTimestampExpired, "webhook timestamp outside %s tolerance", v.tolerance)
	}

	expected := v.sign(timestamp, body)
	matched := false
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			matched = true
		}
	}
	if !matched {
		return nil, provider.NewError(provider.ErrSignatureInvalid, "webhook signature does not match payload")
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, provider.WrapError(provider.ErrSignatureInvalid, "webhook payload is not valid JSON", err)
	}
	if event.Type == "" {
		return nil, provider.NewError(provider.ErrSignatureInvalid, "webhook payload has no event type")
	}
	return &event, nil
}

// Sign computes the signature header value for a payload. Used by tests and
// by the examples; the live processor computes its own.
func (v *Verifier) Sign(timestamp time.Time, body []byte) string {
	ts := timestamp.Unix()
	return "t=" + strconv.FormatInt(ts, 10) + ",v1=" + hex.EncodeToString(v.sign(ts, body))
}

func (v *Verifier) sign(timestamp int64, body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

// parseSignatureHeader splits "t=<unix>,v1=<hex>[,v1=<hex>...]" into its
// timestamp and decoded signature candidates. Unknown schemes are skipped so
// the processor can rotate schemes without breaking verification.
func parseSignatureHeader(header string) (int64, [][]byte, error) {
	if header == "" {
		return 0, nil, provider.NewError(provider.ErrSignatureInvalid, "missing signature header")
	}

	var timestamp int64 = -1
	var signatures [][]byte
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, nil, provider.NewError(provider.ErrSignatureInvalid, "malformed signature header")
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, provider.WrapError(provider.ErrSignatureInvalid, "malformed signature timestamp", err)
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue // unparsable candidate, other candidates may match
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp < 0 {
		return 0, nil, provider.NewError(provider.ErrSignatureInvalid, "signature header has no timestamp")
	}
	if len(signatures) == 0 {
		return 0, nil, provider.NewError(provider.ErrSignatureInvalid, "signature header has no signatures")
	}
	return timestamp, signatures, nil
}
