package entity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Challenge is what the server hands out. It carries no secret: the number
// that produced Challenge stays on the server side only long enough to hash it.
type Challenge struct {
	Algorithm string `json:"algorithm"`
	Challenge string `json:"challenge"`
	Salt      string `json:"salt"`
	Signature string `json:"signature"`
	MaxNumber int64  `json:"maxnumber"`
}

// Solution is the challenge echoed back together with the number found by the client.
type Solution struct {
	Algorithm string `json:"algorithm"`
	Challenge string `json:"challenge"`
	Number    int64  `json:"number"`
	Salt      string `json:"salt"`
	Signature string `json:"signature"`
}

var ErrBadPayload = errors.New("bad payload")

// SolutionFor builds the solution a client submits after finding number.
func SolutionFor(ch Challenge, number int64) Solution {
	return Solution{
		Algorithm: ch.Algorithm,
		Challenge: ch.Challenge,
		Number:    number,
		Salt:      ch.Salt,
		Signature: ch.Signature,
	}
}

// EncodePayload returns the base64(JSON) form used in form fields and headers.
func EncodePayload(s Solution) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal solution: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePayload accepts the base64(JSON) form; raw JSON is tolerated too
// because some widgets post the object unencoded.
func DecodePayload(payload string) (Solution, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Solution{}, fmt.Errorf("%w: empty", ErrBadPayload)
	}

	raw := []byte(payload)
	if payload[0] != '{' {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// url-safe clients
			b, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return Solution{}, fmt.Errorf("%w: not base64", ErrBadPayload)
			}
		}
		raw = b
	}

	var s Solution
	if err := json.Unmarshal(raw, &s); err != nil {
		return Solution{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return s, nil
}
