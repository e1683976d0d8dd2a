package service

import (
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const saltBytes = 16

type saltParams struct {
	expires int64
	max     int64
	hasMax  bool
}

// newSalt returns hex(random) + "?expires=<unix>&max=<n>". The params are covered
// by the challenge digest, so they cannot be edited without breaking the signature.
func newSalt(r io.Reader, expires time.Time, maxNumber int64) (string, error) {
	b := make([]byte, saltBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires.Unix(), 10))
	q.Set("max", strconv.FormatInt(maxNumber, 10))
	return hex.EncodeToString(b) + "?" + q.Encode(), nil
}

func parseSalt(salt string) (saltParams, error) {
	i := strings.IndexByte(salt, '?')
	if i < 0 {
		return saltParams{}, fmt.Errorf("%w: salt has no params", ErrMalformed)
	}
	q, err := url.ParseQuery(salt[i+1:])
	if err != nil {
		return saltParams{}, fmt.Errorf("%w: salt params: %v", ErrMalformed, err)
	}

	var p saltParams
	exp := q.Get("expires")
	if exp == "" {
		return saltParams{}, fmt.Errorf("%w: salt has no expiry", ErrMalformed)
	}
	if p.expires, err = strconv.ParseInt(exp, 10, 64); err != nil {
		return saltParams{}, fmt.Errorf("%w: expiry: %v", ErrMalformed, err)
	}
	if m := q.Get("max"); m != "" {
		if p.max, err = strconv.ParseInt(m, 10, 64); err != nil {
			return saltParams{}, fmt.Errorf("%w: max: %v", ErrMalformed, err)
		}
		p.hasMax = true
	}
	return p, nil
}
