package main

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dayanaadylkhanova/powgate/internal/adapter/transport/rest"
	"github.com/stretchr/testify/assert"
)

func TestSubmitErr(t *testing.T) {
	t.Parallel()

	rejected := submitErr("verify", &rest.StatusError{Code: http.StatusForbidden, Message: "challenge rejected"})
	assert.ErrorIs(t, rejected, errRejected)
	assert.Contains(t, rejected.Error(), "fetch a new challenge")

	malformed := &rest.StatusError{Code: http.StatusBadRequest, Message: "malformed solution"}
	err := submitErr("contact", malformed)
	assert.False(t, errors.Is(err, errRejected))
	assert.ErrorIs(t, err, malformed)
	assert.Equal(t, "contact: server replied 400: malformed solution", err.Error())

	down := errors.New("connection refused")
	assert.ErrorIs(t, submitErr("verify", down), down)
}
