package service

import "errors"

var (
	// ErrConfiguration means the issuer or verifier cannot run safely with the given settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrRejected wraps every reason a solution is refused. Transport layers
	// report only this one.
	ErrRejected = errors.New("challenge rejected")

	ErrMalformed            = errors.New("malformed solution")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrExpired              = errors.New("challenge expired")
	ErrInvalidProof         = errors.New("invalid proof")
	ErrOutOfRange           = errors.New("number out of range")
	ErrReplayed             = errors.New("challenge already used")

	ErrNoSolution = errors.New("no solution in range")
)
