package rest

import (
	"context"

	"github.com/dayanaadylkhanova/powgate/internal/entity"
	"github.com/dayanaadylkhanova/powgate/internal/service"
)

//go:generate mockgen -source=interfaces.go -destination=./server_mock.go -package=rest

type Issuer interface {
	NewChallenge(opts service.IssueOptions) (entity.Challenge, error)
}

type Verifier interface {
	Verify(sol entity.Solution) error
}

type Inbox interface {
	Submit(ctx context.Context, s entity.Submission) (entity.Submission, error)
}
