package http

import (
	"github.com/go-steps-nosql/internal/application/aggregate"
	"github.com/go-steps-nosql/internal/application/submission"
	jwtinfra "github.com/go-steps-nosql/internal/infrastructure/jwt"
	"github.com/go-steps-nosql/internal/pkg/metrics"
)

// Deps holds the services and optional infrastructure the router needs.
type Deps struct {
	Submissions submission.Service
	Totals      aggregate.Service
	// Verifier switches identity from the trusted header to Bearer tokens.
	Verifier *jwtinfra.Verifier
	Metrics  *metrics.Manager
}
