// Package app wires configuration into the services shared by the HTTP and
// Lambda entry points.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-steps-nosql/internal/application/aggregate"
	"github.com/go-steps-nosql/internal/application/submission"
	"github.com/go-steps-nosql/internal/config"
	"github.com/go-steps-nosql/internal/domain"
	"github.com/go-steps-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-steps-nosql/internal/infrastructure/jwt"
	"github.com/go-steps-nosql/internal/infrastructure/memory"
	s3infra "github.com/go-steps-nosql/internal/infrastructure/s3"
	"github.com/go-steps-nosql/internal/infrastructure/sns"
	"github.com/go-steps-nosql/internal/pkg/metrics"
)

// entryStore is satisfied by both the DynamoDB repository and the in-memory store.
type entryStore interface {
	Put(ctx context.Context, e *domain.Entry) error
	QueryByUserSince(ctx context.Context, userID string, sinceMs int64) ([]domain.Entry, error)
	ScanAll(ctx context.Context) ([]domain.Entry, error)
	PutFirstOfDay(ctx context.Context, e *domain.Entry) error
	RunningTotal(ctx context.Context) (*domain.Total, error)
}

// Services is everything a transport needs.
type Services struct {
	Submissions submission.Service
	Totals      aggregate.Service
	Metrics     *metrics.Manager
	Verifier    *jwtinfra.Verifier // nil when tokens are not verified
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With("env", cfg.AppEnv)
}

// Build constructs the store and the optional AWS integrations once per process.
func Build(ctx context.Context, cfg *config.Config) (*Services, error) {
	m := metrics.NewManager(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithHistogramBuckets(cfg.MetricsLatencyBuckets),
	)

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	subDeps := submission.ServiceDeps{
		Store:    store,
		Metrics:  m,
		MaxSteps: cfg.MaxStepsPerSubmission,
	}
	aggDeps := aggregate.ServiceDeps{Store: store, Metrics: m}
	if cfg.Conditional() {
		subDeps.Guarded = store
		aggDeps.Totals = store
	}
	slog.Info("submission guard", "mode", cfg.SubmissionGuard, "backend", cfg.StoreBackend)

	if cfg.SNSTopicARN != "" {
		client, err := sns.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		subDeps.Publisher = sns.NewPublisher(client, cfg.SNSTopicARN)
	}
	if cfg.S3BucketName != "" {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		aggDeps.Snapshots = s3infra.NewSnapshotStore(client, cfg.S3BucketName, cfg.S3SnapshotKey)
	}

	svc := &Services{
		Submissions: submission.NewService(subDeps),
		Totals:      aggregate.NewService(aggDeps),
		Metrics:     m,
	}
	if cfg.JWTPublicKeyPath != "" {
		v, err := jwtinfra.NewVerifier(cfg.JWTPublicKeyPath)
		if err != nil {
			return nil, err
		}
		svc.Verifier = v
	}
	return svc, nil
}

func newStore(ctx context.Context, cfg *config.Config) (entryStore, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		slog.Warn("using in-memory store; entries are lost on restart")
		return memory.NewEntryStore(), nil
	case config.BackendDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.DynamoBootstrap {
			dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		}
		return dynamo.NewEntryRepo(client, cfg.DynamoTables), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
