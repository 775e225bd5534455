package v1

import (
	"context"

	"github.com/peskas/gateway/internal/artifact"
	"github.com/peskas/gateway/internal/domain"
	"github.com/peskas/gateway/internal/encode"
)

// Authorizer abstracts permission evaluation for handler testing.
// *policy.Evaluator satisfies this interface.
type Authorizer interface {
	Authorize(ctx context.Context, cred *domain.Credential, req *domain.QueryRequest, endpoint, clientIP string) (*domain.EffectiveQuery, error)
}

// ArtifactResolver abstracts artifact resolution for handler testing.
// *artifact.Resolver satisfies this interface.
type ArtifactResolver interface {
	Resolve(ctx context.Context, key domain.ArtifactKey) (*artifact.Resolved, error)
}

// ResultStream is the consumable query result the handler encodes. Row
// counts come from the encoders' return values, not the stream.
type ResultStream interface {
	encode.RowSource
	Close() error
}

// QueryEngine abstracts query execution for handler testing. The server
// wires *query.Engine behind this interface.
type QueryEngine interface {
	Execute(ctx context.Context, eq *domain.EffectiveQuery, desc *domain.DatasetDescriptor, path string) (ResultStream, error)
}
