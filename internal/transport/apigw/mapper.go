package apigw

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/nsplab/thing-service/internal/application/thing"
	"github.com/nsplab/thing-service/internal/transport/apigw/schemas"
)

// Mapper turns proxy events into authorizer calls and back into proxy
// responses. Every operation runs the same pipeline: validate principal,
// validate inputs, delegate, format. All failures funnel through
// ErrorResponse so no error ever escapes as a panic or a malformed reply.
type Mapper struct {
	authorizer *thing.Authorizer
	log        zerolog.Logger
}

func NewMapper(authorizer *thing.Authorizer, log zerolog.Logger) *Mapper {
	return &Mapper{authorizer: authorizer, log: log}
}

func (m *Mapper) CreateThing(ctx context.Context, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	gw := New(event, m.log)
	principal, err := gw.Principal()
	if err != nil {
		return gw.ErrorResponse(err)
	}
	entity, err := gw.Entity(schemas.ThingCreate, "thing")
	if err != nil {
		return gw.ErrorResponse(err)
	}
	created, err := m.authorizer.Create(ctx, principal, entity)
	if err != nil {
		return gw.ErrorResponse(err)
	}
	return gw.Respond(201, gw.LocationHeader(created.UUID()), created)
}

func (m *Mapper) GetThing(ctx context.Context, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	gw := New(event, m.log)
	principal, err := gw.Principal()
	if err != nil {
		return gw.ErrorResponse(err)
	}
	uuid, err := gw.PathParameter("uuid", true, nil)
	if err != nil {
		return gw.ErrorResponse(err)
	}
	result, err := m.authorizer.Get(ctx, principal, *uuid)
	if err != nil {
		return gw.ErrorResponse(err)
	}
	modified, err := gw.WasModifiedSince(result)
	if err != nil {
		return gw.ErrorResponse(err)
	}
	if !modified {
		return gw.Respond(304, gw.LastModifiedHeader(result), nil)
	}
	return gw.Respond(200, gw.LastModifiedHeader(result), result)
}

func (m *Mapper) UpdateThing(ctx context.Context, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	gw := New(event, m.log)
	principal, err := gw.Principal()
	if err != nil {
		return gw.ErrorResponse(err)
	}
	uuid, err := gw.PathParameter("uuid", true, nil)
	if err != nil {
		return gw.ErrorResponse(err)
	}
	entity, err := gw.Entity(schemas.ThingUpdate, "thing")
	if err != nil {
		return gw.ErrorResponse(err)
	}
	updated, err := m.authorizer.Update(ctx, principal, *uuid, entity)
	if err != nil {
		return gw.ErrorResponse(err)
	}
	return gw.Respond(200, gw.LastModifiedHeader(updated), updated)
}

func (m *Mapper) DeleteThing(ctx context.Context, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	gw := New(event, m.log)
	principal, err := gw.Principal()
	if err != nil {
		return gw.ErrorResponse(err)
	}
	uuid, err := gw.PathParameter("uuid", true, nil)
	if err != nil {
		return gw.ErrorResponse(err)
	}
	if err := m.authorizer.Delete(ctx, principal, *uuid); err != nil {
		return gw.ErrorResponse(err)
	}
	return gw.Respond(204, nil, nil)
}

func (m *Mapper) ListThings(ctx context.Context, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	gw := New(event, m.log)
	principal, err := gw.Principal()
	if err != nil {
		return gw.ErrorResponse(err)
	}
	owner, err := gw.QueryStringParameter("owner", false, nil)
	if err != nil {
		return gw.ErrorResponse(err)
	}
	result, err := m.authorizer.List(ctx, principal, owner)
	if err != nil {
		return gw.ErrorResponse(err)
	}
	return gw.Respond(200, nil, result)
}
