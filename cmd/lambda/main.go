// Lambda entrypoint. A single function serves every thing route of the
// proxy integration; dispatch is on the HTTP method and the presence of the
// uuid path parameter.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/nsplab/thing-service/internal/application/thing"
	"github.com/nsplab/thing-service/internal/config"
	"github.com/nsplab/thing-service/internal/infrastructure/dynamo"
	"github.com/nsplab/thing-service/internal/infrastructure/memory"
	"github.com/nsplab/thing-service/internal/transport/apigw"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	ctx := context.Background()
	var repo thing.Repository
	if cfg.Backend == "dynamo" {
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("dynamo client setup failed")
		}
		repo = dynamo.NewThingRepo(client, cfg.DynamoTableThings)
	} else {
		repo = memory.NewSeededThingRepo()
	}

	mapper := apigw.NewMapper(thing.NewAuthorizer(thing.NewService(repo, log)), log)

	lambda.Start(func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return dispatch(ctx, mapper, event), nil
	})
}

func dispatch(ctx context.Context, mapper *apigw.Mapper, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	hasUUID := event.PathParameters["uuid"] != ""
	switch {
	case event.HTTPMethod == "POST":
		return mapper.CreateThing(ctx, event)
	case event.HTTPMethod == "GET" && hasUUID:
		return mapper.GetThing(ctx, event)
	case event.HTTPMethod == "GET":
		return mapper.ListThings(ctx, event)
	case event.HTTPMethod == "PUT":
		return mapper.UpdateThing(ctx, event)
	case event.HTTPMethod == "DELETE":
		return mapper.DeleteThing(ctx, event)
	default:
		gw := apigw.New(event, zerolog.Nop())
		return gw.ErrorResponse(apigw.NewHTTPError(apigw.StatusBadRequest, "Unsupported route"))
	}
}
