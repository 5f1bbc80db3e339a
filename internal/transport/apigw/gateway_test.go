package apigw

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsplab/thing-service/internal/domain"
	"github.com/nsplab/thing-service/internal/transport/apigw/schemas"
)

func newGateway(event events.APIGatewayProxyRequest) *Gateway {
	return New(event, zerolog.Nop())
}

func principalEvent(principal map[string]any) events.APIGatewayProxyRequest {
	token, _ := json.Marshal(principal)
	event := events.APIGatewayProxyRequest{}
	event.RequestContext.Authorizer = map[string]any{"principalId": string(token)}
	return event
}

// --- method / resource ---

func TestHTTPMethod_Default(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{})

	assert.Equal(t, "UNKNOWN_METHOD", gw.HTTPMethod())
}

func TestHTTPResource(t *testing.T) {
	tests := []struct {
		name  string
		event events.APIGatewayProxyRequest
		want  string
	}{
		{
			name: "default http port elided",
			event: events.APIGatewayProxyRequest{
				Path:    "/things/001",
				Headers: map[string]string{"Host": "localhost", "X-Forwarded-Proto": "http", "X-Forwarded-Port": "80"},
			},
			want: "http://localhost/things/001",
		},
		{
			name: "default https port elided",
			event: events.APIGatewayProxyRequest{
				Path:    "/things",
				Headers: map[string]string{"Host": "api.example.com", "X-Forwarded-Proto": "https", "X-Forwarded-Port": "443"},
			},
			want: "https://api.example.com/things",
		},
		{
			name: "non-default port kept",
			event: events.APIGatewayProxyRequest{
				Path:    "/things",
				Headers: map[string]string{"Host": "localhost", "X-Forwarded-Proto": "http", "X-Forwarded-Port": "8080"},
			},
			want: "http://localhost:8080/things",
		},
		{
			name: "managed gateway host gets stage prefix",
			event: func() events.APIGatewayProxyRequest {
				e := events.APIGatewayProxyRequest{
					Path:    "/things",
					Headers: map[string]string{"Host": "abc123.execute-api.eu-west-1.amazonaws.com", "X-Forwarded-Proto": "https", "X-Forwarded-Port": "443"},
				}
				e.RequestContext.Stage = "prod"
				return e
			}(),
			want: "https://abc123.execute-api.eu-west-1.amazonaws.com/prod/things",
		},
		{
			name: "managed gateway host without stage",
			event: events.APIGatewayProxyRequest{
				Path:    "/things",
				Headers: map[string]string{"Host": "abc123.execute-api.eu-west-1.amazonaws.com", "X-Forwarded-Proto": "https", "X-Forwarded-Port": "443"},
			},
			want: "https://abc123.execute-api.eu-west-1.amazonaws.com/UNKNOWN_STAGE/things",
		},
		{
			name:  "everything missing",
			event: events.APIGatewayProxyRequest{},
			want:  "UNKNOWN_PROTOCOL://UNKNOWN_HOST:UNKNOWN_PORT/UNKNOWN_PATH",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newGateway(tt.event).HTTPResource())
		})
	}
}

// --- principal ---

func TestPrincipal_Valid(t *testing.T) {
	gw := newGateway(principalEvent(map[string]any{
		"organizationId": "ORG001",
		"roles":          []string{"ROLE_THING_USER", "ROLE_ADMIN"},
	}))

	principal, err := gw.Principal()

	require.NoError(t, err)
	assert.Equal(t, "ORG001", principal.OrganizationID)
	assert.True(t, principal.IsAdmin())
}

func TestPrincipal_Missing(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{})

	_, err := gw.Principal()

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 401, httpErr.StatusCode)
	assert.Equal(t, "Missing principal", httpErr.Message)
	assert.Empty(t, httpErr.Causes)
}

func TestPrincipal_MalformedJSON(t *testing.T) {
	event := events.APIGatewayProxyRequest{}
	event.RequestContext.Authorizer = map[string]any{"principalId": "{not json"}
	gw := newGateway(event)

	_, err := gw.Principal()

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 401, httpErr.StatusCode)
	assert.Equal(t, "Malformed principal JSON", httpErr.Message)
	assert.Len(t, httpErr.Causes, 1)
}

func TestPrincipal_SchemaViolation(t *testing.T) {
	gw := newGateway(principalEvent(map[string]any{"roles": []string{"a"}}))

	_, err := gw.Principal()

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 401, httpErr.StatusCode)
	assert.Equal(t, "Invalid principal", httpErr.Message)
	assert.NotEmpty(t, httpErr.Causes)
}

// --- parameters ---

func TestPathParameter_RequiredMissing(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{})

	_, err := gw.PathParameter("uuid", true, nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 400, httpErr.StatusCode)
	assert.Equal(t, `Missing path parameter "uuid"`, httpErr.Message)
}

func TestPathParameter_Present(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{PathParameters: map[string]string{"uuid": "001"}})

	value, err := gw.PathParameter("uuid", true, nil)

	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "001", *value)
}

func TestQueryStringParameter_OptionalAbsent(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{})

	value, err := gw.QueryStringParameter("owner", false, nil)

	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestQueryStringParameter_ValidatorRejects(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{QueryStringParameters: map[string]string{"owner": "x"}})

	_, err := gw.QueryStringParameter("owner", false, func(v *string) error {
		return assert.AnError
	})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 400, httpErr.StatusCode)
	assert.Equal(t, `Invalid query string parameter "owner"`, httpErr.Message)
	assert.Equal(t, []string{assert.AnError.Error()}, httpErr.Causes)
}

func TestHeader_ValidatorSeesAbsentValue(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{})
	var seen *string
	sentinel := "set"
	seen = &sentinel

	_, err := gw.Header("X-Custom", false, func(v *string) error {
		seen = v
		return nil
	})

	require.NoError(t, err)
	assert.Nil(t, seen)
}

// --- entity ---

func TestEntity_WrongContentType(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{
		Headers: map[string]string{"Content-Type": "text/plain"},
		Body:    `{}`,
	})

	_, err := gw.Entity(schemas.ThingCreate, "thing")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 415, httpErr.StatusCode)
	assert.Equal(t, "Expected application/json Content-Type", httpErr.Message)
}

func TestEntity_ContentTypeWithCharsetAccepted(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{
		Headers: map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:    `{"name":"Thing1"}`,
	})

	_, err := gw.Entity(schemas.ThingCreate, "thing")

	assert.NoError(t, err)
}

func TestEntity_MissingBody(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{})

	_, err := gw.Entity(schemas.ThingCreate, "thing")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 400, httpErr.StatusCode)
	assert.Equal(t, "Missing thing", httpErr.Message)
}

func TestEntity_MalformedBody(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{Body: "{oops"})

	_, err := gw.Entity(schemas.ThingCreate, "thing")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 400, httpErr.StatusCode)
	assert.Equal(t, "Malformed thing JSON", httpErr.Message)
	assert.Len(t, httpErr.Causes, 1)
}

func TestEntity_SchemaViolation(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{Body: `{"description":"no name"}`})

	_, err := gw.Entity(schemas.ThingCreate, "thing")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 422, httpErr.StatusCode)
	assert.Equal(t, "Invalid thing", httpErr.Message)
	assert.NotEmpty(t, httpErr.Causes)
}

func TestEntity_MalformedSchemaIsInternal(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{Body: `{"name":"Thing1"}`})

	_, err := gw.Entity([]byte(`{"type": 42}`), "thing")

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeInternalServerError, domainErr.Code)
	assert.Equal(t, "Invalid thing JSON schema", domainErr.Message)
}

func TestEntity_RewritesDatetimes(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{
		Body: `{"uuid":"001","owner":"ORG001","name":"Thing1","created":"2017-05-15T10:30:00.123Z","lastModified":"2017-05-15T10:30:00.123Z"}`,
	})

	entity, err := gw.Entity(schemas.ThingUpdate, "thing")

	require.NoError(t, err)
	assert.IsType(t, time.Time{}, entity["created"])
	assert.Equal(t, "Thing1", entity["name"])
}

// --- If-Modified-Since ---

func TestWasModifiedSince_NoHeader(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{})
	entity := domain.Thing{"lastModified": time.Date(2017, 5, 15, 10, 30, 0, 0, time.UTC)}

	modified, err := gw.WasModifiedSince(entity)

	require.NoError(t, err)
	assert.True(t, modified)
}

func TestWasModifiedSince_Comparison(t *testing.T) {
	lastModified := time.Date(2017, 5, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"older header", "Mon, 15 May 2017 10:29:00 GMT", true},
		{"equal truncated to seconds", "Mon, 15 May 2017 10:30:00 GMT", false},
		{"newer header", "Mon, 15 May 2017 10:31:00 GMT", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newGateway(events.APIGatewayProxyRequest{
				Headers: map[string]string{"If-Modified-Since": tt.header},
			})

			modified, err := gw.WasModifiedSince(domain.Thing{"lastModified": lastModified})

			require.NoError(t, err)
			assert.Equal(t, tt.want, modified)
		})
	}
}

func TestWasModifiedSince_BadHeader(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{
		Headers: map[string]string{"If-Modified-Since": "not a date"},
	})

	_, err := gw.WasModifiedSince(domain.Thing{})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 400, httpErr.StatusCode)
	assert.Equal(t, `Invalid If-Modified-Since header: "not a date"`, httpErr.Message)
	assert.Len(t, httpErr.Causes, 1)
}

// --- headers / responses ---

func TestLastModifiedHeader(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{})
	entity := domain.Thing{"lastModified": time.Date(2017, 5, 15, 10, 30, 0, 0, time.UTC)}

	assert.Equal(t,
		map[string]string{"Last-Modified": "Mon, 15 May 2017 10:30:00 GMT"},
		gw.LastModifiedHeader(entity))
}

func TestLocationHeader(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{
		Path:    "/things",
		Headers: map[string]string{"Host": "localhost", "X-Forwarded-Proto": "http", "X-Forwarded-Port": "80"},
	})

	assert.Equal(t,
		map[string]string{"Location": "http://localhost/things/001"},
		gw.LocationHeader("001"))
}

func TestRespond_MergesCORSUnderCallerHeaders(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{})

	resp := gw.Respond(200, map[string]string{"Access-Control-Allow-Origin": "https://app"}, map[string]any{})

	assert.Equal(t, "https://app", resp.Headers["Access-Control-Allow-Origin"])
}

func TestRespond_EncodesDatetimes(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{})
	body := domain.Thing{"created": time.Date(2017, 5, 15, 10, 30, 0, 123000000, time.UTC)}

	resp := gw.Respond(200, nil, body)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.JSONEq(t, `{"created":"2017-05-15T10:30:00.123Z"}`, resp.Body)
}

func TestErrorResponse_StampsMethodAndResource(t *testing.T) {
	gw := newGateway(events.APIGatewayProxyRequest{
		HTTPMethod: "GET",
		Path:       "/things/001",
		Headers:    map[string]string{"Host": "localhost", "X-Forwarded-Proto": "http", "X-Forwarded-Port": "80"},
	})

	resp := gw.ErrorResponse(domain.NewError(domain.CodeThingNotFound, `Thing "001" not found`))

	assert.Equal(t, 404, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, float64(404), body["statusCode"])
	assert.Equal(t, "Not found", body["statusReason"])
	assert.Equal(t, `Thing "001" not found`, body["message"])
	assert.Equal(t, []any{}, body["causes"])
	assert.Equal(t, "GET", body["method"])
	assert.Equal(t, "http://localhost/things/001", body["resource"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`, body["timestamp"])
}
