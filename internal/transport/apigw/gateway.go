// Package apigw adapts API Gateway proxy events into validated inputs for
// the thing service and formats its outputs: it reconstructs the canonical
// method/URL from proxy headers, validates the caller identity and request
// body against JSON Schemas, and produces well-formed success and error
// responses.
package apigw

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/nsplab/thing-service/internal/domain"
	"github.com/nsplab/thing-service/internal/pkg/jsontime"
	"github.com/nsplab/thing-service/internal/transport/apigw/schemas"
)

var (
	managedGatewayHostRe = regexp.MustCompile(`\.execute-api\..*\.amazonaws\.com$`)
	applicationJSONRe    = regexp.MustCompile(`^application/json`)
)

// Placeholder tokens keep the reconstructed resource string well-formed when
// a proxy header is missing.
const (
	unknownMethod   = "UNKNOWN_METHOD"
	unknownProtocol = "UNKNOWN_PROTOCOL"
	unknownPort     = "UNKNOWN_PORT"
	unknownHost     = "UNKNOWN_HOST"
	unknownStage    = "UNKNOWN_STAGE"
	unknownPath     = "/UNKNOWN_PATH"
)

// Gateway wraps a single inbound proxy event. One is constructed per
// invocation; it is not safe for reuse across requests.
type Gateway struct {
	event events.APIGatewayProxyRequest
	log   zerolog.Logger
}

func New(event events.APIGatewayProxyRequest, log zerolog.Logger) *Gateway {
	return &Gateway{event: event, log: log}
}

// HTTPMethod returns the request method, or UNKNOWN_METHOD when absent.
func (g *Gateway) HTTPMethod() string {
	if g.event.HTTPMethod == "" {
		return unknownMethod
	}
	return g.event.HTTPMethod
}

// HTTPResource reconstructs the canonical resource URL from the forwarded
// proto/port/host headers and the raw path. Default ports are elided and a
// /{stage} prefix is inserted only for managed API Gateway hosts.
func (g *Gateway) HTTPResource() string {
	protocol := g.header("X-Forwarded-Proto", unknownProtocol)
	port := g.header("X-Forwarded-Port", unknownPort)
	if (protocol == "http" && port == "80") || (protocol == "https" && port == "443") {
		port = ""
	} else {
		port = ":" + port
	}
	host := g.header("Host", unknownHost)
	contextPath := ""
	if managedGatewayHostRe.MatchString(host) {
		stage := g.event.RequestContext.Stage
		if stage == "" {
			stage = unknownStage
		}
		contextPath = "/" + stage
	}
	path := g.event.Path
	if path == "" {
		path = unknownPath
	}
	return fmt.Sprintf("%s://%s%s%s%s", protocol, host, port, contextPath, path)
}

func (g *Gateway) header(name, fallback string) string {
	if v, ok := g.event.Headers[name]; ok {
		return v
	}
	return fallback
}

// Principal reads the JSON-encoded identity token installed by the upstream
// authorizer, validates it against the principal schema and returns the
// resulting Principal. All failures are 401s.
func (g *Gateway) Principal() (*domain.Principal, error) {
	var raw *string
	if v, ok := g.event.RequestContext.Authorizer["principalId"].(string); ok {
		raw = &v
	}
	obj, err := g.getAndValidateJSON(raw, "principal", schemas.Principal,
		func() *HTTPError { return NewHTTPError(StatusUnauthorized, "Missing principal") },
		func() *HTTPError { return NewHTTPError(StatusUnauthorized, "Malformed principal JSON") },
		func() *HTTPError { return NewHTTPError(StatusUnauthorized, "Invalid principal") },
	)
	if err != nil {
		return nil, err
	}
	token := obj.(map[string]any)
	organizationID, _ := token["organizationId"].(string)
	rawRoles, _ := token["roles"].([]any)
	roles := make([]string, 0, len(rawRoles))
	for _, r := range rawRoles {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return domain.NewPrincipal(organizationID, roles), nil
}

// PathParameter looks up a path parameter. A nil result means the parameter
// was absent and not required.
func (g *Gateway) PathParameter(name string, required bool, validator func(*string) error) (*string, error) {
	return g.parameter("path parameter", g.event.PathParameters, name, required, validator)
}

// QueryStringParameter looks up a query string parameter.
func (g *Gateway) QueryStringParameter(name string, required bool, validator func(*string) error) (*string, error) {
	return g.parameter("query string parameter", g.event.QueryStringParameters, name, required, validator)
}

// Header looks up a request header.
func (g *Gateway) Header(name string, required bool, validator func(*string) error) (*string, error) {
	return g.parameter("header", g.event.Headers, name, required, validator)
}

func (g *Gateway) parameter(origin string, params map[string]string, name string, required bool, validator func(*string) error) (*string, error) {
	var param *string
	if v, ok := params[name]; ok {
		param = &v
	}
	if required && param == nil {
		return nil, NewHTTPError(StatusBadRequest, fmt.Sprintf("Missing %s %q", origin, name))
	}
	if validator != nil {
		if err := validator(param); err != nil {
			return nil, NewHTTPError(StatusBadRequest, fmt.Sprintf("Invalid %s %q", origin, name), err.Error())
		}
	}
	return param, nil
}

// Entity parses and schema-validates the request body, then rewrites ISO
// datetime strings into time.Time leaves. name labels the entity in error
// messages.
func (g *Gateway) Entity(schemaJSON []byte, name string) (domain.Thing, error) {
	if contentType, ok := g.event.Headers["Content-Type"]; ok && !applicationJSONRe.MatchString(contentType) {
		return nil, NewHTTPError(StatusUnsupportedMediaType, "Expected application/json Content-Type")
	}
	var raw *string
	if g.event.Body != "" {
		body := g.event.Body
		raw = &body
	}
	obj, err := g.getAndValidateJSON(raw, name, schemaJSON,
		func() *HTTPError { return NewHTTPError(StatusBadRequest, fmt.Sprintf("Missing %s", name)) },
		func() *HTTPError { return NewHTTPError(StatusBadRequest, fmt.Sprintf("Malformed %s JSON", name)) },
		func() *HTTPError { return NewHTTPError(StatusUnprocessableEntity, fmt.Sprintf("Invalid %s", name)) },
	)
	if err != nil {
		return nil, err
	}
	return domain.Thing(obj.(map[string]any)), nil
}

// getAndValidateJSON is the shared parse-validate-rewrite pipeline behind
// Principal and Entity. A malformed schema is an internal fault, not a
// client error.
func (g *Gateway) getAndValidateJSON(raw *string, name string, schemaJSON []byte, missing, malformed, invalid func() *HTTPError) (any, error) {
	if raw == nil {
		return nil, missing()
	}
	var obj any
	if err := json.Unmarshal([]byte(*raw), &obj); err != nil {
		e := malformed()
		e.Causes = []string{err.Error()}
		return nil, e
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, domain.NewError(domain.CodeInternalServerError,
			fmt.Sprintf("Invalid %s JSON schema", name), err.Error())
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return nil, domain.NewError(domain.CodeInternalServerError,
			fmt.Sprintf("Invalid %s JSON schema", name), err.Error())
	}
	if !result.Valid() {
		e := invalid()
		causes := make([]string, 0, len(result.Errors()))
		for _, ve := range result.Errors() {
			causes = append(causes, ve.String())
		}
		e.Causes = causes
		return nil, e
	}
	jsontime.Rewrite(obj)
	return obj, nil
}

// WasModifiedSince compares the entity's lastModified against the
// If-Modified-Since header, both truncated to whole seconds. An absent
// header always counts as modified.
func (g *Gateway) WasModifiedSince(entity domain.Thing) (bool, error) {
	value, ok := g.event.Headers["If-Modified-Since"]
	if !ok {
		return true, nil
	}
	since, err := parseHTTPDate(value)
	if err != nil {
		return false, NewHTTPError(StatusBadRequest,
			fmt.Sprintf("Invalid If-Modified-Since header: %q", value), err.Error())
	}
	return entity.LastModified().Truncate(time.Second).After(since.Truncate(time.Second)), nil
}

func parseHTTPDate(value string) (time.Time, error) {
	if t, err := http.ParseTime(value); err == nil {
		return t, nil
	}
	return jsontime.Decode(value)
}

// LastModifiedHeader formats the entity's lastModified as an RFC-1123 GMT
// Last-Modified header entry.
func (g *Gateway) LastModifiedHeader(entity domain.Thing) map[string]string {
	return map[string]string{"Last-Modified": entity.LastModified().UTC().Format(http.TimeFormat)}
}

// LocationHeader points at the resource URL of a newly created entity.
func (g *Gateway) LocationHeader(uuid string) map[string]string {
	return map[string]string{"Location": g.HTTPResource() + "/" + uuid}
}

// Respond formats a success response. The fixed CORS header is merged under
// any caller-supplied headers and datetime leaves in body are encoded to the
// wire format.
func (g *Gateway) Respond(statusCode int, headers map[string]string, body any) events.APIGatewayProxyResponse {
	merged := map[string]string{"Access-Control-Allow-Origin": "*"}
	for k, v := range headers {
		merged[k] = v
	}
	if body == nil {
		body = map[string]any{}
	}
	encoded, err := jsontime.Marshal(body)
	if err != nil {
		g.log.Error().Err(err).Msg("response body encoding failed")
		return g.Respond(StatusInternalServerError, nil,
			NewHTTPError(StatusInternalServerError, "Response encoding failed").body())
	}
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    merged,
		Body:       string(encoded),
	}
}

// ErrorResponse wraps err into an HTTPError, stamps the request method and
// resource onto it and serializes its full field set as the body.
func (g *Gateway) ErrorResponse(err error) events.APIGatewayProxyResponse {
	httpErr := Wrap(err)
	httpErr.Method = g.HTTPMethod()
	httpErr.Resource = g.HTTPResource()
	g.log.Warn().
		Int("status", httpErr.StatusCode).
		Str("method", httpErr.Method).
		Str("resource", httpErr.Resource).
		Msg(httpErr.Message)
	return g.Respond(httpErr.StatusCode, nil, httpErr.body())
}
