// Package local runs the lambda mappers behind a plain HTTP server for
// development: each request is translated into the same proxy event shape
// API Gateway would deliver, so the whole pipeline behaves identically in
// both deployments.
package local

import (
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
)

// PrincipalHeader carries the JSON identity token that API Gateway would
// install via its authorizer. Local callers set it directly; there is no
// authentication here by design.
const PrincipalHeader = "X-Principal"

// eventFromRequest synthesizes an API Gateway proxy event from an HTTP
// request. pathParams names the chi URL parameters to copy over.
func eventFromRequest(r *http.Request, pathParams ...string) events.APIGatewayProxyRequest {
	headers := map[string]string{}
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}
	headers["Host"] = r.Host
	if _, ok := headers["X-Forwarded-Proto"]; !ok {
		headers["X-Forwarded-Proto"] = "http"
	}

	query := map[string]string{}
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			query[name] = values[0]
		}
	}

	var path map[string]string
	for _, name := range pathParams {
		if v := chi.URLParam(r, name); v != "" {
			if path == nil {
				path = map[string]string{}
			}
			path[name] = v
		}
	}

	body, _ := io.ReadAll(r.Body)

	event := events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		PathParameters:        path,
		QueryStringParameters: query,
		Body:                  string(body),
	}
	if token := r.Header.Get(PrincipalHeader); token != "" {
		event.RequestContext.Authorizer = map[string]any{"principalId": token}
	}
	return event
}

// writeResponse copies a proxy response back onto the HTTP response writer.
func writeResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse) {
	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write([]byte(resp.Body))
}
