package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/swaggo/swag"
	"github.com/tpm-platform/allocation-engine/docs"
)

// OpenAPI3Spec represents an OpenAPI 3.0 spec structure
type OpenAPI3Spec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       map[string]interface{} `json:"info"`
	Servers    []Server               `json:"servers"`
	Paths      map[string]interface{} `json:"paths"`
	Components map[string]interface{} `json:"components,omitempty"`
}

// Server represents an OpenAPI 3.0 server
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

var openAPIServers = []Server{
	{URL: "http://localhost:8080/api/v1", Description: "Local Development"},
	{URL: "https://allocations.tpm.app/api/v1", Description: "Production"},
}

const defaultMediaType = "application/json"

// The generated doc never changes at runtime, so it is converted once
var (
	openAPIOnce sync.Once
	openAPISpec *OpenAPI3Spec
	openAPIErr  error
)

// transformRefs recursively transforms $ref from #/definitions/ to #/components/schemas/
// and converts Swagger 2.0 parameters to OpenAPI 3.0 format
func transformRefs(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{})

		if _, hasIn := v["in"]; hasIn {
			if _, hasName := v["name"]; hasName {
				return transformParameter(v)
			}
		}

		for key, value := range v {
			if key == "$ref" {
				if ref, ok := value.(string); ok {
					result[key] = strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
				} else {
					result[key] = value
				}
			} else {
				result[key] = transformRefs(value)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = transformRefs(item)
		}
		return result
	default:
		return data
	}
}

// transformParameter converts a non-body Swagger 2.0 parameter to OpenAPI 3.0 format
func transformParameter(param map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for _, field := range []string{"name", "in", "description", "required"} {
		if val, ok := param[field]; ok {
			result[field] = val
		}
	}

	schema := make(map[string]interface{})
	for _, field := range []string{"type", "format", "enum", "default", "minimum", "maximum", "items"} {
		if val, ok := param[field]; ok {
			if field == "items" {
				schema[field] = transformRefs(val)
			} else {
				schema[field] = val
			}
		}
	}
	if len(schema) > 0 {
		result["schema"] = schema
	}

	return result
}

// transformOperation moves body parameters into requestBody and response schemas
// under content, keyed by the operation's consumes and produces media types
func transformOperation(op map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for key, value := range op {
		switch key {
		case "parameters", "responses", "consumes", "produces":
		default:
			result[key] = transformRefs(value)
		}
	}

	consumes := mediaTypes(op["consumes"])
	produces := mediaTypes(op["produces"])

	if params, ok := op["parameters"].([]interface{}); ok {
		converted := make([]interface{}, 0, len(params))
		for _, raw := range params {
			param, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if param["in"] == "body" {
				body := map[string]interface{}{
					"content": contentFor(consumes, transformRefs(param["schema"])),
				}
				if desc, ok := param["description"]; ok {
					body["description"] = desc
				}
				if required, ok := param["required"]; ok {
					body["required"] = required
				}
				result["requestBody"] = body
				continue
			}
			converted = append(converted, transformParameter(param))
		}
		if len(converted) > 0 {
			result["parameters"] = converted
		}
	}

	if responses, ok := op["responses"].(map[string]interface{}); ok {
		converted := make(map[string]interface{}, len(responses))
		for code, raw := range responses {
			resp, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			out := map[string]interface{}{"description": resp["description"]}
			if schema, ok := resp["schema"]; ok {
				out["content"] = contentFor(produces, transformRefs(schema))
			}
			converted[code] = out
		}
		result["responses"] = converted
	}

	return result
}

func mediaTypes(raw interface{}) []string {
	list, _ := raw.([]interface{})
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = append(out, defaultMediaType)
	}
	return out
}

func contentFor(types []string, schema interface{}) map[string]interface{} {
	content := make(map[string]interface{}, len(types))
	for _, t := range types {
		content[t] = map[string]interface{}{"schema": schema}
	}
	return content
}

// buildOpenAPI3Spec converts the generated Swagger 2.0 doc
func buildOpenAPI3Spec() (*OpenAPI3Spec, error) {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return nil, fmt.Errorf("read swagger doc: %w", err)
	}

	var swagger2 map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &swagger2); err != nil {
		return nil, fmt.Errorf("parse swagger doc: %w", err)
	}

	info, _ := swagger2["info"].(map[string]interface{})

	paths := make(map[string]interface{})
	rawPaths, _ := swagger2["paths"].(map[string]interface{})
	for path, rawItem := range rawPaths {
		item, ok := rawItem.(map[string]interface{})
		if !ok {
			continue
		}
		methods := make(map[string]interface{}, len(item))
		for method, rawOp := range item {
			if op, ok := rawOp.(map[string]interface{}); ok {
				methods[method] = transformOperation(op)
			}
		}
		paths[path] = methods
	}

	components := make(map[string]interface{})
	if secDefs, ok := swagger2["securityDefinitions"].(map[string]interface{}); ok {
		components["securitySchemes"] = secDefs
	}
	if definitions, ok := swagger2["definitions"].(map[string]interface{}); ok {
		components["schemas"] = transformRefs(definitions)
	}

	return &OpenAPI3Spec{
		OpenAPI:    "3.0.3",
		Info:       info,
		Servers:    openAPIServers,
		Paths:      paths,
		Components: components,
	}, nil
}

// ServeOpenAPI3Spec serves the swagger spec converted to OpenAPI 3.0
func ServeOpenAPI3Spec(c echo.Context) error {
	openAPIOnce.Do(func() {
		openAPISpec, openAPIErr = buildOpenAPI3Spec()
	})
	if openAPIErr != nil {
		log.Error().Err(openAPIErr).Msg("Failed to build OpenAPI document")
		return NewInternalError(c, "Failed to build API document")
	}
	return c.JSON(http.StatusOK, openAPISpec)
}
