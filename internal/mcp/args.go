package mcp

import (
	"math"

	"github.com/mark3labs/mcp-go/mcp"
)

func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return nil, &ArgumentError{Name: "arguments", Reason: "are missing"}
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, &ArgumentError{Name: "arguments", Reason: "must be an object"}
	}
	return args, nil
}

// stringArg returns a required string argument. An empty string is allowed.
func stringArg(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", &ArgumentError{Name: name, Reason: "is required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgumentError{Name: name, Reason: "must be a string"}
	}
	return s, nil
}

// optionalIntArg accepts JSON numbers with no fractional part.
func optionalIntArg(args map[string]interface{}, name string) (int, bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false, &ArgumentError{Name: name, Reason: "must be an integer"}
		}
		return int(n), true, nil
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	default:
		return 0, false, &ArgumentError{Name: name, Reason: "must be a number"}
	}
}

func idArg(args map[string]interface{}) (int64, error) {
	id, ok, err := optionalIntArg(args, "id")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &ArgumentError{Name: "id", Reason: "is required"}
	}
	if id < 1 {
		return 0, &ArgumentError{Name: "id", Reason: "must be positive"}
	}
	return int64(id), nil
}
