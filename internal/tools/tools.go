// Package tools implements the MCP tool handlers over the memory service.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/memory"
)

// Tools holds references needed by the tool handlers.
type Tools struct {
	Service *memory.Service
	Logger  *zap.Logger
}

// New creates the tool handlers. logger may be nil.
func New(svc *memory.Service, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{Service: svc, Logger: logger}
}

// IDInput addresses a single record.
type IDInput struct {
	ID int64 `json:"id" jsonschema:"Record id"`
}

// call runs one tool invocation under a fresh request id and renders its
// outcome. Domain errors become tool errors carrying the JSON form of the
// error; the protocol-level error is reserved for transport failures.
func (t *Tools) call(ctx context.Context, tool string, fn func(ctx context.Context) (any, error)) (*mcp.CallToolResult, any, error) {
	logger := t.Logger.With(zap.String("tool", tool), zap.String("request_id", uuid.NewString()))
	start := time.Now()

	v, err := fn(ctx)
	if err != nil {
		e := apperr.From(err)
		fields := []zap.Field{zap.String("kind", string(e.Kind)), zap.Error(err), zap.Duration("elapsed", time.Since(start))}
		if e.Kind == apperr.KindStorage {
			logger.Error("tool call failed", fields...)
		} else {
			logger.Info("tool call rejected", fields...)
		}
		return toolError(e), nil, nil
	}

	logger.Debug("tool call", zap.Duration("elapsed", time.Since(start)))
	return toolJSON(v)
}

func toolError(e *apperr.Error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: e.JSON()}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(apperr.New(apperr.KindStorage, fmt.Sprintf("marshal result: %v", err), err)), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// rawJSON re-encodes a decoded JSON argument. nil stays nil, which the
// store treats as absent.
func rawJSON(field string, v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Validation(field, "json", field+" is not valid JSON")
	}
	return b, nil
}

// parseTime reads an optional RFC 3339 timestamp argument.
func parseTime(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperr.Validation(field, "rfc3339", field+" must be an RFC 3339 timestamp").
			WithDetail("value", v)
	}
	return &ts, nil
}
