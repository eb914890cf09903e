// Package mcpserver exposes the farm advisor to other agents over MCP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agrisense/farm-advisor/internal/advisor"
)

const (
	ToolFarmContext = "farm_context"
	ToolAskFarm     = "ask_farm"

	contextURIPrefix = "farm://"
	contextURISuffix = "/context"
)

type Advisor interface {
	Ask(ctx context.Context, q advisor.Question) (advisor.Answer, error)
}

type farmArgs struct {
	FarmID string `json:"farm_id"`
}

type askArgs struct {
	FarmID   string `json:"farm_id"`
	Message  string `json:"message"`
	Language string `json:"language"`
}

type handlers struct {
	contexts advisor.ContextBuilder
	advisor  Advisor
	logger   *slog.Logger
}

func New(contexts advisor.ContextBuilder, adv Advisor, version string, logger *slog.Logger) *sdkmcp.Server {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{contexts: contexts, advisor: adv, logger: logger.With("component", "mcp")}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "farm-advisor", Version: version}, nil)
	server.AddTool(&sdkmcp.Tool{
		Name:        ToolFarmContext,
		Description: "Current farm context: crop, soil, latest conditions, trends, health analysis and alerts.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"farm_id"},
			"properties": map[string]any{
				"farm_id": map[string]any{"type": "string", "description": "Farm identifier"},
			},
		},
	}, h.farmContext)
	server.AddTool(&sdkmcp.Tool{
		Name:        ToolAskFarm,
		Description: "Ask the farm advisor a question about one farm. Answers in en, kn, hi or ta.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"farm_id", "message"},
			"properties": map[string]any{
				"farm_id":  map[string]any{"type": "string"},
				"message":  map[string]any{"type": "string"},
				"language": map[string]any{"type": "string", "enum": advisor.SupportedLanguages},
			},
		},
	}, h.askFarm)
	server.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		Name:        "farm-context",
		URITemplate: contextURIPrefix + "{farm_id}" + contextURISuffix,
		MIMEType:    "application/json",
		Description: "Farm context document as JSON",
	}, h.readContext)
	return server
}

// Handler serves the MCP server over streamable HTTP.
func Handler(server *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server { return server }, nil)
}

func (h *handlers) farmContext(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
	var args farmArgs
	if err := decodeArgs(req, &args); err != nil {
		return toolError(err.Error()), nil
	}
	if strings.TrimSpace(args.FarmID) == "" {
		return toolError("farm_id is required"), nil
	}
	raw, err := json.Marshal(h.contexts.Build(ctx, strings.TrimSpace(args.FarmID)))
	if err != nil {
		return nil, fmt.Errorf("encode farm context: %w", err)
	}
	return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(raw)}}}, nil
}

func (h *handlers) askFarm(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
	var args askArgs
	if err := decodeArgs(req, &args); err != nil {
		return toolError(err.Error()), nil
	}
	answer, err := h.advisor.Ask(ctx, advisor.Question{FarmID: args.FarmID, Text: args.Message, Language: args.Language})
	if err != nil {
		h.logger.Debug("ask_farm rejected", "farm_id", args.FarmID, "error", err)
		return toolError(err.Error()), nil
	}
	return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: answer.Text}}}, nil
}

func (h *handlers) readContext(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	uri := req.Params.URI
	farmID := strings.TrimSuffix(strings.TrimPrefix(uri, contextURIPrefix), contextURISuffix)
	if farmID == "" || farmID == uri || strings.Contains(farmID, "/") {
		return nil, sdkmcp.ResourceNotFoundError(uri)
	}
	raw, err := json.Marshal(h.contexts.Build(ctx, farmID))
	if err != nil {
		return nil, fmt.Errorf("encode farm context: %w", err)
	}
	return &sdkmcp.ReadResourceResult{Contents: []*sdkmcp.ResourceContents{{URI: uri, MIMEType: "application/json", Text: string(raw)}}}, nil
}

func decodeArgs(req *sdkmcp.CallToolRequest, out any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, out); err != nil {
		return errors.New("invalid arguments")
	}
	return nil
}

func toolError(message string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: message}},
	}
}
