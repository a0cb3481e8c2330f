package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zijiren233/openapi-plugin-resolver/convert"
	"github.com/zijiren233/openapi-plugin-resolver/llm"
	"github.com/zijiren233/openapi-plugin-resolver/resolver"
)

const version = "0.1.0"

type pluginResolver interface {
	Resolve(ctx context.Context, history []llm.Message, message, pluginURL string) *resolver.Result
}

type operationLister interface {
	Operations(ctx context.Context, pluginURL, prefix string) ([]convert.OperationSummary, error)
}

// toolHandlers serves the MCP tools of the resolver
type toolHandlers struct {
	operations operationLister
	resolver   pluginResolver
}

func newMCPServer(name string, operations operationLister, r pluginResolver) *server.MCPServer {
	s := server.NewMCPServer(name, version)
	h := &toolHandlers{operations: operations, resolver: r}

	s.AddTool(mcp.NewTool("resolve_plugin_request",
		mcp.WithDescription("Map a natural-language message onto a request against an AI plugin. Returns the resolution result as JSON."),
		mcp.WithString("message",
			mcp.Description("User message to resolve"),
			mcp.Required()),
		mcp.WithString("plugin_url",
			mcp.Description("URL of the plugin's ai-plugin.json manifest"),
			mcp.Required()),
		mcp.WithString("system",
			mcp.Description("Optional system message sent ahead of every prompt")),
	), h.resolve)

	s.AddTool(mcp.NewTool("list_plugin_operations",
		mcp.WithDescription("List the operations exposed by an AI plugin"),
		mcp.WithString("plugin_url",
			mcp.Description("URL of the plugin's ai-plugin.json manifest"),
			mcp.Required()),
	), h.list)

	return s
}

func (h *toolHandlers) resolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := stringArgument(request, "message", true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pluginURL, err := stringArgument(request, "plugin_url", true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	system, err := stringArgument(request, "system", false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := h.resolver.Resolve(ctx, systemHistory(system), message, pluginURL)
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if result.Failed() {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (h *toolHandlers) list(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pluginURL, err := stringArgument(request, "plugin_url", true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summaries, err := h.operations.Operations(ctx, pluginURL, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(convert.Format(summaries)), nil
}

func stringArgument(request mcp.CallToolRequest, name string, required bool) (string, error) {
	raw, ok := request.Params.Arguments[name]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("missing required argument %q", name)
		}
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", name)
	}
	if required && value == "" {
		return "", fmt.Errorf("argument %q must not be empty", name)
	}
	return value, nil
}
