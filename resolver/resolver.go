// Package resolver maps a user message onto a concrete request against an AI
// plugin: the model first picks a path of the plugin's OpenAPI document, then
// fills the JSON payload of the first operation it can satisfy.
package resolver

import (
	"context"
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/zijiren233/openapi-plugin-resolver/convert"
	"github.com/zijiren233/openapi-plugin-resolver/llm"
	"github.com/zijiren233/openapi-plugin-resolver/plugin"
)

// Options configures a Resolver. Zero values fall back to defaults
type Options struct {
	Fetcher      *plugin.Fetcher
	Prompts      fs.FS
	Settings     Settings
	TokenCounter llm.TokenCounter
	Logger       *zap.Logger
}

// Resolver runs resolutions. It keeps no per-resolution state, so one value
// may serve concurrent Resolve calls.
type Resolver struct {
	fetcher      *plugin.Fetcher
	prompts      fs.FS
	conversation *Conversation
	logger       *zap.Logger
}

// New creates a Resolver backed by client
func New(client llm.Client, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = plugin.NewFetcher(nil, logger)
	}
	prompts := opts.Prompts
	if prompts == nil {
		prompts = DefaultPrompts()
	}

	return &Resolver{
		fetcher:      fetcher,
		prompts:      prompts,
		conversation: NewConversation(client, opts.Settings, opts.TokenCounter, logger),
		logger:       logger,
	}
}

// Resolve maps message onto a request against the plugin whose manifest is
// served at pluginURL. history is sent ahead of every prompt and is not
// modified. Resolve never fails: errors are reported through Result.Failure.
func (r *Resolver) Resolve(ctx context.Context, history []llm.Message, message, pluginURL string) (result *Result) {
	result = &Result{Chain: NewMessageChain()}
	logger := r.logger.With(zap.String("plugin_url", pluginURL))

	defer func() {
		if rec := recover(); rec != nil {
			r.fail(logger, result, &Error{Kind: KindInternal, Err: errors.Newf("panic: %v", rec)})
		}
		result.Usage = result.Chain.Usage()
	}()

	if err := r.resolve(ctx, logger, history, message, pluginURL, result); err != nil {
		r.fail(logger, result, err)
	}
	return result
}

func (r *Resolver) fail(logger *zap.Logger, result *Result, err error) {
	result.Failure = newCause(err)
	logger.Error("plugin resolution failed",
		zap.String("kind", string(result.Failure.Kind)),
		zap.Error(err),
		zap.String("trace", result.Failure.Trace))
}

func (r *Resolver) resolve(ctx context.Context, logger *zap.Logger, history []llm.Message, message, pluginURL string, result *Result) error {
	manifest, err := r.fetcher.FetchManifest(ctx, pluginURL)
	if err != nil {
		return wrap(KindPluginLoad, err, "load plugin")
	}

	data, err := r.fetcher.FetchDocument(ctx, manifest.API.URL)
	if err != nil {
		return wrap(KindSpecFetch, err, "fetch OpenAPI document")
	}
	parser := convert.NewParser()
	if err := parser.Parse(data); err != nil {
		return wrap(KindSpecFetch, err, "parse OpenAPI document")
	}
	title := parser.Title()
	logger = logger.With(zap.String("plugin", title))

	prompts, err := LoadPrompts(r.prompts)
	if err != nil {
		return wrap(KindTemplateLoad, err, "load prompts")
	}

	target, ok, err := r.identifyPath(ctx, parser, prompts, history, message, result.Chain)
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug("no path found")
		return nil
	}
	result.PathFound = true

	pathItem := parser.GetPath(target)
	if pathItem == nil {
		logger.Warn("model chose a path the plugin does not declare", zap.String("path", target))
		return nil
	}
	logger.Debug("path found", zap.String("path", target))

	req, err := r.resolveOperation(ctx, logger, parser, prompts, pathItem, target, history, message, result.Chain)
	if err != nil {
		return err
	}
	if req != nil {
		result.OperationFound = true
		result.Request = req
	}
	return nil
}

// identifyPath asks the model which path serves message. ok is false when the
// model declines.
func (r *Resolver) identifyPath(ctx context.Context, parser *convert.Parser, prompts *Prompts, history []llm.Message, message string, chain *MessageChain) (path string, ok bool, err error) {
	pathsYAML, err := convert.RenderPaths(parser.GetPaths())
	if err != nil {
		return "", false, wrap(KindSpecFetch, err, "render paths")
	}
	payload, err := prompts.IdentifyPath(pathsYAML, message)
	if err != nil {
		return "", false, wrap(KindTemplateLoad, err, "render path prompt")
	}

	reply, _, err := r.conversation.Converse(ctx, chain, history, payload)
	if err != nil {
		return "", false, wrap(KindLLMCall, err, "identify path")
	}
	if ClassifyReply(reply.Content) == OutcomeDeclined {
		return "", false, nil
	}
	return reply.Content, true, nil
}

// resolveOperation tries each method of the path in priority order and returns
// the request of the first one the model builds a payload for, or nil.
func (r *Resolver) resolveOperation(ctx context.Context, logger *zap.Logger, parser *convert.Parser, prompts *Prompts, pathItem *openapi3.PathItem, path string, history []llm.Message, message string, chain *MessageChain) (*RequestDefinition, error) {
	// The entity always comes from the first method of the path
	entity, _ := convert.ExtractRequestResponseNames(pathItem)
	schemas := parser.GetSchemas()

	for _, mo := range convert.Operations(pathItem) {
		opLogger := logger.With(zap.String("method", string(mo.Method)))

		components, err := convert.ExtractOperationComponents(schemas, mo.Operation)
		if err != nil {
			return nil, wrap(KindSchemaLookup, err, "extract components")
		}
		if len(components) == 0 {
			opLogger.Debug("no components found")
			continue
		}
		opLogger.Debug("components found", zap.Int("components", len(components)))

		componentsYAML, err := convert.RenderComponents(components)
		if err != nil {
			return nil, wrap(KindSpecFetch, err, "render components")
		}
		payload, err := prompts.GeneratePayload(componentsYAML, entity, message)
		if err != nil {
			return nil, wrap(KindTemplateLoad, err, "render payload prompt")
		}

		reply, _, err := r.conversation.Converse(ctx, chain, history, payload)
		if err != nil {
			return nil, wrap(KindLLMCall, err, "generate payload")
		}
		if ClassifyReply(reply.Content) == OutcomeDeclined {
			opLogger.Debug("payload not resolved")
			continue
		}

		baseURL, err := parser.ServerURL()
		if err != nil {
			return nil, wrap(KindSpecFetch, err, "resolve server url")
		}
		opLogger.Debug("payload resolved")
		return NewRequestDefinition(baseURL, path, mo.Method, reply.Content), nil
	}

	return nil, nil
}
