package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/alecthomas/kong"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/zijiren233/openapi-plugin-resolver/config"
	"github.com/zijiren233/openapi-plugin-resolver/convert"
	"github.com/zijiren233/openapi-plugin-resolver/llm"
	"github.com/zijiren233/openapi-plugin-resolver/plugin"
	"github.com/zijiren233/openapi-plugin-resolver/resolver"
)

// CLI lists the commands of the resolver binary
type CLI struct {
	Resolve ResolveCmd `cmd:"" help:"Resolve a message into a request against a plugin."`
	List    ListCmd    `cmd:"" help:"List the operations a plugin exposes."`
	Serve   ServeCmd   `cmd:"" help:"Serve the resolver as MCP tools over stdio."`
	Schema  SchemaCmd  `cmd:"" help:"Print the JSON schema of a resolution result."`
}

// ResolveCmd resolves one message and prints the result as JSON
type ResolveCmd struct {
	PluginURL string `help:"URL of the plugin's ai-plugin.json manifest." required:"" name:"plugin-url"`
	Message   string `help:"User message to resolve." required:"" short:"m"`
	System    string `help:"Optional system message sent ahead of every prompt."`
}

// Run resolves the message against the plugin
func (c *ResolveCmd) Run(app *App) error {
	r, err := app.Resolver()
	if err != nil {
		return err
	}
	result := r.Resolve(context.Background(), systemHistory(c.System), c.Message, c.PluginURL)
	return printJSON(result)
}

// ListCmd prints the operation catalog of a plugin
type ListCmd struct {
	PluginURL string `help:"URL of the plugin's ai-plugin.json manifest." required:"" name:"plugin-url"`
	Prefix    string `help:"Prefix added to every operation name."`
}

// Run loads the plugin and prints one line per operation
func (c *ListCmd) Run(app *App) error {
	summaries, err := app.Operations(context.Background(), c.PluginURL, c.Prefix)
	if err != nil {
		return err
	}
	fmt.Print(convert.Format(summaries))
	return nil
}

// ServeCmd exposes the resolver as MCP tools
type ServeCmd struct {
	Name string `help:"Server name reported to MCP clients." default:"openapi-plugin-resolver"`
}

// Run serves MCP over stdio until the client disconnects
func (c *ServeCmd) Run(app *App) error {
	r, err := app.Resolver()
	if err != nil {
		return err
	}
	s := newMCPServer(c.Name, app, r)
	app.logger.Info("serving MCP over stdio", zap.String("name", c.Name))
	return server.ServeStdio(s)
}

// SchemaCmd prints the JSON schema of a resolution result
type SchemaCmd struct{}

// Run writes the schema to stdout
func (c *SchemaCmd) Run() error {
	return printJSON(resolver.ResultSchema())
}

// App holds the process-wide dependencies shared by every command
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	fetcher *plugin.Fetcher
}

func newApp(cfg config.Config) (*App, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	return &App{
		cfg:     cfg,
		logger:  logger,
		fetcher: plugin.NewFetcher(httpClient, logger),
	}, nil
}

// Resolver builds a resolver from the configured LLM provider
func (a *App) Resolver() (*resolver.Resolver, error) {
	if !a.cfg.LLM.Enabled() {
		return nil, fmt.Errorf("LLM_API_KEY is required and LLM_PROVIDER must be openai or anthropic")
	}
	client, err := llm.NewClient(a.cfg.LLM.Client())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var prompts fs.FS
	if a.cfg.PromptsDir != "" {
		prompts = os.DirFS(a.cfg.PromptsDir)
	}

	return resolver.New(client, resolver.Options{
		Fetcher: a.fetcher,
		Prompts: prompts,
		Settings: resolver.Settings{
			Model:       a.cfg.LLM.Model,
			Temperature: a.cfg.LLM.Temperature,
			MaxTokens:   a.cfg.LLM.MaxTokens,
		},
		TokenCounter: llm.NewTiktokenCounter(client.Model()),
		Logger:       a.logger,
	}), nil
}

// Operations loads a plugin and lists its operations
func (a *App) Operations(ctx context.Context, pluginURL, prefix string) ([]convert.OperationSummary, error) {
	manifest, err := a.fetcher.FetchManifest(ctx, pluginURL)
	if err != nil {
		return nil, err
	}
	data, err := a.fetcher.FetchDocument(ctx, manifest.API.URL)
	if err != nil {
		return nil, err
	}

	parser := convert.NewParser()
	if err := parser.Parse(data); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	return convert.NewConverter(parser, convert.Options{ToolNamePrefix: prefix}).Convert()
}

func systemHistory(system string) []llm.Message {
	if system == "" {
		return nil
	}
	return []llm.Message{llm.SystemMessage(system)}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	app, err := newApp(config.Load())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer app.logger.Sync() //nolint:errcheck

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("openapi-plugin-resolver"),
		kong.Description("Resolve natural-language requests into calls against OpenAPI plugins."),
		kong.UsageOnError(),
		kong.Bind(app),
	)
	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}
