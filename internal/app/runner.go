package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-todo-server/internal/config"
	mcputil "github.com/sha1n/mcp-todo-server/internal/mcp"
	"github.com/sha1n/mcp-todo-server/internal/searchindex"
	"github.com/sha1n/mcp-todo-server/internal/store"
	"github.com/sha1n/mcp-todo-server/internal/todos"
	"github.com/spf13/pflag"
)

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(*mcp.Server, *config.Settings) error
	CreateServer      func(*config.Settings) (*mcp.Server, func(), error)
	OpenService       func(context.Context, *config.Settings) (*todos.Service, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
		OpenService:    OpenService,
	}
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := loadSettings(params, flags)
	if err != nil {
		return err
	}

	slog.Info("Starting todo MCP server", "version", version)
	config.Log(settings)

	mcpServer, cleanup, err := params.CreateServer(settings)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Start server
	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(mcpServer, settings)
}

// ReindexWithDeps rebuilds the search index from the store with the provided dependencies
func ReindexWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet) (todos.ReindexStats, error) {
	settings, err := loadSettings(params, flags)
	if err != nil {
		return todos.ReindexStats{}, err
	}

	slog.Info("Starting reindex")
	config.Log(settings)

	svc, cleanup, err := params.OpenService(ctx, settings)
	if err != nil {
		return todos.ReindexStats{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	return svc.Reindex(ctx)
}

func loadSettings(params RunParams, flags *pflag.FlagSet) (*config.Settings, error) {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid buffering issues
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	return settings, nil
}

// OpenService opens the store and the search index and composes the todo service.
// The returned cleanup closes both.
func OpenService(ctx context.Context, settings *config.Settings) (*todos.Service, func(), error) {
	db, err := store.Open(settings.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	st := store.New(db)

	gateway, err := searchindex.New(ctx, &settings.Search, slog.Default())
	if err != nil {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("Failed to close store", "error", closeErr)
		}
		return nil, nil, fmt.Errorf("failed to open search index: %w", err)
	}

	cleanup := func() {
		if err := gateway.Close(); err != nil {
			slog.Error("Failed to close search index", "error", err)
		}
		if err := st.Close(); err != nil {
			slog.Error("Failed to close store", "error", err)
		}
	}

	return todos.NewService(st, gateway, slog.Default()), cleanup, nil
}

// CreateMCPServer creates the MCP server with registered tools
func CreateMCPServer(settings *config.Settings) (*mcp.Server, func(), error) {
	svc, cleanup, err := OpenService(context.Background(), settings)
	if err != nil {
		return nil, nil, err
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:    "todo-mcp",
		Version: "1.0.0",
		TodoSvc: svc,
	})

	return server, cleanup, nil
}
