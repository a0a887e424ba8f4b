// Package mcptool exposes the lifecycle and query operations as MCP tools
// over stdio, for use from agent hosts.
package mcptool

import (
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ganot/worklog/internal/domain/worklog"
	"github.com/ganot/worklog/internal/query"
)

const serverInstructions = `Worklog tracks work sessions against assigned tasks.
Use start_task and stop_task to manage a session, and ask to query archived
sessions in natural language.`

// Config contains server configuration.
type Config struct {
	Lifecycle *worklog.Service
	Engine    *query.Engine
	Logger    *slog.Logger
}

// NewServer creates and configures an MCP server with all tools.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "worklog",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerTools(server, cfg)
	return server
}

// Run serves the MCP protocol over stdio until the context is cancelled.
func Run(ctx context.Context, server *sdkmcp.Server) error {
	return server.Run(ctx, &sdkmcp.StdioTransport{})
}

type startTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"the task to start a session for"`
	UserID string `json:"user_id" jsonschema:"the user starting the session"`
}

type startTaskOutput struct {
	LogID     string `json:"log_id"`
	StartTime string `json:"start_time"`
}

type stopTaskInput struct {
	LogID           string `json:"log_id" jsonschema:"the session log to close"`
	Status          string `json:"status" jsonschema:"terminal status, e.g. Completed or In progress"`
	Comment         string `json:"comment" jsonschema:"free-text note on the work done"`
	DurationSeconds int64  `json:"duration_seconds" jsonschema:"accumulated work time in seconds"`
}

type stopTaskOutput struct {
	LogID    string `json:"log_id"`
	Status   string `json:"status"`
	Archived bool   `json:"archived"`
}

type askInput struct {
	Question string `json:"question" jsonschema:"natural-language question about archived sessions"`
	UserID   string `json:"user_id" jsonschema:"the user whose sessions to query"`
}

type askOutput struct {
	Answer string `json:"answer"`
}

func registerTools(server *sdkmcp.Server, cfg Config) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "start_task",
		Description: "Start a work session for a task; returns the existing session if one is already open",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in startTaskInput) (*sdkmcp.CallToolResult, startTaskOutput, error) {
		log, err := cfg.Lifecycle.Start(ctx, in.TaskID, in.UserID)
		if err != nil {
			return nil, startTaskOutput{}, err
		}
		return nil, startTaskOutput{
			LogID:     log.ID,
			StartTime: log.StartTime.Format("2006-01-02 15:04:05"),
		}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "stop_task",
		Description: "Close a work session with a status and comment, and archive it for search",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in stopTaskInput) (*sdkmcp.CallToolResult, stopTaskOutput, error) {
		result, err := cfg.Lifecycle.Stop(ctx, worklog.StopRequest{
			LogID:           in.LogID,
			Status:          in.Status,
			Comment:         in.Comment,
			DurationSeconds: in.DurationSeconds,
		})
		if err != nil {
			return nil, stopTaskOutput{}, err
		}
		out := stopTaskOutput{LogID: result.Log.ID, Archived: result.Archived}
		if result.Log.Status != nil {
			out.Status = *result.Log.Status
		}
		return nil, out, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "ask",
		Description: "Answer a natural-language question about archived work sessions",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in askInput) (*sdkmcp.CallToolResult, askOutput, error) {
		if cfg.Engine == nil {
			return nil, askOutput{}, fmt.Errorf("query engine not configured")
		}
		answer, err := cfg.Engine.Ask(ctx, in.Question, in.UserID)
		if err != nil {
			return nil, askOutput{}, err
		}
		return nil, askOutput{Answer: answer}, nil
	})
}
