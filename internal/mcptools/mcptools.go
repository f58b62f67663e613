// CLAUDE:SUMMARY Registers the ultrasound MCP tools (list, scrape, analyze history, runs, health) over a session.
// Package mcptools exposes a session as MCP tools so an assistant can list
// the studies on screen, scrape the active one and run a longitudinal
// analysis with explicit consent arguments.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/sonodraft/internal/session"
	"github.com/hazyhaar/sonodraft/orchestrate"
	"github.com/hazyhaar/sonodraft/study"
)

// Tool names.
const (
	ToolListStudies    = "ultrasound_list_studies"
	ToolScrapeStudy    = "ultrasound_scrape_study"
	ToolAnalyzeHistory = "ultrasound_analyze_history"
	ToolRuns           = "ultrasound_runs"
	ToolServiceHealth  = "ultrasound_service_health"
)

// endpoint handles one decoded tool request.
type endpoint func(ctx context.Context, req any) (any, error)

// Register adds every tool to srv.
func Register(srv *mcp.Server, sess *session.Session) {
	registerListStudies(srv, sess)
	registerScrapeStudy(srv, sess)
	registerAnalyzeHistory(srv, sess)
	registerRuns(srv, sess)
	registerServiceHealth(srv, sess)
}

// addTool wires an endpoint: arguments are decoded into a fresh value from
// newReq, the result is returned as JSON text, errors become tool errors.
func addTool(srv *mcp.Server, tool *mcp.Tool, newReq func() any, ep endpoint) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		r := newReq()
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, r); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		resp, err := ep(ctx, r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type empty struct{}

// --- list_studies ---

func registerListStudies(srv *mcp.Server, sess *session.Session) {
	tool := &mcp.Tool{
		Name:        ToolListStudies,
		Description: "List the studies linked from the patient page currently open in the browser. Read-only.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func() any { return &empty{} }, func(ctx context.Context, _ any) (any, error) {
		return sess.ListStudies(ctx)
	})
}

// --- scrape_study ---

type scrapeRequest struct {
	DryRun   bool `json:"dry_run,omitempty"`
	NoImages bool `json:"no_images,omitempty"`
}

func registerScrapeStudy(srv *mcp.Server, sess *session.Session) {
	tool := &mcp.Tool{
		Name:        ToolScrapeStudy,
		Description: "Extract the study open in the browser (patient, measurements, conclusion, images) and draft a report. With dry_run the record is returned without contacting the report service.",
		InputSchema: inputSchema(map[string]any{
			"dry_run":   map[string]any{"type": "boolean", "description": "Return the extracted record only"},
			"no_images": map[string]any{"type": "boolean", "description": "Skip the image viewer"},
		}, nil),
	}
	addTool(srv, tool, func() any { return &scrapeRequest{} }, func(ctx context.Context, req any) (any, error) {
		r := req.(*scrapeRequest)
		return sess.ScrapeActive(ctx, session.ScrapeOptions{DryRun: r.DryRun, NoImages: r.NoImages})
	})
}

// --- analyze_history ---

type historyRequest struct {
	Confirm   bool   `json:"confirm"`
	StudyType string `json:"study_type"`
}

func registerAnalyzeHistory(srv *mcp.Server, sess *session.Session) {
	types := make([]any, len(study.AnalysisTypes))
	for i, a := range study.AnalysisTypes {
		types[i] = string(a)
	}
	tool := &mcp.Tool{
		Name: ToolAnalyzeHistory,
		Description: "Visit every study listed on the open patient page, extract each one, and send the history to the report service for a longitudinal analysis. " +
			"The browser tab navigates away from the current page. Requires confirm=true, which stands for the operator's consent.",
		InputSchema: inputSchema(map[string]any{
			"confirm":    map[string]any{"type": "boolean", "description": "Operator consent to navigate and submit"},
			"study_type": map[string]any{"type": "string", "enum": types, "description": "Analysis applied to the whole batch"},
		}, []string{"confirm", "study_type"}),
	}
	addTool(srv, tool, func() any { return &historyRequest{} }, func(ctx context.Context, req any) (any, error) {
		r := req.(*historyRequest)
		analysis, err := study.ParseAnalysisType(r.StudyType)
		if err != nil {
			analysis = study.AnalysisType(r.StudyType)
		}
		res, err := sess.RunHistory(ctx, &orchestrate.Scripted{Approve: r.Confirm, StudyType: analysis})
		if err != nil {
			return nil, err
		}
		return res, nil
	})
}

// --- runs ---

type runsRequest struct {
	Limit int    `json:"limit,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

func registerRuns(srv *mcp.Server, sess *session.Session) {
	tool := &mcp.Tool{
		Name:        ToolRuns,
		Description: "List recent runs from the journal, or the transitions of one run when run_id is given.",
		InputSchema: inputSchema(map[string]any{
			"limit":  map[string]any{"type": "integer", "description": "Max runs (default 50)"},
			"run_id": map[string]any{"type": "string", "description": "Return the transitions of this run"},
		}, nil),
	}
	addTool(srv, tool, func() any { return &runsRequest{} }, func(ctx context.Context, req any) (any, error) {
		r := req.(*runsRequest)
		if r.RunID != "" {
			events, err := sess.Events(ctx, r.RunID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"run_id": r.RunID, "events": events}, nil
		}
		runs, err := sess.Runs(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"runs": runs}, nil
	})
}

// --- service_health ---

func registerServiceHealth(srv *mcp.Server, sess *session.Session) {
	tool := &mcp.Tool{
		Name:        ToolServiceHealth,
		Description: "Check that the report service answers.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	addTool(srv, tool, func() any { return &empty{} }, func(ctx context.Context, _ any) (any, error) {
		if err := sess.Health(ctx); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	})
}
