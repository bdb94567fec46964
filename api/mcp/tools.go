package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/dispatch"
)

var (
	analyzeToolName    = "analyze_driver"
	analyzeDescription = "Analyze a Formula 1 driver's race and qualifying performance from a natural-language question, e.g. \"How did Colapinto do at Imola 2025?\". Returns a summary and the generated charts."

	resolveToolName    = "resolve_artifact"
	resolveDescription = "Get one chart for a driver at a Grand Prix. Kinds: race_positions_changes, race_laps_times, race_laptimes_distribution, qualy_results. Cached charts are returned without regenerating."
)

// AnalyzeInput represents the input arguments for the analyze_driver tool.
type AnalyzeInput struct {
	Question  string `json:"question" jsonschema:"the question about a driver, a circuit and a season"`
	SessionID string `json:"session_id,omitempty" jsonschema:"caller session used for throttling (default: mcp)"`
}

// Chart is one chart in a tool result.
type Chart struct {
	Kind        artifact.Kind `json:"kind"`
	Path        string        `json:"path"`
	Description string        `json:"description"`
}

// AnalyzeOutput represents the output of the analyze_driver tool.
type AnalyzeOutput struct {
	Driver  string  `json:"driver"`
	Season  int     `json:"season"`
	GP      string  `json:"gp"`
	Summary string  `json:"summary"`
	Charts  []Chart `json:"charts"`
}

// ResolveInput represents the input arguments for the resolve_artifact tool.
type ResolveInput struct {
	Season int    `json:"season" jsonschema:"the championship year, e.g. 2025"`
	GP     string `json:"gp" jsonschema:"the circuit or Grand Prix name, e.g. Imola"`
	Driver string `json:"driver" jsonschema:"the driver's surname, first name or three-letter code"`
	Kind   string `json:"kind" jsonschema:"the chart kind"`
}

// ResolveOutput represents the output of the resolve_artifact tool.
type ResolveOutput struct {
	Chart
	State string `json:"state"`
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
	session := input.SessionID
	if session == "" {
		session = "mcp"
	}

	s.config.Logger.Debug("MCP analyze request", "question", input.Question, "session", session)

	reply, err := s.config.Dispatcher.Handle(ctx, dispatch.Query{SessionID: session, Text: input.Question})
	if err != nil {
		return toolError(err), AnalyzeOutput{}, nil
	}

	output := AnalyzeOutput{
		Driver:  reply.Driver.Code,
		Season:  reply.Params.Year,
		GP:      reply.Params.Track,
		Summary: reply.Summary,
		Charts:  make([]Chart, 0, len(reply.Artifacts)),
	}
	for _, a := range reply.Artifacts {
		output.Charts = append(output.Charts, Chart(a))
	}

	return textResult(s, output), output, nil
}

func (s *Server) handleResolve(ctx context.Context, _ *mcp.CallToolRequest, input ResolveInput) (*mcp.CallToolResult, ResolveOutput, error) {
	s.config.Logger.Debug("MCP resolve request",
		"season", input.Season,
		"gp", input.GP,
		"driver", input.Driver,
		"kind", input.Kind,
	)

	res, err := s.config.Dispatcher.Resolve(ctx, dispatch.ArtifactQuery(input))
	if err != nil {
		return toolError(err), ResolveOutput{}, nil
	}

	output := ResolveOutput{
		Chart: Chart{Kind: res.Kind, Path: res.Path, Description: res.Description},
		State: res.State.String(),
	}
	return textResult(s, output), output, nil
}

// textResult serializes output into a TextContent block as well, for
// clients that ignore structured content.
func textResult(s *Server, output any) *mcp.CallToolResult {
	data, err := json.Marshal(output)
	if err != nil {
		s.config.Logger.Error("failed to marshal tool output", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: dispatch.Message(err)},
		},
	}
}
