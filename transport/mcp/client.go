package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/apocalypse/game/engine"
	"github.com/wricardo/mcp-training/apocalypse/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Zombie Apocalypse Simulation",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Zombie Apocalypse Simulation - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Humans (H) run from zombies (Z) on a grid with obstacles (#). Every tick
both populations move one step along a distance field. Humans move in 8
directions, zombies in 4.

AVAILABLE TOOLS:
- create_session: Start a simulation from a scenario
- list_sessions / get_session: Inspect sessions
- simulation_state: Current grid and populations
- tick: Advance one tick
- run_ticks: Advance many ticks, stopping when nobody moves
- reset_simulation / clear_simulation: Restore or empty the grid
- add_entity: Place a human, zombie or obstacle
- distance_field: Distance from every cell to the nearest human or zombie
- tick_history: Past ticks
- list_scenarios: Available scenarios
- simulation_rules: Full movement rules`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new simulation session with optional scenario selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scenario": map[string]interface{}{
					"type":        "string",
					"description": "Scenario ID to use (optional, see list_scenarios)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active simulation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(sessionTool("get_session", "Get details of a specific session"), c.handleGetSession)

	// Simulation operations
	c.mcpServer.AddTool(sessionTool("simulation_state", "Get the current grid, populations and tick"), c.handleSimulationState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Advance the simulation by one tick",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before ticking",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_ticks",
		Description: "Run several ticks; stops early once nobody moves",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"ticks": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"maximum":     engine.MaxBulkTicks,
					"description": "Number of ticks to run",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before running",
				},
			},
			Required: []string{"session_id", "ticks"},
		},
	}, c.handleRunTicks)

	c.mcpServer.AddTool(sessionTool("reset_simulation", "Restore the scenario's initial populations"), c.handleReset)
	c.mcpServer.AddTool(sessionTool("clear_simulation", "Remove every obstacle, human and zombie"), c.handleClear)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_entity",
		Description: "Place a human, zombie or obstacle. Obstacles can only be placed before the first tick.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"human", "zombie", "obstacle"},
					"description": "What to place",
				},
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row, 0 is the top",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column, 0 is the left",
				},
			},
			Required: []string{"session_id", "type", "row", "col"},
		},
	}, c.handleAddEntity)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "distance_field",
		Description: "Get the BFS distance from every cell to the nearest member of a population",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"entity": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"human", "zombie"},
					"description": "Population seeding the field (default zombie)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleDistanceField)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick_history",
		Description: "View past ticks with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Ticks per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTickHistory)

	// Scenarios
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_scenarios",
		Description: "List available scenarios",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListScenarios)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_rules",
		Description: "Get the complete movement rules and grid legend",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSimulationRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Argument helpers

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// intArg accepts JSON numbers as well as their string form
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]string{}
	if scenario := stringArg(args, "scenario"); scenario != "" {
		body["scenario"] = scenario
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nScenario: %s\n\n%s",
		session.ID, session.ScenarioID, formatSimulationState(session.SimulationState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionList(response.Count, response.Sessions)), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleSimulationState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.SimulationState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSimulationState(&state)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	body := map[string]interface{}{
		"reset": boolArg(args, "reset"),
	}

	var result service.TickResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/tick"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTickResult(&result)), nil
}

func (c *Client) handleRunTicks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	ticks, ok := intArg(args, "ticks")
	if !ok {
		return mcp.NewToolResultError("ticks is required"), nil
	}

	body := map[string]interface{}{
		"ticks": ticks,
		"reset": boolArg(args, "reset"),
	}

	var result service.RunResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/run"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateChange(ctx, request, "/reset")
}

func (c *Client) handleClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateChange(ctx, request, "/clear")
}

// stateChange posts to an endpoint answering {message, state}
func (c *Client) stateChange(ctx context.Context, request mcp.CallToolRequest, suffix string) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Message string                  `json:"message"`
		State   *engine.SimulationState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, suffix), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatSimulationState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleAddEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	kind := stringArg(args, "type")

	row, rowOK := intArg(args, "row")
	col, colOK := intArg(args, "col")
	if !rowOK || !colOK {
		return mcp.NewToolResultError("row and col are required"), nil
	}

	body := map[string]interface{}{
		"type": kind,
		"row":  row,
		"col":  col,
	}

	var state engine.SimulationState
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/entities"), body, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Added %s at (%d,%d)\n\n%s", kind, row, col, formatSimulationState(&state))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDistanceField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	path := sessionPath(sessionID, "/distance-field")
	if entity := stringArg(args, "entity"); entity != "" {
		path += "?entity=" + url.QueryEscape(entity)
	}

	var field engine.DistanceField
	if err := c.apiCall(ctx, "GET", path, nil, &field); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDistanceField(&field)), nil
}

func (c *Client) handleTickHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", strconv.Itoa(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", strconv.Itoa(limit))
	}
	if order := stringArg(args, "order"); order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var scenarios []service.ScenarioInfo
	if err := c.apiCall(ctx, "GET", "/api/scenarios", nil, &scenarios); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatScenarios(scenarios)), nil
}

func (c *Client) handleSimulationRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(simulationRules), nil
}
