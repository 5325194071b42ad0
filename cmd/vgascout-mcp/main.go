// Command vgascout-mcp exposes a running vgascout HTTP service to MCP
// clients over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type productRecord struct {
	Model      string `json:"model"`
	Price      string `json:"price"`
	MemorySize string `json:"memory_size"`
	MemoryType string `json:"memory_type"`
}

// runResponse mirrors the vgascout API run response.
type runResponse struct {
	Success bool `json:"success"`
	Run     *struct {
		ID     string `json:"id"`
		Output string `json:"output"`
		Result *struct {
			Timestamp  string          `json:"timestamp"`
			TotalCount int             `json:"total_count"`
			Records    []productRecord `json:"records"`
		} `json:"result"`
		Pages []struct {
			Page    int    `json:"page"`
			Status  string `json:"status"`
			Records int    `json:"records"`
			Error   string `json:"error"`
		} `json:"pages"`
	} `json:"run"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("VGASCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("VGASCOUT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "VGASCOUT_API_KEY is required")
		os.Exit(1)
	}

	if err := server.ServeStdio(newServer(apiURL, apiKey)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"vgascout",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	runTool := mcp.NewTool("run_scrape",
		mcp.WithDescription("Scrape the kabum.com.br NVIDIA graphics-card listing and return the extracted cards (model, price, memory size, memory type). Takes tens of seconds per page."),
		mcp.WithNumber("max_pages",
			mcp.Description("Listing pages to visit (default: server setting, max: 50)"),
		),
	)
	s.AddTool(runTool, handleRunScrape(apiURL, apiKey))

	getTool := mcp.NewTool("get_run",
		mcp.WithDescription("Fetch a previous scrape run by id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Run id returned by run_scrape"),
		),
	)
	s.AddTool(getTool, handleGetRun(apiURL, apiKey))

	listTool := mcp.NewTool("list_runs",
		mcp.WithDescription("List recent scrape runs, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum runs to return (default: 20, max: 100)"),
		),
	)
	s.AddTool(listTool, handleListRuns(apiURL, apiKey))

	return s
}

// apiPost sends a POST request to the vgascout API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return apiDo(client, req, apiKey)
}

func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return apiDo(client, req, apiKey)
}

func apiDo(client *http.Client, req *http.Request, apiKey string) ([]byte, error) {
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleRunScrape(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 15 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload := map[string]any{}
		if maxPages, ok := request.GetArguments()["max_pages"]; ok {
			payload["max_pages"] = maxPages
		}

		body, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scrape", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape request failed: %v", err)), nil
		}
		return formatRun(body), nil
	}
}

func handleGetRun(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		body, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/runs/"+id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run request failed: %v", err)), nil
		}
		return formatRun(body), nil
	}
}

// runListResponse mirrors the vgascout API run listing.
type runListResponse struct {
	Success bool `json:"success"`
	Runs    []struct {
		ID         string `json:"id"`
		StartedAt  string `json:"started_at"`
		TotalCount int    `json:"total_count"`
	} `json:"runs"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func handleListRuns(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := "/api/v1/runs"
		if limit, ok := request.GetArguments()["limit"].(float64); ok && limit > 0 {
			path += fmt.Sprintf("?limit=%d", int(limit))
		}

		body, err := apiGet(ctx, client, apiURL, apiKey, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list request failed: %v", err)), nil
		}

		var resp runListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			errMsg := "list failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}
		if len(resp.Runs) == 0 {
			return mcp.NewToolResultText("No runs yet."), nil
		}

		var sb strings.Builder
		for _, r := range resp.Runs {
			sb.WriteString(fmt.Sprintf("%s  %s  %d cards\n", r.ID, r.StartedAt, r.TotalCount))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// formatRun renders a run response as a plain-text table for the model.
func formatRun(body []byte) *mcp.CallToolResult {
	var resp runResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err))
	}

	if !resp.Success || resp.Run == nil {
		errMsg := "run failed"
		if resp.Error != nil {
			errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
		}
		return mcp.NewToolResultError(errMsg)
	}

	run := resp.Run
	var sb strings.Builder
	total := 0
	if run.Result != nil {
		total = run.Result.TotalCount
	}
	sb.WriteString(fmt.Sprintf("Run %s: %d graphics cards", run.ID, total))
	if run.Output != "" {
		sb.WriteString(fmt.Sprintf(" (saved to %s)", run.Output))
	}
	sb.WriteString("\n")

	for _, p := range run.Pages {
		line := fmt.Sprintf("page %d: %s", p.Page, p.Status)
		if p.Error != "" {
			line += " (" + p.Error + ")"
		}
		sb.WriteString(line + "\n")
	}

	if run.Result != nil && len(run.Result.Records) > 0 {
		sb.WriteString("\nmodel | price | memory\n")
		for _, r := range run.Result.Records {
			sb.WriteString(fmt.Sprintf("%s | %s | %s %s\n", r.Model, r.Price, r.MemorySize, r.MemoryType))
		}
	}

	return mcp.NewToolResultText(sb.String())
}
