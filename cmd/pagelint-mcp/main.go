package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// auditRequest mirrors the pagelint API request model.
type auditRequest struct {
	URL          string `json:"url"`
	FetchMode    string `json:"fetch_mode,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
}

// auditResponse mirrors the pagelint API response model.
type auditResponse struct {
	Success    bool   `json:"success"`
	Score      int    `json:"score"`
	Grade      string `json:"grade"`
	Report     string `json:"report"`
	Categories []struct {
		Category string `json:"category"`
		Score    int    `json:"score"`
		Grade    string `json:"grade"`
	} `json:"categories"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// batchRequest mirrors the pagelint batch API request model.
type batchRequest struct {
	URLs      []string `json:"urls"`
	FetchMode string   `json:"fetch_mode,omitempty"`
}

// batchResponse mirrors the pagelint batch API response.
type batchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

func main() {
	apiURL := os.Getenv("PAGELINT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PAGELINT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PAGELINT_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"pagelint",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	auditTool := mcp.NewTool("audit_url",
		mcp.WithDescription("Run an SEO audit on a web page. Scores metadata, content structure, and performance hints, and returns the findings as a Markdown report."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to audit"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("Fetch strategy: 'auto' (default, direct then proxies then browser), 'direct', 'proxy', or 'browser'"),
			mcp.Enum("auto", "direct", "proxy", "browser"),
		),
	)
	s.AddTool(auditTool, handleAuditURL(apiURL, apiKey))

	batchTool := mcp.NewTool("batch_audit",
		mcp.WithDescription("Audit multiple URLs in one batch and return the scores for each, with near-duplicate content flagged across the batch."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of URLs to audit"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("Fetch strategy applied to every URL"),
			mcp.Enum("auto", "direct", "proxy", "browser"),
		),
	)
	s.AddTool(batchTool, handleBatchAudit(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleAuditURL(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := auditRequest{
			URL:          url,
			FetchMode:    request.GetString("fetch_mode", ""),
			OutputFormat: "markdown",
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/audit", reqBody)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp auditResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !resp.Success {
			errMsg := "audit failed"
			if resp.Error != nil {
				errMsg = fmt.Sprintf("audit failed: %s (%s)", resp.Error.Message, resp.Error.Code)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		if resp.Report != "" {
			return mcp.NewToolResultText(resp.Report), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Overall score %d (grade %s)", resp.Score, resp.Grade)), nil
	}
}

func handleBatchAudit(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := requireStringSlice(request, "urls")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		reqBody := batchRequest{
			URLs:      urls,
			FetchMode: request.GetString("fetch_mode", ""),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/batch/audit", reqBody)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var accepted batchResponse
		if err := json.Unmarshal(respBody, &accepted); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if accepted.ID == "" {
			return mcp.NewToolResultError("batch submission rejected: " + string(respBody)), nil
		}

		finalBody, err := pollJobCompletion(ctx, client, apiURL, apiKey, "/api/v1/batch/"+accepted.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch polling failed: %v", err)), nil
		}

		return mcp.NewToolResultText(string(finalBody)), nil
	}
}

// requireStringSlice extracts a required []string argument.
func requireStringSlice(request mcp.CallToolRequest, key string) ([]string, error) {
	raw := request.GetArguments()[key]
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%s is required and must be a non-empty array", key)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("%s must contain only strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// apiPost sends a POST request to the pagelint API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			req.Header.Set("X-API-Key", apiKey)

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}

			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}
