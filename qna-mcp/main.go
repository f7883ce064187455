package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"qna/internal/cli/client"
)

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id,omitempty"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func main() {
	baseURL := strings.TrimSpace(os.Getenv("QNA_URL"))
	apiKey := strings.TrimSpace(os.Getenv("QNA_API_KEY"))
	if baseURL == "" {
		fmt.Fprintln(os.Stderr, "QNA_URL is required")
		os.Exit(1)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		fmt.Fprintln(os.Stderr, "invalid QNA_URL:", err)
		os.Exit(1)
	}

	cl := client.New(baseURL, apiKey)
	in := bufio.NewScanner(os.Stdin)
	out := json.NewEncoder(os.Stdout)

	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		var req rpcRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			_ = out.Encode(rpcResponse{
				JSONRPC: "2.0",
				Error: &rpcError{
					Code:    -32700,
					Message: "parse error",
				},
			})
			continue
		}
		resp := handle(cl, req)
		if err := out.Encode(resp); err != nil {
			fmt.Fprintln(os.Stderr, "encode response:", err)
			os.Exit(1)
		}
	}
	if err := in.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "read stdin:", err)
		os.Exit(1)
	}
}

func handle(cl *client.Client, req rpcRequest) rpcResponse {
	resp := rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"serverInfo": map[string]any{
				"name":    "qna-mcp",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
		}
		return resp
	case "tools/list":
		resp.Result = map[string]any{
			"tools": []map[string]any{
				{
					"name":        "qna_search",
					"description": "Full-text search over questions and answers",
					"inputSchema": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"query": map[string]any{"type": "string"},
						},
					},
				},
				{
					"name":        "qna_read_question",
					"description": "Read a question with its answers and comments",
					"inputSchema": map[string]any{
						"type": "object",
						"required": []string{
							"question_id",
						},
						"properties": map[string]any{
							"question_id": map[string]any{"type": "string"},
						},
					},
				},
				{
					"name":        "qna_ask",
					"description": "Ask a new question",
					"inputSchema": map[string]any{
						"type": "object",
						"required": []string{
							"title",
							"body",
						},
						"properties": map[string]any{
							"title": map[string]any{"type": "string"},
							"body":  map[string]any{"type": "string"},
							"tags": map[string]any{
								"type":  "array",
								"items": map[string]any{"type": "string"},
							},
						},
					},
				},
				{
					"name":        "qna_answer",
					"description": "Answer an existing question",
					"inputSchema": map[string]any{
						"type": "object",
						"required": []string{
							"question_id",
							"text",
						},
						"properties": map[string]any{
							"question_id": map[string]any{"type": "string"},
							"text":        map[string]any{"type": "string"},
						},
					},
				},
			},
		}
		return resp
	case "tools/call":
		result, err := handleToolCall(cl, req.Params)
		if err != nil {
			resp.Error = &rpcError{Code: -32000, Message: err.Error()}
			return resp
		}
		resp.Result = map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": result},
			},
		}
		return resp
	default:
		resp.Error = &rpcError{Code: -32601, Message: "method not found"}
		return resp
	}
}

func handleToolCall(cl *client.Client, params map[string]any) (string, error) {
	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	switch name {
	case "qna_search":
		query, _ := args["query"].(string)
		var resp map[string]any
		if err := cl.Post("/v1/search", map[string]any{"query": query}, &resp); err != nil {
			return "", err
		}
		return toJSONString(resp)
	case "qna_read_question":
		questionID, _ := args["question_id"].(string)
		if strings.TrimSpace(questionID) == "" {
			return "", errors.New("question_id is required")
		}
		var resp map[string]any
		if err := cl.Get("/v1/questions/"+url.PathEscape(questionRef(questionID)), &resp); err != nil {
			return "", err
		}
		return toJSONString(resp)
	case "qna_ask":
		title, _ := args["title"].(string)
		body, _ := args["body"].(string)
		if strings.TrimSpace(title) == "" || strings.TrimSpace(body) == "" {
			return "", errors.New("title and body are required")
		}
		req := map[string]any{
			"title": title,
			"body":  body,
		}
		if rawTags, ok := args["tags"].([]any); ok {
			tags := make([]string, 0, len(rawTags))
			for _, t := range rawTags {
				if s, ok := t.(string); ok && strings.TrimSpace(s) != "" {
					tags = append(tags, strings.TrimSpace(s))
				}
			}
			if len(tags) > 0 {
				req["tags"] = tags
			}
		}
		var resp map[string]any
		if err := cl.Post("/v1/questions", req, &resp); err != nil {
			return "", err
		}
		return toJSONString(resp)
	case "qna_answer":
		questionID, _ := args["question_id"].(string)
		text, _ := args["text"].(string)
		if strings.TrimSpace(questionID) == "" || strings.TrimSpace(text) == "" {
			return "", errors.New("question_id and text are required")
		}
		var resp map[string]any
		if err := cl.Post("/v1/questions/"+url.PathEscape(questionRef(questionID))+"/answers", map[string]any{"text": text}, &resp); err != nil {
			return "", err
		}
		return toJSONString(resp)
	default:
		return "", errors.New("unknown tool")
	}
}

func questionRef(raw string) string {
	ref := strings.TrimSuffix(strings.TrimSpace(raw), ".json")
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		ref = ref[idx+1:]
	}
	return ref
}

func toJSONString(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
