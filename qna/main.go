package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"qna/internal/cli/client"
	"qna/internal/cli/config"
	"qna/internal/cli/output"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return usage()
	}
	switch args[0] {
	case "connect":
		return cmdConnect(args[1:])
	case "disconnect":
		return cmdDisconnect()
	case "status":
		return cmdStatus()
	case "whoami":
		return cmdWhoAmI()
	case "ask":
		return cmdAsk(args[1:])
	case "questions":
		return cmdQuestions(args[1:])
	case "get":
		return cmdGet(args[1:])
	case "answer":
		return cmdAnswer(args[1:])
	case "comment":
		return cmdComment(args[1:])
	case "upvote":
		return cmdVote(args[1:], "upvotes")
	case "downvote":
		return cmdVote(args[1:], "downvotes")
	case "accept":
		return cmdAccept(args[1:])
	case "search":
		return cmdSearch(args[1:])
	case "contributors":
		return cmdContributors(args[1:])
	case "admin":
		return cmdAdmin(args[1:])
	default:
		return usage()
	}
}

func cmdConnect(args []string) error {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	apiKey := fs.String("api-key", "", "API key (omit to connect anonymously)")
	positionals, err := parseInterspersedFlags(fs, args)
	if err != nil {
		return err
	}
	if len(positionals) != 1 {
		return errors.New("usage: qna connect <url> [--api-key <key>]")
	}
	rawURL := strings.TrimSpace(positionals[0])
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	cl := client.New(rawURL, *apiKey)
	var status map[string]any
	if err := cl.Get("/v1/status", &status); err != nil {
		return fmt.Errorf("validate server: %w", err)
	}
	var whoami map[string]any
	if err := cl.Get("/v1/whoami", &whoami); err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.SetDefault(rawURL, *apiKey)
	if name, ok := whoami["userName"].(string); ok && name != "" {
		s := cfg.Servers[cfg.DefaultServer]
		s.UserName = name
		cfg.Servers[cfg.DefaultServer] = s
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("connected to %s\n", rawURL)
	return nil
}

func cmdDisconnect() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if _, ok := cfg.Default(); !ok {
		fmt.Println("no active connection")
		return nil
	}
	cfg.ClearDefault()
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Println("disconnected")
	return nil
}

func cmdStatus() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	srv, ok := cfg.Default()
	if !ok {
		return errors.New("not connected. run: qna connect <url> [--api-key <key>]")
	}
	cl := client.New(srv.URL, srv.APIKey)
	var status map[string]any
	if err := cl.Get("/v1/status", &status); err != nil {
		return err
	}
	return printJSON(map[string]any{
		"server":       srv.URL,
		"user":         srv.UserName,
		"connected_at": srv.ConnectedAt,
		"status":       status,
	})
}

func cmdWhoAmI() error {
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := cl.Get("/v1/whoami", &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdAsk(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	title := fs.String("title", "", "Question title")
	fromFile := fs.String("from-file", "", "Read body from file")
	tags := fs.String("tags", "", "Comma-separated tags")
	positionals, err := parseInterspersedFlags(fs, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*title) == "" {
		return errors.New("usage: qna ask --title <text> [body] [--from-file file] [--tags a,b]")
	}
	body, err := resolveBodyInput(positionals, *fromFile)
	if err != nil {
		return err
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	req := map[string]any{
		"title": strings.TrimSpace(*title),
		"body":  body,
	}
	if parsed := parseTags(*tags); len(parsed) > 0 {
		req["tags"] = parsed
	}
	var resp map[string]any
	if err := cl.Post("/v1/questions", req, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdQuestions(args []string) error {
	fs := flag.NewFlagSet("questions", flag.ContinueOnError)
	format := fs.String("format", "", "Output format: json|table|plain|quiet")
	quiet := fs.Bool("quiet", false, "IDs only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := cl.Get("/v1/questions", &resp); err != nil {
		return err
	}
	return output.Print(resp, *format, *quiet)
}

func cmdGet(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: qna get <question-id>")
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := cl.Get("/v1/questions/"+url.PathEscape(questionRef(args[0])), &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdAnswer(args []string) error {
	fs := flag.NewFlagSet("answer", flag.ContinueOnError)
	fromFile := fs.String("from-file", "", "Read answer text from file")
	positionals, err := parseInterspersedFlags(fs, args)
	if err != nil {
		return err
	}
	if len(positionals) < 1 || len(positionals) > 2 {
		return errors.New("usage: qna answer <question-id> [text] [--from-file file]")
	}
	ref := questionRef(positionals[0])
	text, err := resolveBodyInput(positionals[1:], *fromFile)
	if err != nil {
		return err
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := cl.Post("/v1/questions/"+url.PathEscape(ref)+"/answers", map[string]any{"text": text}, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdComment(args []string) error {
	fs := flag.NewFlagSet("comment", flag.ContinueOnError)
	answerID := fs.String("answer", "", "Comment on this answer instead of the question")
	fromFile := fs.String("from-file", "", "Read comment text from file")
	positionals, err := parseInterspersedFlags(fs, args)
	if err != nil {
		return err
	}
	if len(positionals) < 1 || len(positionals) > 2 {
		return errors.New("usage: qna comment <question-id> [text] [--answer <answer-id>] [--from-file file]")
	}
	ref := questionRef(positionals[0])
	text, err := resolveBodyInput(positionals[1:], *fromFile)
	if err != nil {
		return err
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	path := "/v1/questions/" + url.PathEscape(ref) + "/comments"
	if strings.TrimSpace(*answerID) != "" {
		path = "/v1/questions/" + url.PathEscape(ref) + "/answers/" + url.PathEscape(strings.TrimSpace(*answerID)) + "/comments"
	}
	var resp map[string]any
	if err := cl.Post(path, map[string]any{"text": text}, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdVote(args []string, segment string) error {
	fs := flag.NewFlagSet("vote", flag.ContinueOnError)
	answerID := fs.String("answer", "", "Vote on this answer instead of the question")
	positionals, err := parseInterspersedFlags(fs, args)
	if err != nil {
		return err
	}
	if len(positionals) != 1 {
		return fmt.Errorf("usage: qna %s <question-id> [--answer <answer-id>]", strings.TrimSuffix(segment, "s"))
	}
	ref := questionRef(positionals[0])
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	path := "/v1/questions/" + url.PathEscape(ref) + "/" + segment
	if strings.TrimSpace(*answerID) != "" {
		path = "/v1/questions/" + url.PathEscape(ref) + "/answers/" + url.PathEscape(strings.TrimSpace(*answerID)) + "/" + segment
	}
	var resp map[string]any
	if err := cl.Post(path, map[string]any{}, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdAccept(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: qna accept <question-id> <answer-id>")
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	path := "/v1/questions/" + url.PathEscape(questionRef(args[0])) + "/answers/" + url.PathEscape(strings.TrimSpace(args[1])) + "/accept"
	var resp map[string]any
	if err := cl.Post(path, map[string]any{}, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	format := fs.String("format", "", "Output format: json|table|plain|quiet")
	quiet := fs.Bool("quiet", false, "IDs only")
	positionals, err := parseInterspersedFlags(fs, args)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(positionals, " "))
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := cl.Post("/v1/search", map[string]any{"query": query}, &resp); err != nil {
		return err
	}
	return output.Print(resp, *format, *quiet)
}

func cmdContributors(args []string) error {
	if len(args) == 0 {
		return cmdContributorsList(nil)
	}
	switch args[0] {
	case "add":
		return cmdContributorsAdd(args[1:])
	case "list":
		return cmdContributorsList(args[1:])
	case "remove":
		return cmdContributorsRemove(args[1:])
	case "info":
		return cmdContributorsInfo(args[1:])
	default:
		return errors.New("usage: qna contributors <add|list|remove|info>")
	}
}

func cmdContributorsAdd(args []string) error {
	fs := flag.NewFlagSet("contributors add", flag.ContinueOnError)
	displayName := fs.String("display-name", "", "Display name")
	role := fs.String("role", "contributor", "Role: contributor|admin")
	positionals, err := parseInterspersedFlags(fs, args)
	if err != nil {
		return err
	}
	if len(positionals) != 1 {
		return errors.New("usage: qna contributors add <user-name> [--display-name text] [--role contributor|admin]")
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	req := map[string]any{
		"userName": strings.TrimSpace(positionals[0]),
		"role":     strings.ToLower(strings.TrimSpace(*role)),
	}
	if strings.TrimSpace(*displayName) != "" {
		req["displayName"] = strings.TrimSpace(*displayName)
	}
	var resp map[string]any
	if err := cl.Post("/v1/contributors", req, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdContributorsList(args []string) error {
	fs := flag.NewFlagSet("contributors list", flag.ContinueOnError)
	format := fs.String("format", "", "Output format: json|table|plain|quiet")
	quiet := fs.Bool("quiet", false, "Names only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := cl.Get("/v1/contributors", &resp); err != nil {
		return err
	}
	return output.Print(resp, *format, *quiet)
}

func cmdContributorsRemove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: qna contributors remove <user-name>")
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	if err := cl.Delete("/v1/contributors/" + url.PathEscape(args[0])); err != nil {
		return err
	}
	fmt.Printf("removed contributor %s\n", args[0])
	return nil
}

func cmdContributorsInfo(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: qna contributors info <user-name>")
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	var resp map[string]any
	if err := cl.Get("/v1/contributors/"+url.PathEscape(args[0]), &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdAdmin(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: qna admin purge")
	}
	switch args[0] {
	case "purge":
		return cmdAdminPurge(args[1:])
	default:
		return errors.New("usage: qna admin purge")
	}
}

// cmdAdminPurge deletes every question on the server. Contributors are kept.
func cmdAdminPurge(args []string) error {
	fs := flag.NewFlagSet("admin purge", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "Skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("refusing to purge without --yes")
	}
	cl, err := defaultClient()
	if err != nil {
		return err
	}
	if err := cl.Delete("/v1/questions"); err != nil {
		return err
	}
	fmt.Println("all questions deleted")
	return nil
}

// questionRef normalizes a user-supplied question reference to the bare id
// segment so it can be path-escaped. Full /questions/... URIs and .json
// suffixes are accepted.
func questionRef(raw string) string {
	ref := strings.TrimSpace(raw)
	ref = strings.TrimSuffix(ref, ".json")
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		ref = ref[idx+1:]
	}
	return ref
}

func resolveBodyInput(args []string, fromFile string) (string, error) {
	if strings.TrimSpace(fromFile) != "" {
		if len(args) > 0 {
			return "", errors.New("provide either inline content or --from-file, not both")
		}
		b, err := os.ReadFile(fromFile)
		if err != nil {
			return "", err
		}
		body := strings.TrimSpace(string(b))
		if body == "" {
			return "", errors.New("body is empty")
		}
		return body, nil
	}
	if len(args) != 1 {
		return "", errors.New("missing content")
	}
	body := strings.TrimSpace(args[0])
	if body == "" {
		return "", errors.New("body is empty")
	}
	return body, nil
}

func defaultClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	srv, ok := cfg.Default()
	if !ok {
		return nil, errors.New("not connected. run: qna connect <url> [--api-key <key>]")
	}
	return client.New(srv.URL, srv.APIKey), nil
}

func parseTags(raw string) []string {
	out := make([]string, 0)
	seen := map[string]struct{}{}
	for _, p := range strings.Split(raw, ",") {
		item := strings.TrimSpace(p)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseInterspersedFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	positionals := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := strings.TrimSpace(args[i])
		if arg == "" {
			continue
		}
		if arg == "--" {
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positionals = append(positionals, arg)
			continue
		}

		trimmed := strings.TrimLeft(arg, "-")
		if trimmed == "" {
			positionals = append(positionals, arg)
			continue
		}
		name := trimmed
		value := ""
		hasValue := false
		if idx := strings.Index(trimmed, "="); idx >= 0 {
			name = trimmed[:idx]
			value = trimmed[idx+1:]
			hasValue = true
		}

		f := fs.Lookup(name)
		if f == nil {
			return nil, fmt.Errorf("flag provided but not defined: -%s", name)
		}
		isBool := false
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			isBool = true
		}

		if !hasValue {
			if isBool {
				value = "true"
			} else {
				if i+1 >= len(args) {
					return nil, fmt.Errorf("flag needs an argument: -%s", name)
				}
				i++
				value = args[i]
			}
		}

		if err := fs.Set(name, value); err != nil {
			return nil, err
		}
	}
	return positionals, nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func usage() error {
	return errors.New(`usage:
  qna connect <url> [--api-key <key>]
  qna disconnect
  qna status
  qna whoami
  qna ask --title <text> [body] [--from-file file] [--tags a,b]
  qna questions [--format f] [--quiet]
  qna get <question-id>
  qna answer <question-id> [text] [--from-file file]
  qna comment <question-id> [text] [--answer <answer-id>] [--from-file file]
  qna upvote <question-id> [--answer <answer-id>]
  qna downvote <question-id> [--answer <answer-id>]
  qna accept <question-id> <answer-id>
  qna search [query] [--format f] [--quiet]
  qna contributors add <user-name> [--display-name text] [--role contributor|admin]
  qna contributors list [--format f] [--quiet]
  qna contributors info <user-name>
  qna contributors remove <user-name>
  qna admin purge --yes`)
}
