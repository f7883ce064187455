// Package output renders API payloads for the terminal. Formats follow the
// payload's shape: question lists, search results, and contributor lists
// each get a table; everything else falls back to JSON.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

func DefaultFormat() string {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return "table"
	}
	return "json"
}

func Print(payload map[string]any, format string, quiet bool) error {
	if quiet {
		format = "quiet"
	}
	format = strings.TrimSpace(strings.ToLower(format))
	if format == "" {
		format = DefaultFormat()
	}

	switch format {
	case "json":
		return printJSON(payload)
	case "table":
		return printTable(payload)
	case "plain":
		return printPlain(payload)
	case "quiet":
		return printQuiet(payload)
	default:
		return errors.New("invalid --format value")
	}
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printTable(payload map[string]any) error {
	switch {
	case hasKey(payload, "questions"):
		fmt.Println("ID\tOWNER\tTITLE\tANSWERS\tACCEPTED\tLAST_ACTIVITY")
		for _, row := range toObjectSlice(payload["questions"]) {
			fmt.Printf("%s\t%s\t%s\t%d\t%s\t%s\n",
				str(row["id"]), ownerName(row), str(row["title"]),
				len(toObjectSlice(row["answers"])), acceptedMark(row), str(row["lastActivityAt"]))
		}
	case hasKey(payload, "results"):
		fmt.Println("ID\tOWNER\tTITLE\tACCEPTED\tLAST_ACTIVITY")
		for _, row := range toObjectSlice(payload["results"]) {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
				str(row["id"]), ownerName(row), str(row["title"]),
				acceptedMark(row), str(row["lastActivityAt"]))
		}
	case hasKey(payload, "contributors"):
		fmt.Println("USER\tDISPLAY_NAME\tROLE\tCREATED")
		for _, row := range toObjectSlice(payload["contributors"]) {
			fmt.Printf("%s\t%s\t%s\t%s\n",
				str(row["userName"]), str(row["displayName"]), str(row["role"]), str(row["created"]))
		}
	default:
		return printJSON(payload)
	}
	return nil
}

func printPlain(payload map[string]any) error {
	switch {
	case hasKey(payload, "questions"):
		for _, row := range toObjectSlice(payload["questions"]) {
			fmt.Printf("%s %s %s\n", str(row["id"]), ownerName(row), str(row["title"]))
		}
	case hasKey(payload, "results"):
		for _, row := range toObjectSlice(payload["results"]) {
			fmt.Printf("%s %s %s\n", str(row["id"]), ownerName(row), str(row["title"]))
		}
	case hasKey(payload, "contributors"):
		for _, row := range toObjectSlice(payload["contributors"]) {
			fmt.Printf("%s %s\n", str(row["userName"]), str(row["role"]))
		}
	case hasKey(payload, "userName") && hasKey(payload, "role"):
		fmt.Printf("%s %s\n", str(payload["userName"]), str(payload["role"]))
	default:
		return printJSON(payload)
	}
	return nil
}

func printQuiet(payload map[string]any) error {
	switch {
	case hasKey(payload, "questions"):
		for _, row := range toObjectSlice(payload["questions"]) {
			fmt.Println(str(row["id"]))
		}
	case hasKey(payload, "results"):
		for _, row := range toObjectSlice(payload["results"]) {
			fmt.Println(str(row["id"]))
		}
	case hasKey(payload, "contributors"):
		for _, row := range toObjectSlice(payload["contributors"]) {
			fmt.Println(str(row["userName"]))
		}
	default:
		if id, ok := payload["id"]; ok {
			fmt.Println(str(id))
			return nil
		}
		return printJSON(payload)
	}
	return nil
}

func ownerName(row map[string]any) string {
	owner, ok := row["owner"].(map[string]any)
	if !ok {
		return ""
	}
	return str(owner["userName"])
}

func acceptedMark(row map[string]any) string {
	if str(row["acceptedAnswerId"]) != "" {
		return "yes"
	}
	return "no"
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func toObjectSlice(v any) []map[string]any {
	in, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(in))
	for _, item := range in {
		if row, ok := item.(map[string]any); ok {
			out = append(out, row)
		}
	}
	return out
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
