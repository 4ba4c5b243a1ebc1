package query

import (
	"fmt"
	"strings"

	"github.com/zerosync-co/opencode-provider/pkg/host"
)

// BuildPrompt prefixes the prompt with a listing of shared image URLs, in
// input order. Without images the prompt is returned unchanged.
func BuildPrompt(prompt string, images []string) string {
	if len(images) == 0 {
		return prompt
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[User has shared %d image(s)]\n", len(images))
	for i, u := range images {
		fmt.Fprintf(&sb, "[Image %d]: %s\n", i+1, u)
	}
	sb.WriteString("\n")
	sb.WriteString(prompt)
	return sb.String()
}

// ToolID namespaces a tool exposed by an external tool server.
func ToolID(server, tool string) string {
	return "mcp__" + server + "__" + tool
}

// EnabledTools lists A2A server tools first, servers and their tools in
// input order, then the allowed tools in input order. Duplicates are kept.
func EnabledTools(servers host.A2AServers, allowed []string) []string {
	var tools []string
	for _, srv := range servers {
		for _, t := range srv.Tools {
			tools = append(tools, ToolID(srv.ID(), t.Name))
		}
	}
	return append(tools, allowed...)
}
