package tools

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/giantswarm/mcp-redmine/internal/server"
)

// CheckMutatingOperation verifies that a Redmine call with the given HTTP
// method is allowed by the server configuration. Returns an error result if
// blocked, nil if allowed.
//
// In read-only mode only GET and HEAD pass. Uploads count as POST.
func CheckMutatingOperation(sc *server.ServerContext, method string) *mcp.CallToolResult {
	config := sc.Config()
	if config == nil || !config.ReadOnly {
		return nil
	}

	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" || m == http.MethodGet || m == http.MethodHead {
		return nil
	}

	return mcp.NewToolResultError(fmt.Sprintf(
		"%s requests are not allowed in read-only mode",
		cases.Title(language.English).String(strings.ToLower(m)),
	))
}
