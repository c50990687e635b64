package mcpadapter

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

const toolClassifyDocument = "classify_document"

// NewServer exposes document classification as an MCP tool.
func NewServer(classifier ports.DocumentClassifier, version string) *server.MCPServer {
	s := server.NewMCPServer("estate-intake", version, server.WithToolCapabilities(false))
	s.AddTool(classifyDocumentTool(), classifyDocumentHandler(classifier))
	return s
}

func classifyDocumentTool() mcp.Tool {
	return mcp.NewTool(toolClassifyDocument,
		mcp.WithDescription("Classify real-estate document text as Settlement Documents, Income Verifications or Purchase Agreements. Returns INVALID_DOCUMENT when none fits."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Extracted document text."),
		),
		mcp.WithString("filename",
			mcp.Description("Original file name, used only for logging."),
		),
	)
}

func classifyDocumentHandler(classifier ports.DocumentClassifier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		category, err := classifier.ClassifyText(ctx, content)
		if err != nil && !domain.IsKind(err, domain.ErrOracle) {
			return nil, err
		}
		// Oracle failures still yield the policy's fallback category.
		return mcp.NewToolResultText(string(category)), nil
	}
}
