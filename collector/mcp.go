package collector

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/segmentio/encoding/json"

	"github.com/hazyhaar/skilllog/kit"
	"github.com/hazyhaar/skilllog/logstore"
)

// MCPServer returns an MCP server with the collector tools registered. It
// reports the report format version it accepts.
func (c *Collector) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "skilllog-collector", Version: logstore.FormatVersion}, nil)
	c.RegisterMCP(srv)
	return srv
}

// RegisterMCP registers collector tools on an MCP server.
func (c *Collector) RegisterMCP(srv *mcp.Server) {
	c.registerListTool(srv)
	c.registerGetTool(srv)
	c.registerOutlineTool(srv)
}

// instrument wraps a tool endpoint with call logging.
func (c *Collector) instrument(name string, ep kit.Endpoint) kit.Endpoint {
	logged := func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			log := c.cfg.Logger.With("tool", name, "transport", kit.GetTransport(ctx), "duration", time.Since(start))
			if err != nil {
				log.Warn("collector: tool failed", "error", err)
			} else {
				log.Debug("collector: tool call")
			}
			return resp, err
		}
	}
	return kit.Chain(logged)(ep)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type reportReq struct {
	ID string `json:"id"`
}

func decodeReportReq(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r reportReq
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

var idSchema = inputSchema(map[string]any{
	"id": map[string]any{"type": "string", "description": "Report ID as returned by skilllog_list_reports"},
}, []string{"id"})

// --- list ---

func (c *Collector) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "skilllog_list_reports",
		Description: "List uploaded skill diagnostic reports, newest first, with record and error counts.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		list, err := c.List(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"reports": list}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, c.instrument(tool.Name, endpoint), decode)
}

// --- get ---

func (c *Collector) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "skilllog_get_report",
		Description: "Return a skill diagnostic report: skill and browser info, console records with traces, redacted DOM snapshot.",
		InputSchema: idSchema,
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return c.Get(ctx, req.(*reportReq).ID)
	}

	kit.RegisterMCPTool(srv, tool, c.instrument(tool.Name, endpoint), decodeReportReq)
}

// --- outline ---

func (c *Collector) registerOutlineTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "skilllog_report_outline",
		Description: "Return the redacted DOM snapshot of a report as markdown, to see where the page was when the error happened.",
		InputSchema: idSchema,
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		out, err := c.Outline(ctx, req.(*reportReq).ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"outline": out}, nil
	}

	kit.RegisterMCPTool(srv, tool, c.instrument(tool.Name, endpoint), decodeReportReq)
}
