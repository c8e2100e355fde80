// Package mcp registers the PDN tools on an MCP server.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmmcquay/pdn-mcp/internal/cache"
	"github.com/dmmcquay/pdn-mcp/internal/library"
	"github.com/dmmcquay/pdn-mcp/internal/logging"
	"github.com/dmmcquay/pdn-mcp/internal/metrics"
	"github.com/dmmcquay/pdn-mcp/internal/pdn"
	"github.com/dmmcquay/pdn-mcp/internal/similarity"
	"github.com/dmmcquay/pdn-mcp/internal/stats"
)

// ArgumentError reports a missing or mistyped tool argument.
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %q %s", e.Name, e.Reason)
}

func isParseError(err error) bool {
	var pe *pdn.ParseError
	return errors.As(err, &pe)
}

// ToolsHandler implements the MCP tools.
type ToolsHandler struct {
	parser     *cache.Manager
	comparator *similarity.Comparator
	library    *library.Library
	logger     logging.ContextLogger
	metrics    *metrics.Collector
	prometheus *metrics.PrometheusCollector
	middleware *Middleware
}

// NewToolsHandler creates a tools handler. lib may be nil, in which case the
// collection tools are not registered.
func NewToolsHandler(parser *cache.Manager, comparator *similarity.Comparator, lib *library.Library,
	collector *metrics.Collector, logger logging.ContextLogger) *ToolsHandler {
	return &ToolsHandler{
		parser:     parser,
		comparator: comparator,
		library:    lib,
		logger:     logger,
		metrics:    collector,
		prometheus: metrics.NewPrometheusCollector(),
	}
}

// SetMiddleware sets the middleware for the tools handler.
func (h *ToolsHandler) SetMiddleware(middleware *Middleware) {
	h.middleware = middleware
}

func (h *ToolsHandler) add(s *server.MCPServer, tool mcp.Tool, handler ToolHandler) {
	if h.middleware != nil {
		handler = h.middleware.WrapTool(tool.Name, handler)
	}
	s.AddTool(tool, server.ToolHandlerFunc(handler))
}

// RegisterTools registers all tools with the MCP server.
func (h *ToolsHandler) RegisterTools(s *server.MCPServer) {
	document := mcp.WithString("document",
		mcp.Description("PDN document text holding one or more games"),
		mcp.Required(),
	)

	h.add(s, mcp.NewTool("parseDocument",
		mcp.WithDescription("Parse a PDN document into games with tags, moves and a 50-square position fingerprint"),
		document,
	), h.HandleParseDocument)

	h.add(s, mcp.NewTool("compareDocument",
		mcp.WithDescription("Compute the Hamming distance between the fingerprints of every pair of games in a PDN document"),
		document,
		mcp.WithNumber("maxDistance",
			mcp.Description("Only report pairs whose distance is below this value (default: report every pair)"),
		),
	), h.HandleCompareDocument)

	h.add(s, mcp.NewTool("exportDocument",
		mcp.WithDescription("Parse a PDN document and serialize it back in canonical form"),
		document,
	), h.HandleExportDocument)

	h.add(s, mcp.NewTool("documentStats",
		mcp.WithDescription("Count the games of a PDN document by year, event and author"),
		document,
	), h.HandleDocumentStats)

	if h.library == nil {
		return
	}

	h.add(s, mcp.NewTool("uploadCollection",
		mcp.WithDescription("Store a PDN document as a named collection, with all pairwise distances"),
		mcp.WithString("name", mcp.Description("Collection name (stored lower-case, must be unused)"), mcp.Required()),
		mcp.WithString("filename", mcp.Description("Original file name; must end in .pdn"), mcp.Required()),
		document,
	), h.HandleUploadCollection)

	h.add(s, mcp.NewTool("listCollections",
		mcp.WithDescription("List stored collections"),
	), h.HandleListCollections)

	h.add(s, mcp.NewTool("getCollection",
		mcp.WithDescription("Show a collection's games, year histogram and distance matrix"),
		mcp.WithString("name", mcp.Description("Collection name"), mcp.Required()),
	), h.HandleGetCollection)

	h.add(s, mcp.NewTool("getGame",
		mcp.WithDescription("Show a stored game"),
		mcp.WithNumber("id", mcp.Description("Game ID"), mcp.Required()),
	), h.HandleGetGame)

	h.add(s, mcp.NewTool("getDistance",
		mcp.WithDescription("Show a stored distance with both games"),
		mcp.WithNumber("id", mcp.Description("Distance ID"), mcp.Required()),
	), h.HandleGetDistance)
}

// load parses document through the cache and records parse metrics.
func (h *ToolsHandler) load(ctx context.Context, document string) ([]*pdn.Game, error) {
	start := time.Now()
	games, hit, err := h.parser.Load(document)
	if err != nil {
		kind := pdn.KindOf(err)
		h.metrics.RecordParseError(kind)
		h.prometheus.RecordParseError(kind)
		return nil, err
	}
	if !hit {
		h.metrics.RecordParse(len(games))
		h.prometheus.RecordParse(len(games), time.Since(start).Seconds())
	}
	h.logger.WithContext(ctx).Debug("Loaded document", "games", len(games), "cached", hit)
	return games, nil
}

// ParseResult is returned by parseDocument.
type ParseResult struct {
	Count int         `json:"count"`
	Games []*pdn.Game `json:"games"`
}

func (h *ToolsHandler) HandleParseDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	doc, err := stringArg(args, "document")
	if err != nil {
		return nil, err
	}

	games, err := h.load(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return jsonResult(ParseResult{Count: len(games), Games: games})
}

// CompareResult is returned by compareDocument.
type CompareResult struct {
	Games     int                   `json:"games"`
	Pairs     int                   `json:"pairs"`
	Distances []similarity.Distance `json:"distances"`
}

func (h *ToolsHandler) HandleCompareDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	doc, err := stringArg(args, "document")
	if err != nil {
		return nil, err
	}
	limit, hasLimit, err := optionalIntArg(args, "maxDistance")
	if err != nil {
		return nil, err
	}

	games, err := h.load(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	start := time.Now()
	distances, err := h.comparator.CompareGames(games)
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}
	h.metrics.RecordComparison(len(distances))
	h.prometheus.RecordComparison(len(distances), time.Since(start).Seconds())

	result := CompareResult{Games: len(games), Pairs: len(distances), Distances: distances}
	if hasLimit {
		result.Distances = similarity.Within(distances, limit)
	}
	return jsonResult(result)
}

func (h *ToolsHandler) HandleExportDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	doc, err := stringArg(args, "document")
	if err != nil {
		return nil, err
	}

	games, err := h.load(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return mcp.NewToolResultText(pdn.Dumps(games)), nil
}

func (h *ToolsHandler) HandleDocumentStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	doc, err := stringArg(args, "document")
	if err != nil {
		return nil, err
	}

	games, err := h.load(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return jsonResult(stats.Summarize(games))
}

func (h *ToolsHandler) HandleUploadCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := stringArg(args, "name")
	if err != nil {
		return nil, err
	}
	filename, err := stringArg(args, "filename")
	if err != nil {
		return nil, err
	}
	doc, err := stringArg(args, "document")
	if err != nil {
		return nil, err
	}

	res, err := h.library.Upload(ctx, name, filename, doc)
	h.prometheus.RecordUpload(err == nil)
	if err != nil {
		if isParseError(err) {
			h.metrics.RecordParseError(pdn.KindOf(err))
			h.prometheus.RecordParseError(pdn.KindOf(err))
		}
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	h.metrics.RecordComparison(res.Distances)
	return jsonResult(res)
}

func (h *ToolsHandler) HandleListCollections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collections, err := h.library.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return jsonResult(collections)
}

func (h *ToolsHandler) HandleGetCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := stringArg(args, "name")
	if err != nil {
		return nil, err
	}

	view, err := h.library.Collection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", name, err)
	}
	return jsonResult(view)
}

func (h *ToolsHandler) HandleGetGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	id, err := idArg(args)
	if err != nil {
		return nil, err
	}

	game, err := h.library.Game(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", id, err)
	}
	return jsonResult(struct {
		Label string `json:"label"`
		Game  any    `json:"game"`
	}{library.GameLabel(game), game})
}

func (h *ToolsHandler) HandleGetDistance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	id, err := idArg(args)
	if err != nil {
		return nil, err
	}

	d, err := h.library.Distance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("distance %d: %w", id, err)
	}
	return jsonResult(d)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
