// Package mcp exposes the mirror over the Model Context Protocol: catalog
// queries, materialization, and cache status as tools on a stdio server.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"coremirror/internal/catalog"
	"coremirror/internal/format"
	"coremirror/internal/logging"
	"coremirror/internal/mirror"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP SDK server around a mirror manager and a catalog
// snapshot.
type Server struct {
	MCPServer *sdkmcp.Server

	manager *mirror.Manager
	table   *catalog.Table
}

// NewServer creates an MCP server with the mirror tools registered.
func NewServer(m *mirror.Manager, table *catalog.Table) *Server {
	s := &Server{manager: m, table: table}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "coremirror", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	logging.New("mcp").Info("starting coremirror MCP server over stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "query_catalog",
		Description: "Filter the simulation metadata catalog by attribute equality; returns matching keys, their total run count, and the equations of state present.",
	}, s.handleQueryCatalog)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "materialize",
		Description: "Fetch simulations and extract their best strain artifact (lowest-eccentricity run, highest extraction radius). Already-cached keys are skipped unless overwrite is set.",
	}, s.handleMaterialize)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "cache_status",
		Description: "List the artifacts already materialized in the local mirror.",
	}, s.handleCacheStatus)
}

// --- Tool input/output types ---

type queryCatalogInput struct {
	Filters []string `json:"filters,omitempty" jsonschema:"attribute equality filters as name=value pairs, e.g. id_eos=SLy"`
}

type queryCatalogOutput struct {
	Keys     []string `json:"keys"`
	RunCount int      `json:"run_count"`
	EOS      []string `json:"eos"`
}

type materializeInput struct {
	Keys      []string `json:"keys" jsonschema:"simulation database keys, e.g. BAM:0001"`
	Overwrite bool     `json:"overwrite,omitempty" jsonschema:"re-materialize even when already cached"`
	KeepRaw   bool     `json:"keep_raw,omitempty" jsonschema:"keep the raw data after extraction"`
}

type keyOutcome struct {
	Key          string `json:"key"`
	Status       string `json:"status"` // ok, skipped, failed
	Run          string `json:"run,omitempty"`
	File         string `json:"file,omitempty"`
	Radius       string `json:"radius,omitempty"`
	Eccentricity string `json:"eccentricity,omitempty"`
	Error        string `json:"error,omitempty"`
}

type materializeOutput struct {
	Results []keyOutcome `json:"results"`
}

type cacheStatusInput struct{}

type cacheStatusOutput struct {
	Artifacts []keyOutcome `json:"artifacts"`
}

// --- Tool handlers ---

func (s *Server) handleQueryCatalog(_ context.Context, _ *sdkmcp.CallToolRequest, input queryCatalogInput) (*sdkmcp.CallToolResult, queryCatalogOutput, error) {
	filters, err := parseFilters(input.Filters)
	if err != nil {
		return nil, queryCatalogOutput{}, err
	}
	t := s.table.FilterMultiple(filters)
	return nil, queryCatalogOutput{
		Keys:     t.Keys(),
		RunCount: t.CountRuns(),
		EOS:      t.EOS(),
	}, nil
}

func (s *Server) handleMaterialize(ctx context.Context, _ *sdkmcp.CallToolRequest, input materializeInput) (*sdkmcp.CallToolResult, materializeOutput, error) {
	if len(input.Keys) == 0 {
		return nil, materializeOutput{}, fmt.Errorf("materialize: no keys given")
	}

	results := s.manager.MaterializeMany(ctx, input.Keys, mirror.Options{
		Overwrite: input.Overwrite,
		KeepRaw:   input.KeepRaw,
	})

	out := materializeOutput{Results: make([]keyOutcome, len(results))}
	for i, res := range results {
		out.Results[i] = outcome(res)
	}
	return nil, out, nil
}

func (s *Server) handleCacheStatus(_ context.Context, _ *sdkmcp.CallToolRequest, _ cacheStatusInput) (*sdkmcp.CallToolResult, cacheStatusOutput, error) {
	ix := s.manager.Index()
	var artifacts []keyOutcome
	for _, sim := range ix.Sims() {
		runs, _ := ix.Lookup(sim)
		for run, rec := range runs {
			artifacts = append(artifacts, keyOutcome{
				Key:          sim,
				Status:       "ok",
				Run:          run,
				File:         rec.File,
				Radius:       format.Radius(rec.Radius),
				Eccentricity: format.Eccentricity(rec.Eccentricity),
			})
		}
	}
	return nil, cacheStatusOutput{Artifacts: artifacts}, nil
}

func outcome(res mirror.Result) keyOutcome {
	o := keyOutcome{Key: res.Key, Run: res.Run}
	switch {
	case res.Err != nil:
		o.Status = "failed"
		o.Error = res.Err.Error()
	case res.Skipped:
		o.Status = "skipped"
	default:
		o.Status = "ok"
	}
	if res.Err == nil {
		o.File = res.Record.File
		o.Radius = format.Radius(res.Record.Radius)
		o.Eccentricity = format.Eccentricity(res.Record.Eccentricity)
	}
	return o
}

// parseFilters splits "name=value" filter strings.
func parseFilters(raw []string) ([][2]string, error) {
	filters := make([][2]string, 0, len(raw))
	for _, f := range raw {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("filter %q is not name=value", f)
		}
		filters = append(filters, [2]string{name, value})
	}
	return filters, nil
}
