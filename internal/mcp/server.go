package mcp

import (
	"context"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"storypaint/internal/config"
	"storypaint/internal/engine"
	"storypaint/internal/importer"
	"storypaint/internal/observe"
)

// Server exposes the importers, exporters and one live document over MCP.
// Tool calls that touch the document are serialized.
type Server struct {
	cfg      *config.ProjectConfig
	pipeline *importer.Pipeline
	metrics  *observe.Metrics

	mu     sync.Mutex
	engine *engine.Engine

	mcp *sdk.Server
}

func NewServer(cfg *config.ProjectConfig, pipeline *importer.Pipeline, metrics *observe.Metrics, version string) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if pipeline == nil {
		var err error
		pipeline, err = cfg.Pipeline(importer.WithMetrics(metrics))
		if err != nil {
			return nil, err
		}
	}
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		metrics:  metrics,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "storypaint",
			Version: version,
		}, nil),
	}
	eng, err := s.newEngine()
	if err != nil {
		return nil, err
	}
	s.engine = eng
	s.registerTools()
	return s, nil
}

func (s *Server) newEngine() (*engine.Engine, error) {
	loc, err := s.cfg.Location()
	if err != nil {
		return nil, err
	}
	return engine.New(
		engine.WithPipeline(s.pipeline),
		engine.WithLocation(loc),
		engine.WithDiceTag(s.cfg.Export.DiceTag),
		engine.WithMetrics(s.metrics),
	), nil
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
