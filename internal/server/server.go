// Package server exposes the control-plane stores over MCP. One Server
// bundles the capture seams, the reconciler, the element cache, and the
// observation, session, operation, and macro stores behind the tool
// surface; transports are stdio and streamable HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/deskpilot/deskpilot/internal/config"
	"github.com/deskpilot/deskpilot/internal/detect"
	"github.com/deskpilot/deskpilot/internal/elements"
	"github.com/deskpilot/deskpilot/internal/logging"
	"github.com/deskpilot/deskpilot/internal/macros"
	"github.com/deskpilot/deskpilot/internal/model"
	"github.com/deskpilot/deskpilot/internal/observe"
	"github.com/deskpilot/deskpilot/internal/operations"
	"github.com/deskpilot/deskpilot/internal/platform"
	"github.com/deskpilot/deskpilot/internal/reconcile"
	"github.com/deskpilot/deskpilot/internal/sessions"
	"github.com/deskpilot/deskpilot/internal/version"
)

const serverName = "deskpilot"

// Options configures a Server. Zero collaborators select production
// defaults; tests inject fakes.
type Options struct {
	Config   config.Config
	Provider *platform.Provider
	Clock    platform.Clock
	IDs      platform.IDGenerator
	Logger   *slog.Logger
	Blobs    platform.BlobStore
}

// captureSource routes every OS capture call through one mutex. The
// accessibility APIs are not safe for concurrent use, so tool handlers and
// observation pollers must share a single serialization point rather than
// each guarding only its own calls.
type captureSource struct {
	mu         sync.Mutex
	reconciler *reconcile.Reconciler
	elements   platform.ElementReader
}

// Snapshot returns the canonical merged window list for pid (<= 0 for all
// applications).
func (c *captureSource) Snapshot(pid int) ([]model.WindowSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconciler.Snapshot(pid)
}

// Window returns the canonical merged record for one window.
func (c *captureSource) Window(pid, windowID int) (model.WindowSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconciler.Window(pid, windowID)
}

// ReadElements captures element snapshots for one process.
func (c *captureSource) ReadElements(opts platform.ElementReadOptions) ([]model.ElementSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elements.ReadElements(opts)
}

// Server wires the stores to the MCP tool surface.
type Server struct {
	cfg    config.Config
	clock  platform.Clock
	ids    platform.IDGenerator
	logger *slog.Logger

	source       *captureSource
	cache        *elements.Cache
	observations *observe.Manager
	sessions     *sessions.Manager
	operations   *operations.Store
	macros       *macros.Registry
	selfAct      *detect.SelfActivation

	mcp *mcpserver.MCPServer

	// taskCtx parents every background task: observation pollers started
	// through stream_observation, the sweep loop, and macro-execution
	// operations. Shutdown cancels it.
	taskCtx  context.Context
	taskStop context.CancelFunc
	stopOnce sync.Once
}

// New builds a Server from opts and registers the tool surface. It loads
// the macro store, merging disk state over any in-memory seed; a corrupted
// store fails construction rather than silently starting empty.
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	clock := opts.Clock
	if clock == nil {
		clock = platform.SystemClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = platform.UUIDGenerator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	blobs := opts.Blobs
	if blobs == nil {
		blobs = platform.FileBlobStore{}
	}
	macroPath := cfg.MacroStorePath
	if macroPath == "" {
		macroPath = "macros.json"
	}

	src := &captureSource{}
	if opts.Provider != nil {
		if opts.Provider.Windows != nil {
			src.reconciler = reconcile.New(opts.Provider.Windows, opts.Provider.Attributes)
		}
		src.elements = opts.Provider.Elements
	}
	var obsSource observe.Source
	if src.reconciler != nil {
		obsSource.Windows = src
	}
	if src.elements != nil {
		obsSource.Elements = src
	}

	taskCtx, taskStop := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		clock:      clock,
		ids:        ids,
		logger:     logger,
		source:     src,
		cache:      elements.NewCache(clock, ids, cfg.ElementTTL()),
		sessions:   sessions.NewManager(clock, ids),
		operations: operations.NewStore(clock),
		macros:     macros.NewRegistry(clock, ids, blobs, macroPath),
		selfAct:    detect.NewSelfActivation(clock, cfg.SuppressionWindow()),
		taskCtx:    taskCtx,
		taskStop:   taskStop,
	}
	s.observations = observe.NewManager(observe.Options{
		Clock:           clock,
		IDs:             ids,
		Logger:          logger,
		Source:          obsSource,
		Breaker:         detect.NewBreaker(clock, cfg.BreakerThreshold, cfg.BreakerWindow()),
		SelfActivation:  s.selfAct,
		Epsilon:         cfg.DiffEpsilon,
		DefaultInterval: cfg.PollInterval(),
		MinInterval:     cfg.PollFloor(),
	})

	if err := s.macros.Load(false); err != nil {
		taskStop()
		return nil, fmt.Errorf("load macro store: %w", err)
	}

	s.mcp = mcpserver.NewMCPServer(serverName, version.Version)
	s.registerTools()
	return s, nil
}

// Serve starts the background sweep and blocks on the configured transport.
// It shuts the server down when the transport returns.
func (s *Server) Serve(transport string, port int) error {
	go s.sweepLoop()
	defer s.Shutdown()

	switch transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", transport)
	}
}

// Shutdown stops background tasks and drains every store: running
// observations cancel, sessions invalidate, pending operations count as
// cancelled, and the macro store is flushed. Safe to call more than once;
// only the first call does the work.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		s.taskStop()
		cancelled := s.observations.CancelAll()
		invalidated := s.sessions.InvalidateAll()
		pending, total := s.operations.DrainAll()
		if err := s.macros.Save(); err != nil {
			s.logger.Error("persist macros on shutdown", "error", err)
		}
		s.logger.Info("server shut down",
			"observations_cancelled", cancelled,
			"sessions_invalidated", invalidated,
			"operations_pending", pending,
			"operations_total", total)
	})
}

// sweepLoop reclaims expired element handles on a timer. Expiry is already
// visible synchronously on every cache read; the sweep only bounds memory
// for handles nobody asks about again.
func (s *Server) sweepLoop() {
	interval := s.cfg.SweepInterval()
	if interval <= 0 {
		interval = elements.DefaultTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.taskCtx.Done():
			return
		case <-ticker.C:
			if n := s.cache.Sweep(); n > 0 {
				s.logger.Debug("swept expired element handles", "count", n)
			}
		}
	}
}
