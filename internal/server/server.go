// Package server exposes downloads over HTTP: start a job, follow its progress
// as server-sent events, then collect the file.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snapetech/skyclip/internal/assemble"
	"github.com/snapetech/skyclip/internal/bsky"
	"github.com/snapetech/skyclip/internal/materializer"
	"github.com/snapetech/skyclip/internal/pipeline"
)

// Options configures a Server. Pipeline is required.
type Options struct {
	Pipeline *pipeline.Pipeline
	// Store, when set, also writes each finished video (local dir or GCS).
	Store materializer.Interface
	// Hosts are the accepted post URL hosts; nil = bsky.DefaultPostHosts.
	Hosts []string
	// Health reports upstream reachability for /healthz; nil = always ok.
	Health func(ctx context.Context) error
	// Gatherer backs /metrics; nil = prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	JobTTL   time.Duration
}

// Server wraps the gin router with the job registry.
type Server struct {
	router   *gin.Engine
	pipeline *pipeline.Pipeline
	store    materializer.Interface
	hosts    []string
	health   func(ctx context.Context) error
	gatherer prometheus.Gatherer
	jobs     *Registry
	now      func() time.Time

	// jobs outlive the request that started them
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New builds the server and its routes.
func New(opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		pipeline: opts.Pipeline,
		store:    opts.Store,
		hosts:    opts.Hosts,
		health:   opts.Health,
		gatherer: opts.Gatherer,
		jobs:     NewRegistry(opts.JobTTL),
		now:      time.Now,
		baseCtx:  ctx,
		cancel:   cancel,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	router := gin.New()
	router.Use(gin.Recovery(), logRequests())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.POST("/v1/downloads", s.handleCreate)
		api.GET("/v1/downloads/:id", s.handleGet)
		api.DELETE("/v1/downloads/:id", s.handleCancel)
		api.GET("/v1/downloads/:id/events", s.handleEvents)
		api.GET("/v1/downloads/:id/file", s.handleFile)
	}

	s.router = router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Jobs returns the job registry.
func (s *Server) Jobs() *Registry { return s.jobs }

// Run serves on addr until ctx is done, then shuts down and cancels running jobs.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = ":8080"
	}
	defer s.cancel()
	go s.jobs.RunJanitor(ctx, time.Minute)

	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("server: listening on %s", addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Print("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown: %v", err)
		}
		<-serverErr
		return nil
	}
}

// Close cancels every running job.
func (s *Server) Close() { s.cancel() }

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"time":    s.now().Unix(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "jobs": s.jobs.Len()})
}

type createRequest struct {
	URL    string `json:"url" binding:"required"`
	Format string `json:"format"`
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	format, err := assemble.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := bsky.ParsePostURL(req.URL, s.hosts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := newJob(req.URL, format, s.now())
	job.task = s.pipeline.Start(s.baseCtx, pipeline.Request{PostURL: req.URL, Format: format})
	s.jobs.Add(job)
	go job.watch(s.store, s.now)
	log.Printf("server: job=%s started url=%q format=%s", job.ID, req.URL, format)

	c.Header("Location", "/api/v1/downloads/"+job.ID)
	c.JSON(http.StatusAccepted, gin.H{"id": job.ID})
}

func (s *Server) lookup(c *gin.Context) (*Job, bool) {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
	}
	return job, ok
}

func (s *Server) handleGet(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job.Snapshot())
}

func (s *Server) handleCancel(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}
	if _, done := job.Finished(); done {
		c.JSON(http.StatusConflict, gin.H{"error": "download already finished"})
		return
	}
	job.Cancel()
	c.JSON(http.StatusAccepted, gin.H{"id": job.ID, "status": "cancelling"})
}

// handleEvents replays the job's events and streams new ones until it ends.
func (s *Server) handleEvents(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	next := 0
	for {
		events, changed, done := job.since(next)
		for _, e := range events {
			c.SSEvent(string(e.Kind), e.Payload)
		}
		next += len(events)
		c.Writer.Flush()
		if done {
			return
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return
		}
	}
}

// handleFile serves the finished video once and then forgets the job.
func (s *Server) handleFile(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}
	if _, done := job.Finished(); !done {
		c.JSON(http.StatusConflict, gin.H{"error": "download still running", "status": job.Snapshot().Status})
		return
	}
	res := job.Result()
	if res == nil {
		c.JSON(http.StatusGone, gin.H{"error": job.Snapshot().Error})
		return
	}
	v := res.Video
	c.DataFromReader(http.StatusOK, v.Size(), v.ContentType(), v.Reader(), map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", res.Filename),
	})
	s.jobs.Remove(job.ID)
	log.Printf("server: job=%s collected file=%q bytes=%d", job.ID, res.Filename, v.Size())
}

// logRequests logs one line per request in the same shape as the rest of the logs.
func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf(
			"http: %s %s status=%d bytes=%d dur=%s ua=%q remote=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.Writer.Size(),
			time.Since(start).Round(time.Millisecond), c.Request.UserAgent(), c.ClientIP(),
		)
	}
}
