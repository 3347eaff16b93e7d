// Package server exposes the command surface the desktop UI calls.
//
// Every operation returns either its result or a JSON body of the form
// {"error": "<message>"}; callers get a human-readable message string, not a
// structured error. Download progress is streamed separately over SSE.
package server

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pixeleasel/easeld/internal/downloader"
	"github.com/pixeleasel/easeld/internal/httpclient"
	"github.com/pixeleasel/easeld/internal/localfile"
	"github.com/pixeleasel/easeld/internal/machineid"
	"github.com/pixeleasel/easeld/internal/progress"
	"github.com/pixeleasel/easeld/internal/store"
	"github.com/pixeleasel/easeld/internal/task"
)

// Options configures the server.
type Options struct {
	// DownloadDir is where downloads land when a request names no target
	// directory. Empty means the platform default download directory.
	DownloadDir string

	// ChunkSize for the streaming writer. Default: downloader default.
	ChunkSize int

	// Policy is the download retry policy. Default: downloader default.
	Policy downloader.Policy

	// ClientOptions configures the transfer client.
	ClientOptions httpclient.Options

	// Logger for request-level diagnostics. Optional.
	Logger *zap.Logger
}

// Server wires the task store, the download engine, and the progress hub
// behind an HTTP API.
type Server struct {
	store  *store.Store
	hub    *progress.Broadcaster
	client *httpclient.Client
	opts   Options
	log    *zap.Logger
}

// New creates a server over the given store and progress hub.
func New(st *store.Store, hub *progress.Broadcaster, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		store:  st,
		hub:    hub,
		client: httpclient.New(opts.ClientOptions),
		opts:   opts,
		log:    opts.Logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/local-file", s.readLocalFile)
	r.GET("/download-dir", s.getDownloadDir)
	r.POST("/download", s.downloadFile)
	r.GET("/machine-id", s.getMachineID)

	r.GET("/tasks", s.getBatchTasks)
	r.PUT("/tasks", s.saveBatchTask)
	r.DELETE("/tasks/:id", s.deleteBatchTask)
	r.DELETE("/tasks", s.clearBatchTasks)
	r.GET("/tasks/count", s.getTaskCount)
	r.POST("/tasks/cleanup", s.cleanupOldTasks)

	r.GET("/events", s.serveEvents)

	return r
}

func (s *Server) readLocalFile(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uri, err := localfile.ReadAsDataURI(req.Path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dataUri": uri})
}

func (s *Server) getDownloadDir(c *gin.Context) {
	dir, err := s.downloadDir()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": dir})
}

func (s *Server) downloadFile(c *gin.Context) {
	var req struct {
		URL      string `json:"url" binding:"required"`
		Filename string `json:"filename" binding:"required"`
		Dir      string `json:"dir"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dir := req.Dir
	if dir == "" {
		var err error
		if dir, err = s.downloadDir(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	dest := filepath.Join(dir, req.Filename)
	path, err := downloader.Download(c.Request.Context(), req.URL, dest, downloader.Options{
		Policy:    s.opts.Policy,
		ChunkSize: s.opts.ChunkSize,
		Client:    s.client,
		Sink:      s.hub,
		Logger:    s.log,
	})
	if err != nil {
		s.log.Error("download failed", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (s *Server) getMachineID(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"machineId": machineid.Collect().ID()})
}

func (s *Server) getBatchTasks(c *gin.Context) {
	tasks, err := s.store.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) saveBatchTask(c *gin.Context) {
	var t task.BatchTask
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if t.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task id is required"})
		return
	}

	if err := s.store.Upsert(t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteBatchTask(c *gin.Context) {
	if err := s.store.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) clearBatchTasks(c *gin.Context) {
	if err := s.store.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getTaskCount(c *gin.Context) {
	n, err := s.store.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) cleanupOldTasks(c *gin.Context) {
	var req struct {
		MaxToKeep *int `json:"maxToKeep"`
	}
	// An empty body means "use the default".
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	maxToKeep := store.DefaultMaxTasksToKeep
	if req.MaxToKeep != nil {
		maxToKeep = *req.MaxToKeep
	}

	removed, err := s.store.CleanupOld(maxToKeep)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) downloadDir() (string, error) {
	if s.opts.DownloadDir != "" {
		return s.opts.DownloadDir, nil
	}
	return localfile.DownloadDir()
}
