// Package mockapi serves a development stand-in for the call backend: the
// dashboard REST endpoints and the live call event stream, backed by a
// sqlite call store.
package mockapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fono-labs/fono-dash/internal/db"
	"github.com/fono-labs/fono-dash/internal/models"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	// DefaultHeartbeat is the comment frame interval on idle streams.
	DefaultHeartbeat = 15 * time.Second
)

// Server handles the backend routes.
type Server struct {
	Store     *db.DB
	Hub       *Hub
	Now       func() time.Time
	Heartbeat time.Duration
}

// New creates a server over store with a fresh hub.
func New(store *db.DB) *Server {
	return &Server{Store: store, Hub: NewHub(), Now: time.Now, Heartbeat: DefaultHeartbeat}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	r.GET("/healthz", s.Healthz)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/dashboard/:tenant/summary", s.Summary)
		v1.GET("/dashboard/:tenant/calls", s.Calls)
		v1.POST("/calls/bridge", s.Bridge)
		v1.GET("/events/calls", s.Events)
	}

	// Simulation hooks for driving the dashboard by hand
	dev := v1.Group("/dev")
	{
		dev.POST("/calls", s.CreateCall)
		dev.POST("/calls/:id/status", s.UpdateStatus)
		dev.POST("/calls/:id/recording", s.AttachRecording)
	}

	return r
}

// Healthz reports that the store is reachable.
func (s *Server) Healthz(c *gin.Context) {
	if err := s.Store.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Summary returns the aggregate counters for an optional date range.
func (s *Server) Summary(c *gin.Context) {
	start, err := optionalTime(c.Query("start_date"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, err := optionalTime(c.Query("end_date"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}

	summary, err := s.Store.Summary(c.Request.Context(), c.Param("tenant"), start, end)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	switch {
	case start != nil && end != nil:
		summary.Period = start.Format(time.DateOnly) + "/" + end.Format(time.DateOnly)
	default:
		summary.Period = "all"
	}
	c.JSON(http.StatusOK, summary)
}

// Calls returns one page of the call log, newest first.
func (s *Server) Calls(c *gin.Context) {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", defaultPerPage)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	q := db.CallQuery{
		TenantID: c.Param("tenant"),
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	}
	if status := c.Query("status"); status != "" && status != "all" {
		q.Status = string(models.ParseCallStatus(status))
	}

	calls, total, err := s.Store.ListCalls(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"calls":    calls,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

type bridgeRequest struct {
	TenantID    string `json:"tenant_id" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required,min=3"`
}

// Bridge records a call-back request and starts an outbound call.
func (s *Server) Bridge(c *gin.Context) {
	var req bridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := s.Now()
	ctx := c.Request.Context()
	callID := uuid.NewString()
	if err := s.Store.InsertBridge(ctx, uuid.NewString(), req.TenantID, req.PhoneNumber, now); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "bridge failed"})
		return
	}

	call := &models.CallRecord{
		ID:           callID,
		TenantID:     req.TenantID,
		CallerNumber: req.PhoneNumber,
		Status:       models.StatusInProgress,
	}
	if err := s.Store.InsertCall(ctx, call, now); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "bridge failed"})
		return
	}
	s.Hub.PublishStatus(call, now)

	fromGin(c).Info("call-back bridged", "tenant", req.TenantID, "call_id", callID)
	c.JSON(http.StatusOK, gin.H{"call_id": callID})
}

// Events streams call events for the tenant named by tenant_id.
func (s *Server) Events(c *gin.Context) {
	tenant := c.Query("tenant_id")
	if tenant == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}

	frames, unsubscribe := s.Hub.Subscribe(tenant)
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	log := fromGin(c)
	log.Info("event stream opened", "tenant", tenant)
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case f, ok := <-frames:
			if !ok {
				return false
			}
			c.SSEvent(f.Event, f.Data)
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		}
	})
	log.Info("event stream closed", "tenant", tenant)
}

type createCallRequest struct {
	TenantID     string `json:"tenant_id" binding:"required"`
	CallerNumber string `json:"caller_number"`
	Status       string `json:"status"`
	Duration     *int   `json:"duration" binding:"omitempty,min=0"`
}

// CreateCall inserts a call and announces it on the stream.
func (s *Server) CreateCall(c *gin.Context) {
	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := models.StatusInProgress
	if req.Status != "" {
		status = models.ParseCallStatus(req.Status)
	}
	if !status.Known() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	now := s.Now()
	call := &models.CallRecord{
		ID:           uuid.NewString(),
		TenantID:     req.TenantID,
		CallerNumber: req.CallerNumber,
		Status:       status,
		Duration:     req.Duration,
	}
	if err := s.Store.InsertCall(c.Request.Context(), call, now); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "insert failed"})
		return
	}
	s.Hub.PublishStatus(call, now)
	c.JSON(http.StatusCreated, call)
}

type statusRequest struct {
	Status   string `json:"status" binding:"required"`
	Duration int    `json:"duration" binding:"min=0"`
}

// UpdateStatus moves a call to a new status and announces it.
func (s *Server) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := models.ParseCallStatus(req.Status)
	if !status.Known() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	ctx := c.Request.Context()
	now := s.Now()
	id := c.Param("id")
	if err := s.Store.UpdateCallStatus(ctx, id, status, req.Duration, now); err != nil {
		s.storeError(c, err)
		return
	}
	call, err := s.Store.GetCall(ctx, id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	s.Hub.PublishStatus(call, now)
	c.JSON(http.StatusOK, call)
}

type recordingRequest struct {
	RecordingURL string `json:"recording_url" binding:"required,url"`
}

// AttachRecording stores a recording URL and announces it.
func (s *Server) AttachRecording(c *gin.Context) {
	var req recordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	now := s.Now()
	id := c.Param("id")
	if err := s.Store.SetRecording(ctx, id, req.RecordingURL, now); err != nil {
		s.storeError(c, err)
		return
	}
	call, err := s.Store.GetCall(ctx, id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	s.Hub.PublishRecording(call.TenantID, call.ID, req.RecordingURL, now)
	c.JSON(http.StatusOK, call)
}

func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, db.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store failed"})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func optionalTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
