package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/traitorserver/config"
	"github.com/wfunc/traitorserver/gateway"
	"github.com/wfunc/traitorserver/logger"
	"github.com/wfunc/traitorserver/monitor"
	"github.com/wfunc/traitorserver/network"
	"github.com/wfunc/traitorserver/persistence"
	"github.com/wfunc/traitorserver/services"
	"github.com/wfunc/traitorserver/session"
	"github.com/wfunc/traitorserver/timer"
)

type GameServer struct {
	cfg            config.ServerConfig
	rooms          config.RoomsConfig
	engine         *gin.Engine
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	gateway        *gateway.Gateway
	records        *services.RecordService
	monitor        *monitor.Monitor
	janitor        *timer.Scheduler
	connections    sync.WaitGroup
	shutdownOnce   sync.Once
}

func NewGameServer(cfg config.ServerConfig, rooms config.RoomsConfig, gw *gateway.Gateway, records *services.RecordService, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		cfg:            cfg,
		rooms:          rooms,
		sessionManager: session.NewManager(),
		gateway:        gw,
		records:        records,
		monitor:        mon,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
	s.engine = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *GameServer) Handler() http.Handler {
	return s.engine
}

func (s *GameServer) Sessions() *session.Manager {
	return s.sessionManager
}

func (s *GameServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "OPTIONS"},
			AllowHeaders: []string{
				"Content-Type",
				"Upgrade",
				"Connection",
				"Sec-WebSocket-Key",
				"Sec-WebSocket-Version",
				"Sec-WebSocket-Extensions",
				"Sec-WebSocket-Protocol",
			},
		}))
	}

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.monitor.Handler()))
	r.GET("/ws", s.handleWebSocket)

	accounts := r.Group("/api/accounts/:id")
	accounts.GET("/stats", s.handleAccountStats)
	accounts.GET("/games", s.handleRecentGames)

	if s.cfg.DebugEndpoints {
		r.GET("/debug/rooms/:id", s.handleDebugRoom)
	}
	return r
}

// Start runs the janitor and serves HTTP until Shutdown.
func (s *GameServer) Start() error {
	s.startJanitor()

	logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *GameServer) startJanitor() {
	if s.rooms.SweepInterval <= 0 || s.rooms.IdleTTL <= 0 {
		return
	}
	s.janitor = timer.NewScheduler(time.Second)
	s.janitor.Every(s.rooms.SweepInterval, s.sweep)
}

// sweep evicts idle rooms and drops connections that stopped talking.
func (s *GameServer) sweep() {
	now := time.Now()
	if n := s.gateway.Sweep(now, s.rooms.IdleTTL); n > 0 {
		logger.Log.Infof("Evicted %d idle rooms", n)
	}
	for _, sess := range s.sessionManager.Idle(now.Add(-s.rooms.IdleTTL)) {
		logger.Log.Infow("closing idle connection", "session", sess.ID)
		sess.Close()
	}
}

// Shutdown stops accepting connections, closes the open ones and waits for
// their handlers to finish or ctx to expire.
func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.janitor != nil {
			s.janitor.Stop()
		}
		err = s.httpServer.Shutdown(ctx)
		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}

		done := make(chan struct{})
		go func() {
			s.connections.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	})
	return err
}

func (s *GameServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   s.monitor.Uptime().Truncate(time.Second).String(),
		"rooms":    s.gateway.RoomCount(),
		"sessions": s.sessionManager.Count(),
	})
}

func (s *GameServer) handleAccountStats(c *gin.Context) {
	stats, err := s.records.GetAccountStats(c.Request.Context(), c.Param("id"))
	if errors.Is(err, persistence.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no games recorded for this account"})
		return
	}
	if err != nil {
		logger.Log.Errorw("account stats failed", "account", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *GameServer) handleRecentGames(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	games, err := s.records.RecentGames(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		logger.Log.Errorw("recent games failed", "account", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// handleDebugRoom dumps the unredacted snapshot, roles included.
func (s *GameServer) handleDebugRoom(c *gin.Context) {
	snap, ok := s.gateway.RoomSnapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *GameServer) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.connections.Add(1)
	defer s.connections.Done()
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn, s.cfg.WriteTimeout)
	wsConn.SetHeartbeat(s.cfg.Heartbeat)

	sess := session.NewSession(uuid.NewString(), wsConn)
	sess.SetRateLimit(s.cfg.MessagesPerSecond, s.cfg.MessageBurst)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.gateway.Disconnect(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		packet, err := wsConn.ReadPacket()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Log.Debugw("read failed", "session", sess.ID, "error", err)
			}
			return
		}
		s.gateway.Handle(sess, packet)
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return true // 允许所有跨域请求
		}
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Debugw("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}
