package webstat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/pprof"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/redlinedb/redline/pkg/common"
)

type HttpMethod string

const (
	GET    HttpMethod = "GET"
	POST   HttpMethod = "POST"
	DELETE HttpMethod = "DELETE"
)

type ApiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

var (
	logger = common.InitLogger().WithName("webstat")
)

type WebHandler interface {
	Path() string
	Method() HttpMethod
	Handler(ctx *gin.Context)
}

// StatServer exposes the client's runtime diagnostics over HTTP: health,
// pool state, pprof and the metrics sink.
type StatServer struct {
	port     int
	r        *gin.Engine
	server   *http.Server
	handlers []WebHandler
}

func NewStatServer(cfg *common.StatServerConfig, handlers ...WebHandler) *StatServer {
	srv := initStatServer(cfg)
	srv.registerHandler(&HealthCheckHandler{})
	for _, handler := range handlers {
		srv.registerHandler(handler)
	}
	return srv
}

func initStatServer(cfg *common.StatServerConfig) *StatServer {
	r := gin.New()
	zapLogger := common.RawZapLogger()
	r.Use(ginzap.RecoveryWithZap(zapLogger, true))
	r.Use(ginzap.GinzapWithConfig(zapLogger, &ginzap.Config{
		UTC:        true,
		TimeFormat: time.RFC3339,
		Skipper: func(c *gin.Context) bool {
			if strings.HasPrefix(c.Request.URL.Path, "/debug") {
				return true
			}
			return c.Request.URL.Path == "/healthz" && c.Request.Method == "GET"
		},
	}))
	if cfg.EnablePprof {
		pprof.Register(r)
	}
	if common.IsProdRuntime() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &StatServer{
		port:     cfg.Port,
		r:        r,
		handlers: make([]WebHandler, 0),
	}
}

// RegisterRaw mounts a bare gin handler, used for the metrics endpoint.
func (s *StatServer) RegisterRaw(path string, fn gin.HandlerFunc) {
	s.r.GET(path, fn)
}

func (s *StatServer) Start() error {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.r,
	}
	s.server = httpServer
	logger.Info("StatServer starting", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error(err, "Failed to start stat server")
		return err
	}
	return nil
}

func (s *StatServer) Shutdown(ctx context.Context) {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			logger.Error(err, "Failed to shutdown stat server")
		} else {
			logger.Info("StatServer stopped.")
		}
	}
}

func (s *StatServer) registerHandler(handler WebHandler) {
	_, ok := lo.Find(s.handlers, func(item WebHandler) bool {
		return item.Path() == handler.Path() && item.Method() == handler.Method()
	})
	if ok {
		logger.Info("handler already registered", "Path", handler.Path(),
			"Method", handler.Method())
		return
	}
	logger.Info("StatServer register handler", "Path", handler.Path(),
		"Method", handler.Method())
	switch handler.Method() {
	case GET:
		s.r.GET(handler.Path(), handler.Handler)
	case POST:
		s.r.POST(handler.Path(), handler.Handler)
	case DELETE:
		s.r.DELETE(handler.Path(), handler.Handler)
	}
	s.handlers = append(s.handlers, handler)
}

var _ WebHandler = &HealthCheckHandler{}

type HealthCheckHandler struct {
}

func (h *HealthCheckHandler) Path() string {
	return "/healthz"
}

func (h *HealthCheckHandler) Method() HttpMethod {
	return GET
}

func (h *HealthCheckHandler) Handler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
