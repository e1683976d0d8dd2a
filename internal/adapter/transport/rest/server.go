package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Server struct {
	log       *slog.Logger
	addr      string
	shutdownT time.Duration
	issuer    Issuer
	verifier  Verifier
	inbox     Inbox
	engine    *gin.Engine
}

func NewServer(log *slog.Logger, addr string, shutdown time.Duration, issuer Issuer, verifier Verifier, inbox Inbox) *Server {
	s := &Server{
		log:       log,
		addr:      addr,
		shutdownT: shutdown,
		issuer:    issuer,
		verifier:  verifier,
		inbox:     inbox,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), AccessLog(s.log), Recovery(s.log))

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	{
		api.GET("/challenge", s.issue)
		api.POST("/challenge/verify", s.verify)
		api.POST("/contact", RequireSolution(s.verifier, s.log), s.contact)
	}
	return r
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("server started", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown: draining requests")

		sctx, cancel := context.WithTimeout(context.Background(), s.shutdownT)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.log.Warn("shutdown: force-close remaining connections", "err", err)
			_ = srv.Close()
		} else {
			s.log.Info("shutdown: all requests drained")
		}
		<-errCh
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}
