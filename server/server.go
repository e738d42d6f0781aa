package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/metrics"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Minute
	shutdownTimeout     = 10 * time.Second
	traceIDHeader       = "X-Trace-Id"
)

type handlerFunc func(r *http.Request, ps httprouter.Params) (interface{}, error)

// Handler returns the HTTP API with CORS applied
func Handler(cfg Config, s *swapService) http.Handler {
	router := httprouter.New()
	s.routes(router)
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{traceIDHeader},
	}).Handler(router)
}

// RunServer serves the HTTP API until ctx is done
func RunServer(ctx context.Context, cfg Config, s *swapService) error {
	if len(cfg.HTTPPort) == 0 {
		return fmt.Errorf("invalid TCP port for HTTP server: '%s'", cfg.HTTPPort)
	}
	readTimeout, writeTimeout := cfg.ReadTimeout.Duration, cfg.WriteTimeout.Duration
	if readTimeout == 0 {
		readTimeout = defaultReadTimeout
	}
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}
	listen, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, cfg.HTTPPort))
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      Handler(cfg, s),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("failed to shutdown HTTP server: %v", err)
		}
	}()

	log.Info("HTTP Server is serving at ", listen.Addr().String())
	if err := srv.Serve(listen); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// instrument attaches a trace id, logs the request and records its metrics
func (s *swapService) instrument(method string, h handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()
		traceID := r.Header.Get(traceIDHeader)
		if traceID == "" {
			traceID = utils.GenerateTraceID()
		}
		r = r.WithContext(context.WithValue(r.Context(), utils.CtxTraceID, traceID))
		w.Header().Set(traceIDHeader, traceID)

		data, err := h(r, ps)

		duration := time.Since(startTime)
		metrics.RecordRequest(method, err == nil)
		metrics.RecordRequestLatency(method, duration, err == nil)
		logger := log.WithFields(utils.TraceID, traceID)
		if err != nil {
			status := statusOf(err)
			if status >= http.StatusInternalServerError {
				logger.Errorf("method[%v] path[%v] err[%v] processTime[%v]", method, r.URL.Path, err, duration.String())
			} else {
				logger.Infof("method[%v] path[%v] err[%v] processTime[%v]", method, r.URL.Path, err, duration.String())
			}
			writeJSON(w, status, Response{Code: defaultErrorCode, Msg: err.Error(), Kind: string(gerror.KindOf(err))})
			return
		}
		logger.Infof("method[%v] path[%v] processTime[%v]", method, r.URL.Path, duration.String())
		writeJSON(w, http.StatusOK, Response{Code: defaultSuccessCode, Data: data})
	}
}
