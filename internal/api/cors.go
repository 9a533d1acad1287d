package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// DefaultCORSConfig allows any origin to read the status API.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Accept", "Cache-Control", "Content-Type", "Last-Event-ID", "Origin"},
		MaxAge:       86400,
	}
}

// corsHeaders returns the precomputed header set for config.
func corsHeaders(config CORSConfig) [][2]string {
	return [][2]string{
		{"Access-Control-Allow-Origin", config.AllowOrigin},
		{"Access-Control-Allow-Methods", strings.Join(config.AllowMethods, ", ")},
		{"Access-Control-Allow-Headers", strings.Join(config.AllowHeaders, ", ")},
		{"Access-Control-Max-Age", strconv.Itoa(config.MaxAge)},
	}
}

// NewCORSMiddleware adds CORS headers to every Huma response.
func NewCORSMiddleware(config CORSConfig) func(huma.Context, func(huma.Context)) {
	headers := corsHeaders(config)

	return func(ctx huma.Context, next func(huma.Context)) {
		for _, h := range headers {
			ctx.SetHeader(h[0], h[1])
		}
		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}
		next(ctx)
	}
}

// AddCORSHandler answers preflight requests on mux.
// Huma middleware only runs for registered operations, so OPTIONS needs its own route.
func AddCORSHandler(mux *http.ServeMux, config CORSConfig) {
	headers := corsHeaders(config)

	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, _ *http.Request) {
		for _, h := range headers {
			w.Header().Set(h[0], h[1])
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
