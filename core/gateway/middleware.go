// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package gateway

import (
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/relabs-tech/tablegate/core/logger"
)

func (g *Gateway) handleCORS() {

	corsMiddleware := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-Id")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			// preflight
			if r.Method == http.MethodOptions {
				logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method, " (handled by CORS middleware)")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			h.ServeHTTP(w, r)
		})
	}
	g.router.Use(corsMiddleware)
}

func (g *Gateway) handleCompression() {

	compressionMiddleware := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlers.CompressHandler(h).ServeHTTP(w, r)
		})
	}
	g.router.Use(compressionMiddleware)
}

// handleRecovery turns a panic in a handler into a 500 for that request only
func (g *Gateway) handleRecovery() {
	g.router.Use(handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger.Default()),
		handlers.PrintRecoveryStack(true),
	))
}
