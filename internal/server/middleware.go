package server

import (
	"net/http"
	"net/url"

	"github.com/go-chi/cors"
	"nhooyr.io/websocket"
)

func corsHandler(origin string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	})
}

// acceptOptions applies the same origin policy to websocket upgrades.
func acceptOptions(origin string) *websocket.AcceptOptions {
	if origin == "*" {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return &websocket.AcceptOptions{}
	}
	return &websocket.AcceptOptions{OriginPatterns: []string{u.Host}}
}
