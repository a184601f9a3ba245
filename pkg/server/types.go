package server

import (
	"context"
	"net/http"
	"time"

	"github.com/obiverse/dojo/pkg/dispatch"
	"github.com/obiverse/dojo/pkg/hokage"
	"github.com/obiverse/dojo/pkg/jutsu"
	"github.com/obiverse/dojo/pkg/ninja"
	"github.com/obiverse/dojo/pkg/scroll"
)

// Coordinator is the surface the HTTP server exposes
type Coordinator interface {
	Status() hokage.Status
	Workers() map[string]ninja.Worker
	Capabilities() map[string]jutsu.Info
	Contracts() []string
	Summon(contract string) (hokage.SummonResult, error)
	Dispatch(ctx context.Context, worker, capability string, kwargs map[string]interface{}) (scroll.Scroll, error)
	Raw(ctx context.Context, worker, prompt string) (scroll.Scroll, error)
	ShadowCloneArmy(ctx context.Context, worker, capability string, tasks []map[string]interface{}) ([]scroll.Scroll, error)
	Combination(ctx context.Context, steps []dispatch.Step) (scroll.Scroll, error)
}

// RequestObserver is told about every finished request
type RequestObserver interface {
	RequestCompleted(path, method string, status int, duration time.Duration)
}

// Options configures the server
type Options struct {
	Host               string
	Port               int
	RateLimitPerMinute int // negative disables rate limiting
	MaxBodyBytes       int64
	ShutdownTimeout    time.Duration
	MetricsHandler     http.Handler
	MetricsPath        string // defaults to /metrics
	Observer           RequestObserver

	// Key rate limits on X-Forwarded-For/X-Real-IP. Only set behind a proxy
	// that overwrites them.
	TrustForwardedHeaders bool
}

// DispatchRequest is the body of POST /dispatch
type DispatchRequest struct {
	Ninja  string                 `json:"ninja"`
	Jutsu  string                 `json:"jutsu"`
	Kwargs map[string]interface{} `json:"kwargs"`
}

// BatchRequest is the body of POST /shadow-clone-army
type BatchRequest struct {
	Ninja string                   `json:"ninja"`
	Jutsu string                   `json:"jutsu"`
	Tasks []map[string]interface{} `json:"tasks"`
}

// CombinationRequest is the body of POST /combination
type CombinationRequest struct {
	Steps []dispatch.Step `json:"steps"`
}

// SummonRequest is the body of POST /summon
type SummonRequest struct {
	Contract string `json:"contract"`
}

// RawRequest is the body of POST /raw
type RawRequest struct {
	Ninja  string `json:"ninja"`
	Prompt string `json:"prompt"`
}

// ErrorResponse is the error envelope
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	Timestamp int64   `json:"timestamp"`
}
