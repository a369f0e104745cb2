// Package observability records gateway and LLM lifecycle events for
// diagnostics and metrics export.
package observability

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Observer receives lifecycle events from the admission layer and the chat
// dispatch path. All methods must be safe for concurrent use and must
// never block the request path on a slow backend.
type Observer interface {
	AgentStart(component string)
	AgentEnd(component string)
	LlmRequest(messagesCount int)
	LlmResponse(success bool, errMessage string)
	RequestLatency(component string, d time.Duration)
	Error(component string, err error)
}

// Noop discards every event. It is the default Observer.
type Noop struct{}

func (Noop) AgentStart(string)                   {}
func (Noop) AgentEnd(string)                     {}
func (Noop) LlmRequest(int)                      {}
func (Noop) LlmResponse(bool, string)            {}
func (Noop) RequestLatency(string, time.Duration) {}
func (Noop) Error(string, error)                 {}

// Prometheus accumulates counters/histograms in the Prometheus text
// exposition format (0.0.4), exposed by the gateway's /metrics route.
// It deliberately avoids depending on the full client_golang registry so
// the admission layer's hot path never takes a registry lock it doesn't
// own.
type Prometheus struct {
	agentStarts   int64
	agentEnds     int64
	llmRequests   int64
	llmSuccesses  int64
	llmFailures   int64
	errorsByComp  sync.Map // string -> *int64
	latencySumMs  int64
	latencyCount  int64
}

// NewPrometheus creates an empty Prometheus observer.
func NewPrometheus() *Prometheus { return &Prometheus{} }

func (p *Prometheus) AgentStart(string) { atomic.AddInt64(&p.agentStarts, 1) }
func (p *Prometheus) AgentEnd(string)   { atomic.AddInt64(&p.agentEnds, 1) }
func (p *Prometheus) LlmRequest(int)    { atomic.AddInt64(&p.llmRequests, 1) }

func (p *Prometheus) LlmResponse(success bool, _ string) {
	if success {
		atomic.AddInt64(&p.llmSuccesses, 1)
		return
	}
	atomic.AddInt64(&p.llmFailures, 1)
}

func (p *Prometheus) RequestLatency(_ string, d time.Duration) {
	atomic.AddInt64(&p.latencySumMs, d.Milliseconds())
	atomic.AddInt64(&p.latencyCount, 1)
}

func (p *Prometheus) Error(component string, _ error) {
	counter, _ := p.errorsByComp.LoadOrStore(component, new(int64))
	atomic.AddInt64(counter.(*int64), 1)
}

// Render renders the accumulated counters in Prometheus text format.
func (p *Prometheus) Render() string {
	var out string
	out += fmt.Sprintf("gateway_agent_starts_total %d\n", atomic.LoadInt64(&p.agentStarts))
	out += fmt.Sprintf("gateway_agent_ends_total %d\n", atomic.LoadInt64(&p.agentEnds))
	out += fmt.Sprintf("gateway_llm_requests_total %d\n", atomic.LoadInt64(&p.llmRequests))
	out += fmt.Sprintf("gateway_llm_successes_total %d\n", atomic.LoadInt64(&p.llmSuccesses))
	out += fmt.Sprintf("gateway_llm_failures_total %d\n", atomic.LoadInt64(&p.llmFailures))

	count := atomic.LoadInt64(&p.latencyCount)
	sum := atomic.LoadInt64(&p.latencySumMs)
	out += fmt.Sprintf("gateway_request_latency_ms_sum %d\n", sum)
	out += fmt.Sprintf("gateway_request_latency_ms_count %d\n", count)

	p.errorsByComp.Range(func(k, v any) bool {
		out += fmt.Sprintf("gateway_errors_total{component=%q} %d\n", k.(string), atomic.LoadInt64(v.(*int64)))
		return true
	})
	return out
}
