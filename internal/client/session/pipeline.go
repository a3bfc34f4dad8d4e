package session

import (
	"net/http"
)

// RequestHook transforms an outbound request before it is sent.
type RequestHook func(*http.Request) error

// ResponseHook observes an inbound response before it reaches its caller.
type ResponseHook func(*http.Response) error

// Pipeline is an http.RoundTripper that runs registered hooks around a base
// transport. Hooks are registered once at construction time and apply to
// every request made through the client, so call sites never deal with
// credential mechanics. For a given request, all request hooks complete
// before the request is sent, and all response hooks complete before the
// response is returned.
type Pipeline struct {
	base          http.RoundTripper
	requestHooks  []RequestHook
	responseHooks []ResponseHook
}

// NewPipeline wraps base (http.DefaultTransport when nil).
func NewPipeline(base http.RoundTripper) *Pipeline {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Pipeline{base: base}
}

// OnRequest appends an outbound hook.
func (p *Pipeline) OnRequest(h RequestHook) {
	p.requestHooks = append(p.requestHooks, h)
}

// OnResponse appends an inbound hook.
func (p *Pipeline) OnResponse(h ResponseHook) {
	p.responseHooks = append(p.responseHooks, h)
}

// RoundTrip implements http.RoundTripper.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())

	for _, hook := range p.requestHooks {
		if err := hook(req); err != nil {
			return nil, err
		}
	}

	resp, err := p.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	for _, hook := range p.responseHooks {
		if err := hook(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}
	}

	return resp, nil
}
