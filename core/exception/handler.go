package exception

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/dmitrymomot/waypoint/core/logger"
	"github.com/dmitrymomot/waypoint/core/response"
)

// Handler reports and renders errors that escaped the request pipeline.
type Handler interface {
	Report(ctx context.Context, err error)
	Render(r *http.Request, err error) *response.Response
}

// statusCode is implemented by errors that carry an HTTP status.
type statusCode interface {
	StatusCode() int
}

const genericMessage = "Server Error"

// DefaultHandler logs errors with slog and renders JSON or plain text.
type DefaultHandler struct {
	logger     *slog.Logger
	debug      bool
	dontReport []error
}

// Option configures DefaultHandler.
type Option func(*DefaultHandler)

// WithLogger sets the logger used by Report.
func WithLogger(l *slog.Logger) Option {
	return func(h *DefaultHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithDebug enables detailed rendering.
func WithDebug(debug bool) Option {
	return func(h *DefaultHandler) {
		h.debug = debug
	}
}

// WithDontReport skips reporting of errors matching any target.
func WithDontReport(targets ...error) Option {
	return func(h *DefaultHandler) {
		h.dontReport = append(h.dontReport, targets...)
	}
}

// NewHandler creates a DefaultHandler.
func NewHandler(opts ...Option) *DefaultHandler {
	h := &DefaultHandler{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Debug reports whether detailed rendering is enabled.
func (h *DefaultHandler) Debug() bool {
	return h.debug
}

// Report writes the error to the log. Client errors are logged at warn
// level, everything else at error level.
func (h *DefaultHandler) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	for _, target := range h.dontReport {
		if errors.Is(err, target) {
			return
		}
	}

	status := Status(err)
	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		logger.Component("exception"),
		logger.Error(err),
		slog.String("exception", TypeName(err)),
		logger.StatusCode(status),
	}
	if frames := StackTrace(err); len(frames) > 0 {
		attrs = append(attrs, slog.String("location", location(frames[0])))
		trace := make([]slog.Attr, 0, len(frames))
		for i, f := range frames {
			trace = append(trace, slog.String(fmt.Sprint(i), f.String()))
		}
		attrs = append(attrs, logger.Group("trace", trace...))
	}

	h.logger.LogAttrs(ctx, level, "request failed", attrs...)
}

// Render converts err into a response. It never fails.
func (h *DefaultHandler) Render(r *http.Request, err error) *response.Response {
	status := Status(err)
	payload := h.payload(err, status)

	var res *response.Response
	if wantsJSON(r) {
		res = renderJSON(payload, status)
	} else {
		res = response.StringWithStatus(renderText(payload), status)
	}

	var he *HTTPError
	if errors.As(err, &he) {
		for k, vs := range he.Headers {
			for _, v := range vs {
				res = res.WithAddedHeader(k, v)
			}
		}
	}
	return res
}

// Status returns the HTTP status carried by err, or 500.
func Status(err error) int {
	var sc statusCode
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// TypeName returns the concrete type of the outermost meaningful error.
func TypeName(err error) string {
	for {
		switch e := err.(type) {
		case *stackError:
			err = e.err
			continue
		case nil:
			return ""
		}
		return reflect.TypeOf(err).String()
	}
}

type payload struct {
	Message   string  `json:"message"`
	Exception string  `json:"exception,omitempty"`
	File      string  `json:"file,omitempty"`
	Line      int     `json:"line,omitempty"`
	Trace     []Frame `json:"trace,omitempty"`
}

func (h *DefaultHandler) payload(err error, status int) payload {
	if !h.debug {
		return payload{Message: publicMessage(err, status)}
	}

	p := payload{Message: errMessage(err), Exception: TypeName(err)}
	if frames := StackTrace(err); len(frames) > 0 {
		p.File = frames[0].File
		p.Line = frames[0].Line
		p.Trace = frames
	}
	return p
}

func publicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return genericMessage
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Message
	}
	if msg := errMessage(err); msg != "" {
		return msg
	}
	return http.StatusText(status)
}

func errMessage(err error) string {
	if err == nil {
		return genericMessage
	}
	return err.Error()
}

func wantsJSON(r *http.Request) bool {
	if r == nil {
		return false
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") || strings.Contains(accept, "+json")
}

func renderJSON(p payload, status int) *response.Response {
	res, err := response.JSONWithStatus(p, status)
	if err != nil {
		body, _ := json.Marshal(payload{Message: genericMessage})
		return response.New(status, body, http.Header{"Content-Type": {response.ContentTypeJSON}})
	}
	return res
}

func renderText(p payload) string {
	var b strings.Builder
	b.WriteString(p.Message)
	if p.Exception != "" {
		fmt.Fprintf(&b, "\n\nException: %s", p.Exception)
	}
	if p.File != "" {
		fmt.Fprintf(&b, "\nLocation: %s", location(Frame{File: p.File, Line: p.Line}))
	}
	if len(p.Trace) > 0 {
		b.WriteString("\n\nTrace:")
		for i, f := range p.Trace {
			fmt.Fprintf(&b, "\n#%d %s", i, f)
		}
	}
	return b.String()
}

func location(f Frame) string {
	return fmt.Sprintf("%s:%d", f.File, f.Line)
}
