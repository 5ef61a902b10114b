package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"zettel/internal/dirtree"
	zerrors "zettel/internal/errors"
	"zettel/internal/httpwire"
	"zettel/internal/render"
	"zettel/internal/resolver"
	"zettel/internal/version"
)

// AllowedMethods is sent with every 405.
const AllowedMethods = "GET, HEAD"

// PartialHeader asks for the content fragment instead of the full page.
const PartialHeader = "X-Partial"

// HandlerOptions bounds what a single connection may cost.
type HandlerOptions struct {
	Limits       httpwire.Limits
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Handler serves exactly one request per connection.
type Handler struct {
	resolver *resolver.Resolver
	renderer *render.Renderer
	opts     HandlerOptions
	logger   *slog.Logger
}

// NewHandler creates a handler. The resolver and renderer are shared by all
// connections.
func NewHandler(res *resolver.Resolver, renderer *render.Renderer, opts HandlerOptions, logger *slog.Logger) *Handler {
	return &Handler{
		resolver: res,
		renderer: renderer,
		opts:     opts,
		logger:   logger,
	}
}

// ServeConn reads one request from conn, answers it and closes conn.
func (h *Handler) ServeConn(conn net.Conn) {
	defer conn.Close()

	requestID := uuid.New().String()
	log := h.logger.With("requestID", requestID)

	if h.opts.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	}

	start := time.Now()
	req, err := httpwire.NewRequestReader(conn, h.opts.Limits).Read()
	var resp *httpwire.Response
	if err != nil {
		if httpwire.KindOf(err) == httpwire.Io {
			log.Debug("Connection dropped before a full request", "remote", remoteAddr(conn), "error", err.Error())
			return
		}
		log.Warn("Rejected request", "remote", remoteAddr(conn), "error", err.Error())
		resp = parseErrorResponse(err)
	} else {
		resp = h.safeHandle(req, log)
	}

	resp.Header.Set("Server", version.ServerToken())
	resp.Header.Set("X-Request-ID", requestID)
	resp.Header.Set("Connection", "close")

	if h.opts.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
	}
	n, err := resp.WriteTo(conn)
	if err != nil {
		log.Debug("Failed to write response", "error", err.Error())
	}

	method, target := "-", "-"
	if req != nil {
		method, target = req.Method, req.Target
	}
	log.Info("HTTP request",
		"method", method,
		"path", target,
		"status", resp.Status,
		"bytes", n,
		"durationMs", time.Since(start).Milliseconds(),
	)
}

// safeHandle turns a panic inside Handle into a 500 for this request only.
func (h *Handler) safeHandle(req *httpwire.Request, log *slog.Logger) (resp *httpwire.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic recovered",
				"error", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			resp = httpwire.ServerError()
		}
	}()
	return h.Handle(req, log)
}

// Handle dispatches on the method and builds the response.
func (h *Handler) Handle(req *httpwire.Request, log *slog.Logger) *httpwire.Response {
	switch req.Method {
	case "GET":
		return h.get(req, log)
	case "HEAD":
		resp := h.get(req, log)
		resp.StripBody()
		return resp
	case "OPTIONS", "POST", "PUT", "DELETE", "PATCH":
		return httpwire.MethodNotAllowed(AllowedMethods)
	default:
		return httpwire.NotImplemented()
	}
}

func (h *Handler) get(req *httpwire.Request, log *slog.Logger) *httpwire.Response {
	res := h.resolver.Lookup(req.Path)
	log.Debug("Resolved request", "path", req.Path, "kind", res.Kind.String(), "file", res.Path)

	switch res.Kind {
	case resolver.RegularFile:
		data, err := os.ReadFile(res.Path)
		if err != nil {
			return h.failure(zerrors.New(zerrors.IOFailure, "read file", err), log)
		}
		return httpwire.NewResponse(200, contentType(res.Path, data), data)
	case resolver.MarkdownDocument:
		return h.markdown(req, res, log)
	case resolver.Directory:
		return h.directory(req, res, log)
	default:
		return httpwire.NotFound(req.Path)
	}
}

func (h *Handler) markdown(req *httpwire.Request, res resolver.Resolved, log *slog.Logger) *httpwire.Response {
	src, err := os.ReadFile(res.Path)
	if err != nil {
		return h.failure(zerrors.New(zerrors.IOFailure, "read document", err), log)
	}
	// Trailing slashes are dropped first: /a/b/ may resolve to a/b.md, whose
	// siblings live under /a/.
	listing, err := dirtree.ReadEntries(filepath.Dir(res.Path), linkBase(path.Dir(path.Clean(req.Path))))
	if err != nil {
		return h.failure(zerrors.New(zerrors.IOFailure, "list parent directory", err), log)
	}
	tree, err := h.contentTree()
	if err != nil {
		return h.failure(err, log)
	}

	body, err := h.renderer.RenderMarkdown(render.MarkdownContext{
		Path:    req.Path,
		Source:  src,
		Listing: listing,
		Tree:    tree,
		Partial: isPartial(req),
	})
	if err != nil {
		return h.failure(zerrors.New(zerrors.RenderFailed, "render markdown", err), log)
	}
	return httpwire.NewResponse(200, "text/html; charset=utf-8", body)
}

func (h *Handler) directory(req *httpwire.Request, res resolver.Resolved, log *slog.Logger) *httpwire.Response {
	if PreferredFormat(req.Header.Get("Accept")) == FormatJSON {
		var v any
		var err error
		if treeRequested(req.Query) {
			v, err = dirtree.Build(res.Path, dirtree.RootRelative, "")
		} else {
			v, err = dirtree.ReadEntries(res.Path, "")
		}
		if err != nil {
			return h.failure(zerrors.New(zerrors.IOFailure, "list directory", err), log)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return h.failure(zerrors.New(zerrors.InternalError, "encode listing", err), log)
		}
		return httpwire.NewResponse(200, "application/json", data)
	}

	listing, err := dirtree.ReadEntries(res.Path, linkBase(req.Path))
	if err != nil {
		return h.failure(zerrors.New(zerrors.IOFailure, "list directory", err), log)
	}
	tree, err := h.contentTree()
	if err != nil {
		return h.failure(err, log)
	}
	body, err := h.renderer.RenderDirectory(render.DirectoryContext{
		Path:    req.Path,
		Listing: listing,
		Tree:    tree,
		Partial: isPartial(req),
	})
	if err != nil {
		return h.failure(zerrors.New(zerrors.RenderFailed, "render directory", err), log)
	}
	return httpwire.NewResponse(200, "text/html; charset=utf-8", body)
}

// contentTree is rebuilt on every request so the navigation always matches
// the disk.
func (h *Handler) contentTree() (*dirtree.Directory, error) {
	tree, err := dirtree.Build(h.resolver.ContentRoot(), dirtree.RequestRelative, "/")
	if err != nil {
		return nil, zerrors.New(zerrors.IOFailure, "build content tree", err)
	}
	return tree, nil
}

// failure logs the cause and answers with the status of its code. The cause
// never reaches the client.
func (h *Handler) failure(err error, log *slog.Logger) *httpwire.Response {
	code := zerrors.CodeOf(err)
	log.Error("Request failed", "code", string(code), "error", err.Error())
	status := zerrors.StatusFor(code)
	if status == 500 {
		return httpwire.ServerError()
	}
	return httpwire.TextResponse(status, httpwire.StatusText(status))
}

// parseErrorResponse maps a non-Io parse failure to a 400 with a short reason.
func parseErrorResponse(err error) *httpwire.Response {
	var pe *httpwire.ParseError
	if !errors.As(err, &pe) {
		return httpwire.BadRequest("malformed request")
	}
	code := zerrors.MalformedRequest
	switch pe.Kind {
	case httpwire.HeaderOverflow:
		code = zerrors.HeaderOverflow
	case httpwire.BodyEncoding:
		code = zerrors.BodyEncoding
	}
	return httpwire.TextResponse(zerrors.StatusFor(code), "Bad Request: "+pe.Msg)
}

// linkBase turns a request directory into the prefix used for listing links.
func linkBase(dir string) string {
	if !strings.HasPrefix(dir, "/") {
		dir = "/" + dir
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir
}

func isPartial(req *httpwire.Request) bool {
	return strings.EqualFold(strings.TrimSpace(req.Header.Get(PartialHeader)), "true")
}

// treeRequested reports whether ?tree=1|true|yes asks for the recursive tree
// instead of the one-level listing.
func treeRequested(query string) bool {
	q, err := url.ParseQuery(query)
	if err != nil {
		return false
	}
	switch strings.ToLower(q.Get("tree")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func remoteAddr(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
