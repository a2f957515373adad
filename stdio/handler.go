// Package stdio is the single-connection duplex adapter. It reads
// line-delimited JSON-RPC messages from an io.Reader (os.Stdin by
// default), serves them in receipt order through the shared dispatcher,
// and writes one response line per request. The connection lasts until
// EOF, or until the context is cancelled — callers wire the context to
// SIGINT/SIGTERM for graceful shutdown.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"sync"

	"github.com/lanonasis/mcp-gateway/auth"
	"github.com/lanonasis/mcp-gateway/internal/jsonrpc"
	"github.com/lanonasis/mcp-gateway/internal/logctx"
	"github.com/lanonasis/mcp-gateway/tools"
)

// maxLineBytes bounds a single inbound frame.
const maxLineBytes = 4 << 20

// Handler is the stdio transport. One Handler serves exactly one
// connection; Serve may be called at most once.
type Handler struct {
	dispatcher *tools.Dispatcher
	r          io.Reader
	w          io.Writer
	l          *slog.Logger
	principal  *auth.Principal

	mu sync.Mutex // serializes response writes
}

// NewHandler constructs a stdio Handler with defaults and applies options.
// The default peer identity is the current OS user: the stdio peer shares
// the gateway's own process, so no credential exchange happens on this
// transport.
func NewHandler(dispatcher *tools.Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		dispatcher: dispatcher,
		r:          os.Stdin,
		w:          os.Stdout,
		l:          slog.Default(),
		principal:  localPrincipal(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve runs the event loop until EOF on the reader or context
// cancellation. Requests are processed and answered strictly in receipt
// order. Malformed frames produce structured error responses, never a
// crash or a dropped connection.
func (h *Handler) Serve(ctx context.Context) error {
	ctx = logctx.WithRequestData(ctx, &logctx.RequestData{
		Transport: "stdio",
	})

	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(h.r)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	h.l.InfoContext(ctx, "stdio transport started", "subject", h.principal.Subject)

	for {
		select {
		case <-ctx.Done():
			h.l.InfoContext(ctx, "stdio transport stopping", "reason", ctx.Err())
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("stdio read failed: %w", err)
				}
				h.l.InfoContext(ctx, "stdio transport stopping", "reason", "eof")
				return nil
			}
			if len(line) == 0 {
				continue
			}
			h.serveLine(ctx, line)
		}
	}
}

func (h *Handler) serveLine(ctx context.Context, line []byte) {
	req, parseErr := jsonrpc.ParseRequest(line)
	var resp *jsonrpc.Response
	if parseErr != nil {
		resp = jsonrpc.NewErrorResponse(nil, parseErr.Code, parseErr.Message, parseErr.Data)
	} else {
		resp = h.dispatcher.HandleRequest(ctx, h.principal, req)
	}

	if err := h.writeResponse(resp); err != nil {
		h.l.ErrorContext(ctx, "stdio write failed", "err", err)
	}
}

func (h *Handler) writeResponse(resp *jsonrpc.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

func localPrincipal() *auth.Principal {
	subject := "local"
	if u, err := user.Current(); err == nil {
		subject = u.Uid
	}
	return &auth.Principal{
		Subject: subject,
		Kind:    auth.KindLocal,
	}
}
