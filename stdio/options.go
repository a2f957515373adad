package stdio

import (
	"io"
	"log/slog"

	"github.com/lanonasis/mcp-gateway/auth"
)

// Option customizes a Handler.
type Option func(*Handler)

// WithIO sets the reader and writer for the handler.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.l = l
		}
	}
}

// WithPrincipal overrides the identity attributed to the stdio peer.
func WithPrincipal(p *auth.Principal) Option {
	return func(h *Handler) {
		if p != nil {
			h.principal = p
		}
	}
}
