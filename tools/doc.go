// Package tools holds the transport-agnostic tool registry and
// dispatcher. The registry is a static table built at startup; the
// dispatcher validates invocations against it and executes handlers,
// normalizing every outcome into content blocks or a JSON-RPC error.
// The dispatcher has no transport awareness and no authentication logic;
// callers must have resolved a principal before dispatching.
package tools
