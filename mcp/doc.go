// Package mcp defines the wire-level types shared by every transport
// adapter: tool descriptors, content blocks, and the request/result shapes
// for the tools/list and tools/call operations. The types are plain data;
// all behavior lives in the tools and gateway packages.
package mcp
