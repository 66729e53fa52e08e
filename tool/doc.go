// Package tool defines the dispatch core for upstream-backed tools.
//
// The package is split by concern:
//   - manifest: immutable tool descriptors and parameter specs
//   - registry: name-keyed lookup over a fixed descriptor set
//   - urlbuilder: deterministic upstream URL construction
//   - fetcher: the single outbound HTTP GET and its error mapping
//   - dispatcher: argument resolution, fetch, decode, observation
//
// Nothing here knows about a particular upstream API or wire protocol, so the
// CLI and the MCP server share one dispatch path.
package tool
