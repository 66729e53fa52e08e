// Package hko publishes the Hong Kong Observatory open-data endpoints as tools.
//
// Each tool has a typed request struct whose fields and defaults mirror the
// descriptor's query parameters. Enumerations in the published schemas are
// hints for callers; the upstream service is the only validator.
package hko
