// Package services implements the driving ports on top of the driven ones.
//
// Ingestion extracts, chunks, embeds and indexes an upload and commits its
// metadata last. Retrieval embeds a question, filters hits by score and asks
// the language model for a cited answer. Settings and document services are
// thin layers over the config and object stores.
//
// Adapters are never imported here; only ports, domain, internal/retry,
// internal/logger, OpenTelemetry, errgroup and uuid.
package services
