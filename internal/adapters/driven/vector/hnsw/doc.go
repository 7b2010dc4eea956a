// Package hnsw provides an in-process approximate nearest-neighbour index
// over vector records using a Hierarchical Navigable Small World graph.
//
// The metric is cosine. Embeddings are normalised on insert, so similarity
// is a dot product and distance is 1 - similarity.
//
// Deletes tombstone nodes: they stay in the graph for navigation but never
// appear in results. Once tombstones pass a quarter of all nodes the graph
// is rebuilt from the live records.
//
// The graph itself is not persisted. When a RecordStore is configured,
// records are written through to it and the graph is rebuilt from it by Open.
package hnsw
