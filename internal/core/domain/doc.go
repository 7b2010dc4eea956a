// Package domain holds docrag's entities, settings and error sentinels.
//
// A document moves through three shapes: the UploadRequest a caller hands
// in, the Chunks cut from its extracted text, and the VectorRecords the
// index stores. DocumentMetadata is written last and marks the document as
// committed. Queries come back as SearchHits and, once a language model has
// answered, as an Answer with Citations.
//
// Only the standard library may be imported here.
package domain
