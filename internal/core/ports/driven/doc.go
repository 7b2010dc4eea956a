// Package driven lists what the core needs from the outside world: text
// extraction, chunking, embeddings, a vector index, object storage, a
// language model and configuration. PromptStore and AIConfigValidator are
// optional; callers fall back to built-ins when they are absent.
//
// Only domain may be imported here.
package driven
