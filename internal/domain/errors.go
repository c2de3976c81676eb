package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrCharacterNotFound signals a missing character record.
	ErrCharacterNotFound = errors.New("character not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorStoreError signals a vector store failure.
	ErrVectorStoreError = errors.New("vector store error")
	// ErrSparseIndexMissing signals that the BM25 index artifact has not been built.
	ErrSparseIndexMissing = errors.New("sparse index missing")
	// ErrRateLimited signals a rate limit hit on an upstream API.
	ErrRateLimited = errors.New("rate limited")
	// ErrTaggingFailed signals that every tagging model in the fallback chain failed.
	ErrTaggingFailed = errors.New("tagging failed")
)
