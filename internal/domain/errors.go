package domain

import "errors"

var (
	// ErrSearchFailed is returned when the retailer search API could not be
	// reached after all retry attempts
	ErrSearchFailed = errors.New("retailer search request failed")

	// ErrNoCandidates is returned when a search produced zero candidates
	ErrNoCandidates = errors.New("no candidates returned for query")

	// ErrEmbeddingFailed is returned when the embedding endpoint request fails
	ErrEmbeddingFailed = errors.New("embedding request failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrFoodFactsUnavailable is returned when the Open Food Facts API request fails
	ErrFoodFactsUnavailable = errors.New("open food facts request failed")

	// ErrInvalidCategorisation is returned when the categoriser response does
	// not satisfy the output schema
	ErrInvalidCategorisation = errors.New("categorisation response failed validation")
)
