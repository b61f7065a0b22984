// Component configuration re-exports.
//
// DESIGN: Store, cache and tokenizer configuration is defined next to each
// component (internal/store, internal/cache, internal/tokens). This file
// re-exports those types for use by the main Config struct, so the config
// package can hold them without the components importing config.
package config

import (
	"github.com/compresr/paraphrase-gateway/internal/cache"
	"github.com/compresr/paraphrase-gateway/internal/store"
	"github.com/compresr/paraphrase-gateway/internal/tokens"
)

// =============================================================================
// TYPE ALIASES FOR YAML UNMARSHALING
// =============================================================================

// StoreConfig is an alias for store.Config.
type StoreConfig = store.Config

// CacheConfig is an alias for cache.Config.
type CacheConfig = cache.Config

// TokenizerConfig is an alias for tokens.Config.
type TokenizerConfig = tokens.Config

// =============================================================================
// RE-EXPORTED CONSTANTS
// =============================================================================

// Store types - re-exported from store package.
const (
	StoreMemory   = store.TypeMemory
	StoreSQLite   = store.TypeSQLite
	StorePostgres = store.TypePostgres
)

// Cache types - re-exported from cache package.
const (
	CacheNone   = cache.TypeNone
	CacheMemory = cache.TypeMemory
	CacheRedis  = cache.TypeRedis
)

// Tokenizer strategies - re-exported from tokens package.
const (
	TokenizerTiktoken = tokens.StrategyTiktoken
	TokenizerEstimate = tokens.StrategyEstimate
)
