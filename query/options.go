package query

import (
	"github.com/rs/zerolog"

	"github.com/spaceandtimelabs/sxt-proof-of-sql-sub005/internal/logging"
)

// ProverConfig/VerifierConfig follow the same shape as
// github.com/consensys/gnark/backend's ProverOption/NewProverConfig pair
// (used throughout backend/fflonk/bn254/prove.go): a zero-value-safe config
// struct, populated by applying a slice of option functions in order, with
// a constructor the driver calls once up front. gnark's backend package
// isn't part of this module's dependency surface (it lives one layer above
// gnark-crypto, which is), so this is a fresh implementation of the pattern
// rather than a copy of gnark's concrete struct.

// ProverConfig holds Prove's tunable, non-protocol behavior.
type ProverConfig struct {
	Logger zerolog.Logger
}

// ProveOption configures a ProverConfig.
type ProveOption func(*ProverConfig)

// WithProverLogger overrides the logger Prove uses for its progress
// messages; the default is logging.Logger().
func WithProverLogger(l zerolog.Logger) ProveOption {
	return func(c *ProverConfig) { c.Logger = l }
}

// NewProverConfig builds a ProverConfig from opts, applied in order.
func NewProverConfig(opts ...ProveOption) ProverConfig {
	cfg := ProverConfig{Logger: logging.Logger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// VerifierConfig holds Verify's tunable, non-protocol behavior.
type VerifierConfig struct {
	Logger zerolog.Logger
}

// VerifyOption configures a VerifierConfig.
type VerifyOption func(*VerifierConfig)

// WithVerifierLogger overrides the logger Verify uses for its progress
// messages; the default is logging.Logger().
func WithVerifierLogger(l zerolog.Logger) VerifyOption {
	return func(c *VerifierConfig) { c.Logger = l }
}

// NewVerifierConfig builds a VerifierConfig from opts, applied in order.
func NewVerifierConfig(opts ...VerifyOption) VerifierConfig {
	cfg := VerifierConfig{Logger: logging.Logger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
