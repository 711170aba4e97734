package rng

import (
	"fmt"
	"math"
)

// Distribution draws one service- or inter-arrival-time sample from a
// shared random source. Implementations must be side-effect free beyond
// consuming draws from rng.
type Distribution interface {
	Sample(rng Source) float64
}

// Exponential is the Exponential(mu) distribution; E[X] = 1/mu.
type Exponential struct {
	Mu float64
}

// NewExponential validates mu > 0 and returns an Exponential distribution.
func NewExponential(mu float64) (*Exponential, error) {
	if mu <= 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("Exponential: mu must be > 0, got %v", mu)}
	}
	return &Exponential{Mu: mu}, nil
}

// Sample draws one value via inverse-CDF on a uniform draw in [0, 1).
func (e *Exponential) Sample(rng Source) float64 {
	u := rng.Float64()
	return -(1.0 / e.Mu) * math.Log(1.0-u)
}

// Uniform is the continuous Uniform(a, b) distribution.
type Uniform struct {
	A, B float64
}

// NewUniform validates a < b and returns a Uniform distribution.
func NewUniform(a, b float64) (*Uniform, error) {
	if !(a < b) {
		return nil, &ConfigError{Msg: fmt.Sprintf("Uniform: require a < b, got a=%v b=%v", a, b)}
	}
	return &Uniform{A: a, B: b}, nil
}

// Sample draws one value uniformly in [a, b).
func (u *Uniform) Sample(rng Source) float64 {
	return (u.B-u.A)*rng.Float64() + u.A
}

// BoundedPareto is the truncated Bounded-Pareto(k, p, alpha) distribution,
// with support [k, p]. C is the precomputed normalizing constant
// k^alpha / (1 - (k/p)^alpha), recomputed once at construction.
type BoundedPareto struct {
	K, P, Alpha float64
	C           float64
}

// NewBoundedPareto validates 0 < k < p, alpha > 0 and precomputes C.
func NewBoundedPareto(k, p, alpha float64) (*BoundedPareto, error) {
	if !(k > 0 && k < p) {
		return nil, &ConfigError{Msg: fmt.Sprintf("BoundedPareto: require 0 < k < p, got k=%v p=%v", k, p)}
	}
	if alpha <= 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("BoundedPareto: alpha must be > 0, got %v", alpha)}
	}
	c := math.Pow(k, alpha) / (1.0 - math.Pow(k/p, alpha))
	return &BoundedPareto{K: k, P: p, Alpha: alpha, C: c}, nil
}

// Sample draws one value in [k, p] via inverse-CDF.
func (bp *BoundedPareto) Sample(rng Source) float64 {
	u := rng.Float64()
	return math.Pow(-u/bp.C+math.Pow(bp.K, -bp.Alpha), -1.0/bp.Alpha)
}

// ConfigError reports an invalid distribution or server configuration
// parameter, surfaced from constructors per the core's configuration-error
// failure kind.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }
