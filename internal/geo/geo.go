// Package geo computes great-circle distances and answers "is the
// caller close enough to this location" questions against a pluggable
// position source.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Spherical-earth approximation, radius in meters.
const earthRadius = 6371000

// Point is a coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Distance returns the great-circle distance between a and b in meters,
// using the haversine formula. Invalid inputs propagate as NaN.
func Distance(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadius * c
}

// FormatDistance renders meters for display: whole meters below 1 km,
// kilometers to one decimal place from there on.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// ErrPositionUnavailable means the position source was denied,
// unsupported, or timed out. Callers must fail closed: no range verdict
// exists, so a gated visit is not eligible.
var ErrPositionUnavailable = errors.New("position unavailable")

// Position is one fix from a position source.
type Position struct {
	Point
	Accuracy float64 `json:"accuracy"`
}

// PositionProvider is the external capability of obtaining the caller's
// current position. Implementations may take up to the locator timeout
// and may fail.
type PositionProvider interface {
	Position(ctx context.Context) (Position, error)
}

// RangeResult is the verdict of a range check.
type RangeResult struct {
	WithinRange bool
	// Distance is the raw measured distance in meters. The comparison
	// uses this value; round only for display.
	Distance float64
	Position Position
}

// DefaultTimeout bounds position acquisition when the locator has none.
const DefaultTimeout = 10 * time.Second

// Locator combines a position provider with a fixed acquisition timeout.
type Locator struct {
	Provider PositionProvider
	Timeout  time.Duration
}

// CheckRange acquires the caller's position and compares its distance
// to target against maxDistance. Acquisition failure or timeout returns
// an error wrapping ErrPositionUnavailable and no verdict.
func (l Locator) CheckRange(ctx context.Context, target Point, maxDistance float64) (RangeResult, error) {
	if l.Provider == nil {
		return RangeResult{}, ErrPositionUnavailable
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pos, err := l.Provider.Position(ctx)
	if err != nil {
		if errors.Is(err, ErrPositionUnavailable) {
			return RangeResult{}, err
		}
		return RangeResult{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	d := Distance(pos.Point, target)
	return RangeResult{
		WithinRange: d <= maxDistance,
		Distance:    d,
		Position:    pos,
	}, nil
}

// StaticProvider returns a fixed position, as when the presentation
// layer ships the fix it already acquired along with the request.
type StaticProvider Position

func (p StaticProvider) Position(ctx context.Context) (Position, error) {
	return Position(p), nil
}

// NoProvider always fails: the caller had no position source at all.
type NoProvider struct{}

func (NoProvider) Position(ctx context.Context) (Position, error) {
	return Position{}, ErrPositionUnavailable
}
