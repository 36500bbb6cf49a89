package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Mode is the backend arrangement chosen at startup.
type Mode int

const (
	PrimaryOnly Mode = iota
	Mirrored
)

func (m Mode) String() string {
	if m == Mirrored {
		return "mirrored"
	}
	return "primary-only"
}

// MirrorStatus records what happened to the mirror copy of a write.
type MirrorStatus int

const (
	MirrorSkipped MirrorStatus = iota
	MirrorApplied
	MirrorFailed
)

func (s MirrorStatus) String() string {
	switch s {
	case MirrorApplied:
		return "applied"
	case MirrorFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// MirrorOutcome is the mirror half of a write. Err is set only when
// Status is MirrorFailed.
type MirrorOutcome struct {
	Status MirrorStatus
	Err    error
}

// WriteResult carries the primary's value together with the mirror outcome.
type WriteResult[T any] struct {
	Value  T
	Mirror MirrorOutcome
}

// Op is one logical backend operation. It must be expressible against any
// Conn because it is replayed verbatim on the mirror.
type Op[T any] func(ctx context.Context, db Conn) (T, error)

// Selector routes operations to the configured backends.
type Selector struct {
	primary Engine
	mirror  Engine
	logger  *zap.Logger
}

// NewSelector builds a PrimaryOnly selector when mirror is nil and a
// Mirrored one otherwise.
func NewSelector(primary, mirror Engine, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{primary: primary, mirror: mirror, logger: logger}
}

func (s *Selector) Mode() Mode {
	if s.mirror != nil {
		return Mirrored
	}
	return PrimaryOnly
}

// Close closes every configured backend.
func (s *Selector) Close() error {
	var errs []error
	if err := s.primary.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Write runs op on the primary and, if that succeeded, replays it on the
// mirror. Only the primary decides the returned error.
func Write[T any](ctx context.Context, s *Selector, name string, op Op[T]) (WriteResult[T], error) {
	v, err := op(ctx, s.primary)
	res := WriteResult[T]{Value: v}
	if err != nil || s.mirror == nil {
		return res, err
	}

	if _, merr := op(ctx, s.mirror); merr != nil {
		s.logger.Warn("mirror write failed",
			zap.String("op", name),
			zap.String("backend", s.mirror.Name()),
			zap.Error(merr),
		)
		res.Mirror = MirrorOutcome{Status: MirrorFailed, Err: merr}
		return res, nil
	}
	res.Mirror = MirrorOutcome{Status: MirrorApplied}
	return res, nil
}

// Read runs op against the primary only.
func Read[T any](ctx context.Context, s *Selector, op Op[T]) (T, error) {
	return op(ctx, s.primary)
}
