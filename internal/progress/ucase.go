package progress

import (
	"context"
	"time"

	"go.elastic.co/apm"
)

type ProgressUseCase interface {
	// FindByCourse progress lookup of userID on courseID
	FindByCourse(ctx context.Context, userID, courseID string) (Lookup, error)
	// OpenLedger create the progress client of one course-view session
	OpenLedger(userID, courseID string) *Ledger
}

type ProgressUseCaseImpl struct {
	ProgressRepository ProgressRepository
	Cache              Cache
	WriteThrottle      time.Duration
}

var _ ProgressUseCase = &ProgressUseCaseImpl{}

// NewProgressUseCase ...
func NewProgressUseCase(
	ProgressRepository ProgressRepository,
	Cache Cache,
	WriteThrottle time.Duration,
) *ProgressUseCaseImpl {
	if Cache == nil {
		Cache = NopCache{}
	}
	return &ProgressUseCaseImpl{
		ProgressRepository: ProgressRepository,
		Cache:              Cache,
		WriteThrottle:      WriteThrottle,
	}
}

func (pu *ProgressUseCaseImpl) FindByCourse(ctx context.Context, userID, courseID string) (Lookup, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "ProgressUseCaseImpl.FindByCourse", "service")
	defer apmSpan.End()

	version, versioned := pu.Cache.Version(userID, courseID)
	if cached, ok := pu.Cache.Get(userID, courseID); ok {
		return cached, nil
	}
	lookup, err := pu.ProgressRepository.FindByCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if lookup == nil {
		lookup = make(Lookup)
	}
	if versioned {
		pu.Cache.Set(userID, courseID, version, lookup)
	}
	return lookup, nil
}

func (pu *ProgressUseCaseImpl) OpenLedger(userID, courseID string) *Ledger {
	return NewLedger(pu.ProgressRepository, pu.Cache, userID, courseID, WithThrottle(pu.WriteThrottle))
}
