package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"enrolld/internal/enrollment/models"
	"enrolld/pkg/requestcontext"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func newRecord(firstName string) *models.EnrollmentRecord {
	return &models.EnrollmentRecord{
		Person: models.PersonRecord{
			FirstName: firstName,
			LastName:  "Moussavou",
			BirthDate: "1984-02-12",
			Gender:    models.GenderFemale,
			Province:  models.ProvinceEstuaire,
		},
		Household: models.HouseholdRecord{
			Size:           5,
			HasElectricity: models.TriNo,
			HasWater:       models.TriYes,
			ZoneType:       models.ZoneUrbanPeriphery,
		},
		LocalScore: models.Assessment{
			Score:    37,
			Category: models.CategoryModerate,
			Factors: []models.Factor{
				{Dimension: models.DimensionEconomic, Label: "no electricity", Points: 15},
			},
		},
	}
}

func (s *MemoryStoreSuite) TestEnqueueRoundTrip() {
	rec := newRecord("Awa")
	clientID, err := s.store.Enqueue(s.ctx, rec)
	s.Require().NoError(err)
	s.NotEmpty(clientID)

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)

	got := pending[0]
	s.Equal(clientID, got.ClientID)
	s.Equal(models.SyncPending, got.SyncStatus)
	s.Equal(rec.Person, got.Person)
	s.Equal(rec.Household, got.Household)
	s.Equal(rec.LocalScore, got.LocalScore)
	s.Zero(got.Attempts)
}

func (s *MemoryStoreSuite) TestEnqueueIsIdempotentPerClientID() {
	rec := newRecord("Awa")
	clientID, err := s.store.Enqueue(s.ctx, rec)
	s.Require().NoError(err)

	// Re-saving the same in-progress form reuses the client ID.
	rec.ClientID = clientID
	rec.Person.FirstName = "Awa-edited"
	again, err := s.store.Enqueue(s.ctx, rec)
	s.Require().NoError(err)
	s.Equal(clientID, again)

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("Awa-edited", pending[0].Person.FirstName)
}

func (s *MemoryStoreSuite) TestListPendingOrdersOldestFirst() {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Duration(2-i)*time.Hour))
		id, err := s.store.Enqueue(ctx, newRecord(fmt.Sprintf("person-%d", i)))
		s.Require().NoError(err)
		ids = append(ids, id)
	}

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 3)

	// Inserted newest-first, listed oldest-first.
	s.Equal(ids[2], pending[0].ClientID)
	s.Equal(ids[1], pending[1].ClientID)
	s.Equal(ids[0], pending[2].ClientID)
}

func (s *MemoryStoreSuite) TestListPendingIncludesFailedExcludesOthers() {
	idPending, _ := s.store.Enqueue(s.ctx, newRecord("pending"))
	idFailed, _ := s.store.Enqueue(s.ctx, newRecord("failed"))
	idSyncing, _ := s.store.Enqueue(s.ctx, newRecord("syncing"))
	idSynced, _ := s.store.Enqueue(s.ctx, newRecord("synced"))

	s.Require().NoError(s.store.MarkFailed(s.ctx, idFailed, "timeout", false))
	s.Require().NoError(s.store.MarkSyncing(s.ctx, idSyncing))
	s.Require().NoError(s.store.MarkSynced(s.ctx, idSynced, "srv-1", 42))

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)

	listed := map[string]bool{}
	for _, rec := range pending {
		listed[rec.ClientID] = true
	}
	s.True(listed[idPending])
	s.True(listed[idFailed])
	s.False(listed[idSyncing])
	s.False(listed[idSynced])
}

func (s *MemoryStoreSuite) TestStatusTransitions() {
	clientID, err := s.store.Enqueue(s.ctx, newRecord("Awa"))
	s.Require().NoError(err)

	attemptAt := time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)
	s.Require().NoError(s.store.MarkSyncing(requestcontext.WithTime(s.ctx, attemptAt), clientID))
	s.Require().NoError(s.store.MarkFailed(s.ctx, clientID, "registry timeout", false))

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(models.SyncFailed, pending[0].SyncStatus)
	s.Equal(1, pending[0].Attempts)
	s.Equal("registry timeout", pending[0].FailureReason)
	s.False(pending[0].FailurePermanent)
	s.Equal(attemptAt, pending[0].LastAttemptAt)

	s.Require().NoError(s.store.MarkSyncing(s.ctx, clientID))
	s.Require().NoError(s.store.MarkSynced(s.ctx, clientID, "srv-9", 55))

	pending, err = s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Empty(pending)

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *MemoryStoreSuite) TestPermanentFailureIsRecorded() {
	clientID, err := s.store.Enqueue(s.ctx, newRecord("Awa"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.MarkSyncing(s.ctx, clientID))
	s.Require().NoError(s.store.MarkFailed(s.ctx, clientID, "duplicate national id", true))

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.True(pending[0].FailurePermanent)
	s.Equal("duplicate national id", pending[0].FailureReason)
}

func (s *MemoryStoreSuite) TestReclaimSyncingRequeuesInterruptedRecords() {
	idSyncing, _ := s.store.Enqueue(s.ctx, newRecord("interrupted"))
	idPending, _ := s.store.Enqueue(s.ctx, newRecord("untouched"))
	idSynced, _ := s.store.Enqueue(s.ctx, newRecord("done"))

	s.Require().NoError(s.store.MarkSyncing(s.ctx, idSyncing))
	s.Require().NoError(s.store.MarkSynced(s.ctx, idSynced, "srv-3", 30))

	reclaimed, err := s.store.ReclaimSyncing(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, reclaimed)

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	for _, rec := range pending {
		switch rec.ClientID {
		case idSyncing:
			s.Equal(models.SyncFailed, rec.SyncStatus)
			s.False(rec.FailurePermanent)
			s.Equal(1, rec.Attempts, "the interrupted attempt stays counted")
		case idPending:
			s.Equal(models.SyncPending, rec.SyncStatus)
		}
	}

	// Nothing left to reclaim on a clean queue.
	reclaimed, err = s.store.ReclaimSyncing(s.ctx)
	s.Require().NoError(err)
	s.Zero(reclaimed)
}

func (s *MemoryStoreSuite) TestTransitionsOnMissingRecordAreNoOps() {
	s.NoError(s.store.MarkSyncing(s.ctx, "ghost"))
	s.NoError(s.store.MarkSynced(s.ctx, "ghost", "srv-1", 10))
	s.NoError(s.store.MarkFailed(s.ctx, "ghost", "whatever", false))
}

func (s *MemoryStoreSuite) TestCountExcludesOnlySynced() {
	idA, _ := s.store.Enqueue(s.ctx, newRecord("a"))
	idB, _ := s.store.Enqueue(s.ctx, newRecord("b"))
	_, _ = s.store.Enqueue(s.ctx, newRecord("c"))

	s.Require().NoError(s.store.MarkSyncing(s.ctx, idA))
	s.Require().NoError(s.store.MarkSynced(s.ctx, idB, "srv-2", 20))

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count, "SYNCING and PENDING both count toward the badge")
}

func (s *MemoryStoreSuite) TestClonesProtectStoredState() {
	rec := newRecord("Awa")
	clientID, err := s.store.Enqueue(s.ctx, rec)
	s.Require().NoError(err)

	// Mutating the caller's record after enqueue must not leak in.
	rec.Person.FirstName = "mutated"
	rec.LocalScore.Factors[0].Points = 99

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Equal("Awa", pending[0].Person.FirstName)
	s.Equal(15, pending[0].LocalScore.Factors[0].Points)

	// Mutating a listed record must not leak back either.
	pending[0].Person.FirstName = "mutated-again"
	again, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Equal("Awa", again[0].Person.FirstName)
	_ = clientID
}

func (s *MemoryStoreSuite) TestConcurrentEnqueueAndTransitions() {
	const workers = 20
	var wg sync.WaitGroup
	ids := make([]string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.store.Enqueue(s.ctx, newRecord(fmt.Sprintf("w-%d", i)))
			s.NoError(err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.NoError(s.store.MarkSyncing(s.ctx, ids[i]))
			if i%2 == 0 {
				s.NoError(s.store.MarkSynced(s.ctx, ids[i], fmt.Sprintf("srv-%d", i), i))
			} else {
				s.NoError(s.store.MarkFailed(s.ctx, ids[i], "transient", false))
			}
		}(i)
	}
	wg.Wait()

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(workers/2, count)
}
