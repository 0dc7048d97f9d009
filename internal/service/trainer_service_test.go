package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shard-legends/hatchery-service/internal/models"
)

// MockTrainerRepository - mock for storage.TrainerRepository
type MockTrainerRepository struct {
	mock.Mock
}

func (m *MockTrainerRepository) Load(ctx context.Context, trainerID uuid.UUID) (*models.TrainerRecord, error) {
	args := m.Called(ctx, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrainerRecord), args.Error(1)
}

func (m *MockTrainerRepository) Save(ctx context.Context, record *models.TrainerRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockTrainerRepository) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// memoryRepository keeps records in a map and can be told to fail saves
type memoryRepository struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*models.TrainerRecord
	saves    int
	failSave bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{records: make(map[uuid.UUID]*models.TrainerRecord)}
}

func (r *memoryRepository) Load(ctx context.Context, trainerID uuid.UUID) (*models.TrainerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[trainerID]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}

// Save fails on a done context the way a pgx Exec does
func (r *memoryRepository) Save(ctx context.Context, record *models.TrainerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return errors.New("connection refused")
	}
	r.saves++
	r.records[record.TrainerID] = record.Clone()
	return nil
}

func (r *memoryRepository) EnsureSchema(ctx context.Context) error { return nil }

func (r *memoryRepository) stored(trainerID uuid.UUID) *models.TrainerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[trainerID]
}

func (r *memoryRepository) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// scriptedGenerator answers call n with rarities[n] or fails call failOn
type scriptedGenerator struct {
	mu       sync.Mutex
	calls    int
	rarities []string
	failOn   int
	failWith error
	seeds    []int64
}

func (g *scriptedGenerator) RequestOne(ctx context.Context, req GenerationRequest) (*GeneratedCreature, error) {
	g.mu.Lock()
	n := g.calls
	g.calls++
	if req.Seed != nil {
		g.seeds = append(g.seeds, *req.Seed)
	}
	g.mu.Unlock()

	if g.failWith != nil && n == g.failOn {
		return nil, g.failWith
	}

	rarity := "C"
	if n < len(g.rarities) {
		rarity = g.rarities[n]
	}
	return &GeneratedCreature{
		Name:   "Creature-" + rarity,
		Rarity: rarity,
		Image:  "data:image/png;base64,AAAA",
	}, nil
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func testEconomy() EconomyConfig {
	return EconomyConfig{
		InitialTokens:      100,
		GenerateCost:       10,
		MaxBatchSize:       5,
		DefaultResellValue: 5,
	}
}

func newTestService(repo *memoryRepository, gen GenerationClient) *TrainerService {
	return NewTrainerService(repo, gen, testEconomy(), zap.NewNop(),
		WithClock(func() time.Time { return fixedNow }))
}

func TestTrainerService_Scenario_GenerateAcceptSell(t *testing.T) {
	repo := newMemoryRepository()
	gen := &scriptedGenerator{rarities: []string{"A", "C", "S"}}
	svc := newTestService(repo, gen)
	ctx := context.Background()
	trainerID := uuid.New()

	generated, err := svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 70, generated.Tokens)
	assert.Equal(t, 30, generated.Spent)
	require.Len(t, generated.Staged, 3)
	assert.Empty(t, generated.PersistenceWarning)

	ids := map[uuid.UUID]bool{}
	var creatureA uuid.UUID
	for _, c := range generated.Staged {
		ids[c.ID] = true
		assert.Equal(t, fixedNow, c.Timestamp)
		if c.Rarity == models.RarityA {
			creatureA = c.ID
		}
	}
	assert.Len(t, ids, 3, "staged ids must be unique")

	for _, c := range generated.Staged {
		_, err := svc.Accept(ctx, trainerID, c.ID)
		require.NoError(t, err)
	}

	state, err := svc.State(ctx, trainerID)
	require.NoError(t, err)
	assert.Len(t, state.Collection, 3)
	assert.Empty(t, state.Staged)
	assert.Equal(t, 70, state.Tokens)

	sold, err := svc.Sell(ctx, trainerID, creatureA)
	require.NoError(t, err)
	assert.True(t, sold.Sold)
	assert.Equal(t, 15, sold.Credited)
	assert.Equal(t, 85, sold.Tokens)
	assert.Equal(t, 2, sold.CollectionSize)

	stored := repo.stored(trainerID)
	require.NotNil(t, stored)
	assert.Equal(t, 85, stored.Tokens)
	assert.Len(t, stored.CollectedPokemon, 2)
}

func TestTrainerService_Generate_InsufficientTokens(t *testing.T) {
	repo := newMemoryRepository()
	trainerID := uuid.New()
	repo.records[trainerID] = &models.TrainerRecord{TrainerID: trainerID, Tokens: 25, CollectedPokemon: []models.Creature{}}
	gen := &scriptedGenerator{}
	svc := newTestService(repo, gen)

	_, err := svc.Generate(context.Background(), trainerID, models.GenerateRequest{Quantity: 3})

	var insufficient *InsufficientTokensError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 30, insufficient.Required)
	assert.Equal(t, 25, insufficient.Available)
	assert.Zero(t, gen.callCount())

	state, err := svc.State(context.Background(), trainerID)
	require.NoError(t, err)
	assert.Equal(t, 25, state.Tokens)
	assert.Empty(t, state.Staged)
}

func TestTrainerService_Generate_ExactBalanceSucceeds(t *testing.T) {
	repo := newMemoryRepository()
	trainerID := uuid.New()
	repo.records[trainerID] = &models.TrainerRecord{TrainerID: trainerID, Tokens: 20, CollectedPokemon: []models.Creature{}}
	svc := newTestService(repo, &scriptedGenerator{})

	resp, err := svc.Generate(context.Background(), trainerID, models.GenerateRequest{Quantity: 2})

	require.NoError(t, err)
	assert.Equal(t, 0, resp.Tokens)
	assert.Len(t, resp.Staged, 2)
}

func TestTrainerService_Generate_FailureLeavesStateUnchanged(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &scriptedGenerator{rarities: []string{"B", "B"}})
	ctx := context.Background()
	trainerID := uuid.New()

	first, err := svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 2})
	require.NoError(t, err)
	savesBefore := repo.saveCount()

	svc.generator = &scriptedGenerator{
		failOn:   1,
		failWith: &GenerationError{Classification: GenerationRateLimited, Message: "slow down", StatusCode: 429},
	}

	_, err = svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 3})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, GenerationRateLimited, genErr.Classification)

	state, err := svc.State(ctx, trainerID)
	require.NoError(t, err)
	assert.Equal(t, 80, state.Tokens)
	assert.Equal(t, first.Staged, state.Staged)
	assert.Equal(t, savesBefore, repo.saveCount())
}

func TestTrainerService_Generate_NonGenerationErrorIsClassifiedUnknown(t *testing.T) {
	svc := newTestService(newMemoryRepository(), &scriptedGenerator{failOn: 0, failWith: errors.New("boom")})

	_, err := svc.Generate(context.Background(), uuid.New(), models.GenerateRequest{Quantity: 1})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, GenerationUnknown, genErr.Classification)
}

func TestTrainerService_Generate_InvalidQuantity(t *testing.T) {
	gen := &scriptedGenerator{}
	svc := newTestService(newMemoryRepository(), gen)

	for _, q := range []int{0, -1, 6} {
		_, err := svc.Generate(context.Background(), uuid.New(), models.GenerateRequest{Quantity: q})
		assert.ErrorIs(t, err, ErrInvalidQuantity, "quantity %d", q)
	}
	assert.Zero(t, gen.callCount())
}

func TestTrainerService_Generate_SeedIsSpreadAcrossBatch(t *testing.T) {
	gen := &scriptedGenerator{}
	svc := newTestService(newMemoryRepository(), gen)
	seed := int64(42)

	_, err := svc.Generate(context.Background(), uuid.New(), models.GenerateRequest{Quantity: 3, Seed: &seed})

	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{42, 43, 44}, gen.seeds)
}

func TestTrainerService_Generate_ReplacesStaging(t *testing.T) {
	svc := newTestService(newMemoryRepository(), &scriptedGenerator{})
	ctx := context.Background()
	trainerID := uuid.New()

	first, err := svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 2})
	require.NoError(t, err)
	second, err := svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 1})
	require.NoError(t, err)

	require.Len(t, second.Staged, 1)
	_, err = svc.Accept(ctx, trainerID, first.Staged[0].ID)
	assert.ErrorIs(t, err, ErrNotStaged)
}

func TestTrainerService_Accept_Duplicate(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &scriptedGenerator{})
	ctx := context.Background()
	trainerID := uuid.New()
	fixedID := uuid.New()
	svc.newID = func() uuid.UUID { return fixedID }

	_, err := svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Accept(ctx, trainerID, fixedID)
	require.NoError(t, err)

	// Same id staged again
	_, err = svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 1})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, trainerID, fixedID)
	assert.ErrorIs(t, err, ErrDuplicateItem)

	state, err := svc.State(ctx, trainerID)
	require.NoError(t, err)
	assert.Len(t, state.Collection, 1)
	assert.Len(t, state.Staged, 1, "duplicate stays staged")
}

func TestTrainerService_Accept_NotStaged(t *testing.T) {
	svc := newTestService(newMemoryRepository(), &scriptedGenerator{})

	_, err := svc.Accept(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, ErrNotStaged)
}

func TestTrainerService_Discard(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &scriptedGenerator{})
	ctx := context.Background()
	trainerID := uuid.New()

	generated, err := svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 2})
	require.NoError(t, err)
	saves := repo.saveCount()

	resp, err := svc.Discard(ctx, trainerID, generated.Staged[0].ID)
	require.NoError(t, err)
	assert.Equal(t, generated.Staged[0].ID, resp.Discarded)
	require.Len(t, resp.Staged, 1)
	assert.Equal(t, generated.Staged[1].ID, resp.Staged[0].ID)
	assert.Equal(t, saves, repo.saveCount(), "discard is not persisted")

	_, err = svc.Discard(ctx, trainerID, generated.Staged[0].ID)
	assert.ErrorIs(t, err, ErrNotStaged)

	_, err = svc.Accept(ctx, trainerID, generated.Staged[0].ID)
	assert.ErrorIs(t, err, ErrNotStaged)
}

func TestTrainerService_Sell_UnknownRarityUsesDefault(t *testing.T) {
	repo := newMemoryRepository()
	trainerID := uuid.New()
	creatureID := uuid.New()
	repo.records[trainerID] = &models.TrainerRecord{
		TrainerID: trainerID,
		Tokens:    0,
		CollectedPokemon: []models.Creature{
			{ID: creatureID, Name: "Glitch", Rarity: models.Rarity("Z")},
		},
	}
	svc := newTestService(repo, &scriptedGenerator{})

	resp, err := svc.Sell(context.Background(), trainerID, creatureID)

	require.NoError(t, err)
	assert.True(t, resp.Sold)
	assert.Equal(t, 5, resp.Credited)
	assert.Equal(t, 5, resp.Tokens)
	assert.Empty(t, repo.stored(trainerID).CollectedPokemon)
}

func TestTrainerService_Sell_NotOwnedIsNoOp(t *testing.T) {
	repo := newMemoryRepository()
	trainerID := uuid.New()
	repo.records[trainerID] = &models.TrainerRecord{
		TrainerID:        trainerID,
		Tokens:           40,
		CollectedPokemon: []models.Creature{{ID: uuid.New(), Rarity: models.RarityB}},
	}
	svc := newTestService(repo, &scriptedGenerator{})

	resp, err := svc.Sell(context.Background(), trainerID, uuid.New())

	require.NoError(t, err)
	assert.False(t, resp.Sold)
	assert.Equal(t, 40, resp.Tokens)
	assert.Equal(t, 1, resp.CollectionSize)
	assert.Zero(t, repo.saveCount())
}

func TestTrainerService_Sell_StagedCreatureIsNotOwned(t *testing.T) {
	svc := newTestService(newMemoryRepository(), &scriptedGenerator{})
	ctx := context.Background()
	trainerID := uuid.New()

	generated, err := svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 1})
	require.NoError(t, err)

	resp, err := svc.Sell(ctx, trainerID, generated.Staged[0].ID)

	require.NoError(t, err)
	assert.False(t, resp.Sold)
	assert.Equal(t, 90, resp.Tokens)
}

func TestTrainerService_State_InitializesOnce(t *testing.T) {
	repo := &MockTrainerRepository{}
	trainerID := uuid.New()
	repo.On("Load", mock.Anything, trainerID).Return(nil, nil).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(r *models.TrainerRecord) bool {
		return r.TrainerID == trainerID && r.Tokens == 100 && len(r.CollectedPokemon) == 0
	})).Return(nil).Once()

	svc := NewTrainerService(repo, &scriptedGenerator{}, testEconomy(), zap.NewNop())

	for i := 0; i < 3; i++ {
		state, err := svc.State(context.Background(), trainerID)
		require.NoError(t, err)
		assert.Equal(t, 100, state.Tokens)
		assert.Equal(t, 10, state.Economy.GenerateCost)
		assert.Equal(t, 30, state.Economy.ResellValues[models.RaritySPlus])
	}

	repo.AssertExpectations(t)
}

func TestTrainerService_State_LoadFailure(t *testing.T) {
	repo := &MockTrainerRepository{}
	repo.On("Load", mock.Anything, mock.Anything).Return(nil, errors.New("database is down"))

	svc := NewTrainerService(repo, &scriptedGenerator{}, testEconomy(), zap.NewNop())

	_, err := svc.State(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrPersistenceUnavailable)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTrainerService_SaveFailureKeepsStateAndWarns(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &scriptedGenerator{rarities: []string{"S+"}})
	ctx := context.Background()
	trainerID := uuid.New()

	_, err := svc.State(ctx, trainerID)
	require.NoError(t, err)

	repo.failSave = true

	generated, err := svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.PersistenceWarning)
	assert.Equal(t, 90, generated.Tokens)

	accepted, err := svc.Accept(ctx, trainerID, generated.Staged[0].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, accepted.PersistenceWarning)
	assert.Equal(t, 1, accepted.CollectionSize)

	assert.Equal(t, 100, repo.stored(trainerID).Tokens)

	repo.failSave = false
	sold, err := svc.Sell(ctx, trainerID, generated.Staged[0].ID)
	require.NoError(t, err)
	assert.Empty(t, sold.PersistenceWarning)
	assert.Equal(t, 120, repo.stored(trainerID).Tokens)
}

func TestTrainerService_Collection(t *testing.T) {
	repo := newMemoryRepository()
	trainerID := uuid.New()
	repo.records[trainerID] = &models.TrainerRecord{
		TrainerID: trainerID,
		Tokens:    10,
		CollectedPokemon: []models.Creature{
			{ID: uuid.New(), Name: "Zephyrix", Rarity: models.RarityS, Timestamp: fixedNow.Add(-time.Hour)},
			{ID: uuid.New(), Name: "ashfang", Rarity: models.RarityF, Timestamp: fixedNow},
			{ID: uuid.New(), Name: "Brinelet", Rarity: models.RarityS, Timestamp: fixedNow.Add(-2 * time.Hour)},
		},
	}
	svc := newTestService(repo, &scriptedGenerator{})

	resp, err := svc.Collection(context.Background(), trainerID, ViewOptions{Sort: SortByName, Rarity: "S"})

	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Brinelet", resp.Items[0].Name)
	assert.Equal(t, "Zephyrix", resp.Items[1].Name)
	assert.Equal(t, 20, resp.Items[0].SellValue)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, []models.Rarity{models.RarityF, models.RarityS}, resp.AvailableRarities)
}

func TestTrainerService_ConcurrentGenerateNeverOverspends(t *testing.T) {
	repo := newMemoryRepository()
	trainerID := uuid.New()
	repo.records[trainerID] = &models.TrainerRecord{TrainerID: trainerID, Tokens: 50, CollectedPokemon: []models.Creature{}}
	svc := newTestService(repo, &scriptedGenerator{})

	var succeeded int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Generate(context.Background(), trainerID, models.GenerateRequest{Quantity: 2}); err == nil {
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), succeeded)
	assert.Equal(t, 10, repo.stored(trainerID).Tokens)
}

func TestTrainerService_EvictIdle(t *testing.T) {
	repo := newMemoryRepository()
	now := fixedNow
	svc := NewTrainerService(repo, &scriptedGenerator{}, testEconomy(), zap.NewNop(),
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	idle := uuid.New()
	active := uuid.New()

	_, err := svc.Generate(ctx, idle, models.GenerateRequest{Quantity: 1})
	require.NoError(t, err)

	now = fixedNow.Add(time.Hour)
	_, err = svc.State(ctx, active)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.ActiveSessions())

	evicted := svc.EvictIdle(fixedNow.Add(30 * time.Minute))

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, svc.ActiveSessions())

	// Owned state survives eviction, staging does not
	state, err := svc.State(ctx, idle)
	require.NoError(t, err)
	assert.Equal(t, 90, state.Tokens)
	assert.Empty(t, state.Staged)
}

// cancellingGenerator cancels the caller's request and still succeeds,
// like a client disconnecting right as the batch completes
type cancellingGenerator struct {
	cancel context.CancelFunc
}

func (g *cancellingGenerator) RequestOne(ctx context.Context, req GenerationRequest) (*GeneratedCreature, error) {
	g.cancel()
	return &GeneratedCreature{Name: "Latecomer", Rarity: "B", Image: "data:image/png;base64,AAAA"}, nil
}

// blockingGenerator holds the trainer session until released
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
}

func (g *blockingGenerator) RequestOne(ctx context.Context, req GenerationRequest) (*GeneratedCreature, error) {
	close(g.started)
	<-g.release
	return &GeneratedCreature{Name: "Slowpoke", Rarity: "F", Image: "data:image/png;base64,AAAA"}, nil
}

// stallingRepository never finishes a save before its context ends
type stallingRepository struct {
	*memoryRepository
	saveHadDeadline atomic.Bool
}

func (r *stallingRepository) Save(ctx context.Context, record *models.TrainerRecord) error {
	if _, ok := ctx.Deadline(); ok {
		r.saveHadDeadline.Store(true)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestTrainerService_SaveSurvivesCallerCancellation(t *testing.T) {
	repo := newMemoryRepository()
	trainerID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := newTestService(repo, &cancellingGenerator{cancel: cancel})

	resp, err := svc.Generate(ctx, trainerID, models.GenerateRequest{Quantity: 1})

	require.NoError(t, err)
	assert.Empty(t, resp.PersistenceWarning)
	assert.Equal(t, 90, resp.Tokens)
	require.NotNil(t, repo.stored(trainerID))
	assert.Equal(t, 90, repo.stored(trainerID).Tokens)
}

func TestTrainerService_SaveIsBoundedByPersistTimeout(t *testing.T) {
	repo := &stallingRepository{memoryRepository: newMemoryRepository()}
	svc := NewTrainerService(repo, &scriptedGenerator{}, testEconomy(), zap.NewNop(),
		WithClock(func() time.Time { return fixedNow }),
		WithPersistTimeout(20*time.Millisecond))

	resp, err := svc.State(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, persistenceWarning, resp.PersistenceWarning)
	assert.True(t, repo.saveHadDeadline.Load())
}

func TestTrainerService_WaitingCallerGivesUpOnCancel(t *testing.T) {
	repo := newMemoryRepository()
	trainerID := uuid.New()
	gen := &blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(repo, gen)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Generate(context.Background(), trainerID, models.GenerateRequest{Quantity: 1})
		done <- err
	}()
	<-gen.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Sell(ctx, trainerID, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)

	close(gen.release)
	require.NoError(t, <-done)

	state, err := svc.State(context.Background(), trainerID)
	require.NoError(t, err)
	assert.Equal(t, 90, state.Tokens)
	assert.Len(t, state.Staged, 1)
}

func TestTrainerService_Generate_LogsUnknownRarity(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewTrainerService(newMemoryRepository(), &scriptedGenerator{rarities: []string{"Z", "A"}}, testEconomy(), zap.New(core),
		WithClock(func() time.Time { return fixedNow }))

	resp, err := svc.Generate(context.Background(), uuid.New(), models.GenerateRequest{Quantity: 2})

	require.NoError(t, err)
	assert.Len(t, resp.Staged, 2)
	unknown := logs.FilterMessage("Generator returned unknown rarity").All()
	require.Len(t, unknown, 1)
	assert.Equal(t, "Z", unknown[0].ContextMap()["rarity"])
}
