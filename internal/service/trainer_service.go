package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shard-legends/hatchery-service/internal/models"
	"github.com/shard-legends/hatchery-service/internal/storage"
	"github.com/shard-legends/hatchery-service/pkg/metrics"
)

const persistenceWarning = "trainer data could not be saved; the latest change may be lost on restart"

// EconomyConfig константы экономики токенов
type EconomyConfig struct {
	InitialTokens      int
	GenerateCost       int
	MaxBatchSize       int
	DefaultResellValue int
	DefaultPrompt      string
}

// trainerSession состояние одного тренера в памяти. Каждая операция держит
// однослотовую блокировку, поэтому действия тренера применяются по одному.
type trainerSession struct {
	slot     chan struct{}
	record   *models.TrainerRecord
	staged   []models.Creature
	lastSeen time.Time
	evicted  bool
}

func newTrainerSession() *trainerSession {
	return &trainerSession{slot: make(chan struct{}, 1)}
}

// lock ждет сессию или сдается при отмене ctx
func (sess *trainerSession) lock(ctx context.Context) error {
	select {
	case sess.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sess *trainerSession) tryLock() bool {
	select {
	case sess.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

func (sess *trainerSession) unlock() {
	<-sess.slot
}

// TrainerService управляет балансами, коллекциями и списками ожидания
type TrainerService struct {
	repo      storage.TrainerRepository
	generator GenerationClient
	economy   EconomyConfig
	logger    *zap.Logger
	now       func() time.Time
	newID     func() uuid.UUID

	// persistTimeout ограничивает сохранение, отвязанное от контекста запроса
	persistTimeout time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*trainerSession
}

// Option настраивает TrainerService
type Option func(*TrainerService)

// WithClock подменяет time.Now для времени создания существ и активности сессий
func WithClock(now func() time.Time) Option {
	return func(s *TrainerService) { s.now = now }
}

// WithIDGenerator подменяет uuid.New для id существ
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *TrainerService) { s.newID = newID }
}

// WithPersistTimeout ограничивает каждое сохранение; ноль снимает ограничение
func WithPersistTimeout(timeout time.Duration) Option {
	return func(s *TrainerService) { s.persistTimeout = timeout }
}

func NewTrainerService(repo storage.TrainerRepository, generator GenerationClient, economy EconomyConfig, logger *zap.Logger, opts ...Option) *TrainerService {
	s := &TrainerService{
		repo:      repo,
		generator: generator,
		economy:   economy,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.New,
		sessions:  make(map[uuid.UUID]*trainerSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withSession выполняет fn под блокировкой сессии тренера. Если вызывающий
// уходит, не дождавшись блокировки, он получает ошибку контекста и fn не выполняется.
func (s *TrainerService) withSession(ctx context.Context, trainerID uuid.UUID, fn func(sess *trainerSession) error) error {
	for {
		s.mu.Lock()
		sess, ok := s.sessions[trainerID]
		if !ok {
			sess = newTrainerSession()
			s.sessions[trainerID] = sess
			metrics.ActiveSessions.Set(float64(len(s.sessions)))
		}
		s.mu.Unlock()

		if err := sess.lock(ctx); err != nil {
			return fmt.Errorf("wait for trainer session: %w", err)
		}
		if sess.evicted {
			// Сессию удалили между поиском и блокировкой, берем новую
			sess.unlock()
			continue
		}
		sess.lastSeen = s.now()
		err := fn(sess)
		sess.unlock()
		return err
	}
}

// ensureLoaded загружает или создает запись тренера один раз за сессию.
// Ошибка загрузки прерывает запрос, ошибка первого сохранения дает только предупреждение.
func (s *TrainerService) ensureLoaded(ctx context.Context, trainerID uuid.UUID, sess *trainerSession) (string, error) {
	if sess.record != nil {
		return "", nil
	}

	record, err := s.repo.Load(ctx, trainerID)
	if err != nil {
		metrics.RecordPersistenceFailure("load")
		s.logger.Error("Failed to load trainer record",
			zap.String("trainer_id", trainerID.String()),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}

	if record != nil {
		if record.CollectedPokemon == nil {
			record.CollectedPokemon = []models.Creature{}
		}
		sess.record = record
		return "", nil
	}

	sess.record = models.NewTrainerRecord(trainerID, s.economy.InitialTokens)
	s.logger.Info("Initialized new trainer",
		zap.String("trainer_id", trainerID.String()),
		zap.Int("tokens", s.economy.InitialTokens))

	return s.persist(ctx, sess), nil
}

// persist сохраняет запись сессии и вместо ошибки возвращает предупреждение.
// Состояние в памяти остается главным в любом случае. Сохранение переживает
// запрос: клиент, отключившийся после изменения, не должен его прервать.
func (s *TrainerService) persist(ctx context.Context, sess *trainerSession) string {
	saveCtx := context.WithoutCancel(ctx)
	if s.persistTimeout > 0 {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(saveCtx, s.persistTimeout)
		defer cancel()
	}

	if err := s.repo.Save(saveCtx, sess.record.Clone()); err != nil {
		metrics.RecordPersistenceFailure("save")
		s.logger.Error("Failed to persist trainer record",
			zap.String("trainer_id", sess.record.TrainerID.String()),
			zap.Error(err))
		return persistenceWarning
	}
	return ""
}

// Generate списывает quantity*cost и кладет новую партию в список ожидания.
// Если хотя бы один вызов генерации неудачен, ничего не меняется.
func (s *TrainerService) Generate(ctx context.Context, trainerID uuid.UUID, req models.GenerateRequest) (*models.GenerateResponse, error) {
	if req.Quantity < 1 || req.Quantity > s.economy.MaxBatchSize {
		return nil, fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidQuantity, s.economy.MaxBatchSize, req.Quantity)
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = s.economy.DefaultPrompt
	}

	var resp *models.GenerateResponse
	err := s.withSession(ctx, trainerID, func(sess *trainerSession) error {
		warning, err := s.ensureLoaded(ctx, trainerID, sess)
		if err != nil {
			return err
		}

		cost := req.Quantity * s.economy.GenerateCost
		if sess.record.Tokens < cost {
			metrics.RecordGenerationBatch("insufficient_tokens")
			return &InsufficientTokensError{Required: cost, Available: sess.record.Tokens}
		}

		results, err := s.generateBatch(ctx, trainerID, prompt, req.Seed, req.Quantity)
		if err != nil {
			metrics.RecordGenerationBatch("failed")
			return err
		}

		createdAt := s.now().UTC()
		batch := make([]models.Creature, len(results))
		for i, r := range results {
			batch[i] = models.Creature{
				ID:        s.newID(),
				Name:      r.Name,
				Rarity:    models.Rarity(r.Rarity),
				ImageURL:  r.Image,
				Timestamp: createdAt,
			}
			if !batch[i].Rarity.IsKnown() {
				s.logger.Warn("Generator returned unknown rarity",
					zap.String("trainer_id", trainerID.String()),
					zap.String("rarity", r.Rarity))
			}
			metrics.RecordCreature("generated", r.Rarity)
		}

		sess.record.Tokens -= cost
		sess.staged = batch
		metrics.RecordTokensSpent(cost)
		metrics.RecordGenerationBatch("success")

		if w := s.persist(ctx, sess); w != "" {
			warning = w
		}

		s.logger.Info("Generation batch staged",
			zap.String("trainer_id", trainerID.String()),
			zap.Int("quantity", req.Quantity),
			zap.Int("spent", cost),
			zap.Int("tokens", sess.record.Tokens))

		resp = &models.GenerateResponse{
			Staged:             copyCreatures(sess.staged),
			Tokens:             sess.record.Tokens,
			Spent:              cost,
			PersistenceWarning: warning,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// generateBatch выполняет quantity вызовов параллельно; первая ошибка отменяет
// остальные и возвращается единственной
func (s *TrainerService) generateBatch(ctx context.Context, trainerID uuid.UUID, prompt string, seed *int64, quantity int) ([]*GeneratedCreature, error) {
	results := make([]*GeneratedCreature, quantity)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < quantity; i++ {
		i := i
		req := GenerationRequest{Prompt: prompt, TrainerID: trainerID}
		if seed != nil {
			// Разные seed, чтобы партия с seed не дала одинаковых существ
			callSeed := *seed + int64(i)
			req.Seed = &callSeed
		}
		g.Go(func() error {
			creature, err := s.generator.RequestOne(gctx, req)
			if err != nil {
				return err
			}
			results[i] = creature
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			genErr = &GenerationError{Classification: GenerationUnknown, Message: err.Error(), cause: err}
		}
		s.logger.Warn("Generation batch failed",
			zap.String("trainer_id", trainerID.String()),
			zap.Int("quantity", quantity),
			zap.String("classification", string(genErr.Classification)),
			zap.Error(err))
		return nil, genErr
	}

	return results, nil
}

// Accept переносит существо из списка ожидания в конец коллекции
func (s *TrainerService) Accept(ctx context.Context, trainerID, creatureID uuid.UUID) (*models.AcceptResponse, error) {
	var resp *models.AcceptResponse
	err := s.withSession(ctx, trainerID, func(sess *trainerSession) error {
		warning, err := s.ensureLoaded(ctx, trainerID, sess)
		if err != nil {
			return err
		}

		idx := indexOfCreature(sess.staged, creatureID)
		if idx < 0 {
			return ErrNotStaged
		}
		if sess.record.IndexOf(creatureID) >= 0 {
			return ErrDuplicateItem
		}

		creature := sess.staged[idx]
		sess.staged = removeCreature(sess.staged, idx)
		sess.record.CollectedPokemon = append(sess.record.CollectedPokemon, creature)
		metrics.RecordCreature("accepted", string(creature.Rarity))

		if w := s.persist(ctx, sess); w != "" {
			warning = w
		}

		s.logger.Info("Creature accepted into collection",
			zap.String("trainer_id", trainerID.String()),
			zap.String("creature_id", creatureID.String()),
			zap.String("rarity", string(creature.Rarity)))

		resp = &models.AcceptResponse{
			Creature:           creature,
			Tokens:             sess.record.Tokens,
			CollectionSize:     len(sess.record.CollectedPokemon),
			Staged:             copyCreatures(sess.staged),
			PersistenceWarning: warning,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Discard удаляет существо из списка ожидания. Список не сохраняется, поэтому и удаление тоже.
func (s *TrainerService) Discard(ctx context.Context, trainerID, creatureID uuid.UUID) (*models.DiscardResponse, error) {
	var resp *models.DiscardResponse
	err := s.withSession(ctx, trainerID, func(sess *trainerSession) error {
		idx := indexOfCreature(sess.staged, creatureID)
		if idx < 0 {
			return ErrNotStaged
		}

		metrics.RecordCreature("discarded", string(sess.staged[idx].Rarity))
		sess.staged = removeCreature(sess.staged, idx)

		s.logger.Debug("Staged creature discarded",
			zap.String("trainer_id", trainerID.String()),
			zap.String("creature_id", creatureID.String()))

		resp = &models.DiscardResponse{
			Discarded: creatureID,
			Staged:    copyCreatures(sess.staged),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Sell удаляет существо из коллекции и начисляет цену продажи. Продажа
// чужого существа ничего не меняет и возвращает Sold=false.
func (s *TrainerService) Sell(ctx context.Context, trainerID, creatureID uuid.UUID) (*models.SellResponse, error) {
	var resp *models.SellResponse
	err := s.withSession(ctx, trainerID, func(sess *trainerSession) error {
		warning, err := s.ensureLoaded(ctx, trainerID, sess)
		if err != nil {
			return err
		}

		idx := sess.record.IndexOf(creatureID)
		if idx < 0 {
			resp = &models.SellResponse{
				Sold:               false,
				CreatureID:         creatureID,
				Tokens:             sess.record.Tokens,
				CollectionSize:     len(sess.record.CollectedPokemon),
				PersistenceWarning: warning,
			}
			return nil
		}

		creature := sess.record.CollectedPokemon[idx]
		value := models.ResellValue(creature.Rarity, s.economy.DefaultResellValue)
		sess.record.CollectedPokemon = removeCreature(sess.record.CollectedPokemon, idx)
		sess.record.Tokens += value
		metrics.RecordCreature("sold", string(creature.Rarity))
		metrics.RecordTokensCredited(value)

		if w := s.persist(ctx, sess); w != "" {
			warning = w
		}

		s.logger.Info("Creature sold",
			zap.String("trainer_id", trainerID.String()),
			zap.String("creature_id", creatureID.String()),
			zap.String("rarity", string(creature.Rarity)),
			zap.Int("credited", value))

		resp = &models.SellResponse{
			Sold:               true,
			CreatureID:         creatureID,
			Credited:           value,
			Tokens:             sess.record.Tokens,
			CollectionSize:     len(sess.record.CollectedPokemon),
			PersistenceWarning: warning,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// State возвращает снимок тренера, создавая его при первом обращении
func (s *TrainerService) State(ctx context.Context, trainerID uuid.UUID) (*models.TrainerStateResponse, error) {
	var resp *models.TrainerStateResponse
	err := s.withSession(ctx, trainerID, func(sess *trainerSession) error {
		warning, err := s.ensureLoaded(ctx, trainerID, sess)
		if err != nil {
			return err
		}

		resp = &models.TrainerStateResponse{
			TrainerID:          trainerID,
			Tokens:             sess.record.Tokens,
			Collection:         copyCreatures(sess.record.CollectedPokemon),
			Staged:             copyCreatures(sess.staged),
			Economy:            s.economyInfo(),
			PersistenceWarning: warning,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Collection возвращает отсортированную и отфильтрованную коллекцию
func (s *TrainerService) Collection(ctx context.Context, trainerID uuid.UUID, opts ViewOptions) (*models.CollectionResponse, error) {
	var owned []models.Creature
	err := s.withSession(ctx, trainerID, func(sess *trainerSession) error {
		if _, err := s.ensureLoaded(ctx, trainerID, sess); err != nil {
			return err
		}
		owned = copyCreatures(sess.record.CollectedPokemon)
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := BuildCollectionView(owned, opts.Sort, opts.Rarity)

	return &models.CollectionResponse{
		Sort:              string(opts.Sort),
		Rarity:            opts.Rarity,
		Items:             collectionEntries(view, s.economy.DefaultResellValue),
		Total:             len(owned),
		AvailableRarities: AvailableRarities(owned),
	}, nil
}

// EvictIdle удаляет сессии, не использованные с cutoff, и возвращает их число.
// Занятые сессии пропускаются до следующего прохода.
func (s *TrainerService) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for trainerID, sess := range s.sessions {
		if !sess.tryLock() {
			continue
		}
		if sess.lastSeen.Before(cutoff) {
			sess.evicted = true
			delete(s.sessions, trainerID)
			evicted++
		}
		sess.unlock()
	}

	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return evicted
}

// ActiveSessions количество тренеров в памяти
func (s *TrainerService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *TrainerService) economyInfo() models.EconomyInfo {
	return models.EconomyInfo{
		GenerateCost:       s.economy.GenerateCost,
		MaxBatchSize:       s.economy.MaxBatchSize,
		ResellValues:       models.ResellValues(),
		DefaultResellValue: s.economy.DefaultResellValue,
	}
}

func indexOfCreature(list []models.Creature, id uuid.UUID) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// removeCreature возвращает новый срез без list[idx]
func removeCreature(list []models.Creature, idx int) []models.Creature {
	out := make([]models.Creature, 0, len(list)-1)
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...)
}

func copyCreatures(list []models.Creature) []models.Creature {
	out := make([]models.Creature, len(list))
	copy(out, list)
	return out
}
