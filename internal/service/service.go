// Package service реализует бизнес-логику сессий подбора и оценки букета.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/floristika/insumos-system/internal/allocation"
	"github.com/floristika/insumos-system/internal/costing"
	"github.com/floristika/insumos-system/internal/model"
	"github.com/floristika/insumos-system/internal/ordersys"
	"github.com/floristika/insumos-system/internal/terms"
)

// ErrSessionNotFound возвращается, если сессия не существует или уже завершена.
var ErrSessionNotFound = errors.New("session not found")

// Repository описывает контракт доступа к каталогу, используемый сервисом.
type Repository interface {
	Close() error
	GetProductConfiguration(ctx context.Context, productID int64) (*model.ProductConfiguration, error)
	GetContainerOptions(ctx context.Context) ([]model.ContainerOption, error)
}

// Submitter описывает контракт внешней системы оформления заказов.
type Submitter interface {
	SubmitOrder(ctx context.Context, sub *model.Submission) (*ordersys.Receipt, error)
}

// session — одна сессия редактирования черновика заказа. Конфигурация продукта
// и счётчики склада внутри неё — неизменяемый снимок на момент создания.
type session struct {
	id          string
	cfg         *model.ProductConfiguration
	containers  []model.ContainerOption
	sel         *model.Selection
	terms       *terms.Resolver
	lastTouched time.Time
}

// Service содержит реестр сессий редактирования и оркестрирует подбор,
// расчёт себестоимости и передачу заказа во внешнюю систему.
type Service struct {
	repo       Repository
	orders     Submitter
	margin     decimal.Decimal
	sessionTTL time.Duration
	termsTable terms.Table

	mu       sync.Mutex
	sessions map[string]*session
}

// NewService создаёт сервис с указанным репозиторием и клиентом системы оформления.
func NewService(repo Repository, orders Submitter, margin decimal.Decimal, sessionTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		orders:     orders,
		margin:     margin,
		sessionTTL: sessionTTL,
		termsTable: terms.DefaultTable(),
		sessions:   make(map[string]*session),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// CreateSession открывает сессию редактирования для продукта: читает рецепт и
// снимок склада, выполняет выбор по умолчанию и возвращает первичную оценку.
func (s *Service) CreateSession(ctx context.Context, productID int64) (*model.Quote, error) {
	cfg, err := s.repo.GetProductConfiguration(ctx, productID)
	if err != nil {
		return nil, err
	}

	var containers []model.ContainerOption
	if cfg.HasContainer {
		containers, err = s.repo.GetContainerOptions(ctx)
		if err != nil {
			return nil, err
		}
	}

	sess := &session{
		id:          uuid.NewString(),
		cfg:         cfg,
		containers:  containers,
		sel:         allocation.Initialize(cfg),
		terms:       terms.NewResolver(s.termsTable),
		lastTouched: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	return s.quote(sess), nil
}

// GetQuote возвращает текущую оценку сессии.
func (s *Service) GetQuote(sessionID string) (*model.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return s.quote(sess), nil
}

// ChooseFlower выбирает цветок для слота и возвращает пересчитанную оценку.
func (s *Service) ChooseFlower(sessionID string, slotID int64, sku string) (*model.Quote, error) {
	return s.mutate(sessionID, func(sess *session) error {
		return allocation.ChooseFlower(sess.cfg, sess.sel, slotID, sku)
	})
}

// SetQuantity задаёт количество для слота и возвращает пересчитанную оценку.
// Сырой ввод нормализуется, а не отклоняется.
func (s *Service) SetQuantity(sessionID string, slotID int64, raw string) (*model.Quote, error) {
	return s.mutate(sessionID, func(sess *session) error {
		return allocation.SetQuantity(sess.cfg, sess.sel, slotID, raw)
	})
}

// ChooseContainer выбирает ёмкость и возвращает пересчитанную оценку.
// Для продукта без требования ёмкости вызов ничего не меняет.
func (s *Service) ChooseContainer(sessionID string, sku string) (*model.Quote, error) {
	return s.mutate(sessionID, func(sess *session) error {
		if !sess.cfg.HasContainer {
			return nil
		}

		eligible := allocation.EligibleContainers(sess.cfg, sess.containers)
		found := false
		for _, c := range eligible {
			if c.SKU == sku {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: container %q is not eligible", allocation.ErrInvalidSelection, sku)
		}

		allocation.ChooseContainer(sess.cfg, sess.sel, sku)
		return nil
	})
}

// Containers возвращает ёмкости, допустимые для продукта сессии.
func (s *Service) Containers(sessionID string) ([]model.ContainerOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return allocation.EligibleContainers(sess.cfg, sess.containers), nil
}

// ResolveTerm выполняет автоматическое разрешение срока оплаты по категории
// клиента. Значение, введённое вручную в этой сессии, не перезаписывается.
func (s *Service) ResolveTerm(sessionID string, tier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}

	sess.lastTouched = time.Now()
	return sess.terms.Resolve(tier), nil
}

// SetManualTerm фиксирует срок оплаты, введённый вручную.
func (s *Service) SetManualTerm(sessionID string, days int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}

	sess.lastTouched = time.Now()
	return sess.terms.SetManual(days), nil
}

// Cancel завершает сессию без оформления. Снимать ничего не нужно:
// сессия не удерживает резервов на складе.
func (s *Service) Cancel(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}

	delete(s.sessions, sessionID)
	return nil
}

// Submit передаёт плоскую форму выбора во внешнюю систему оформления.
// Принятый заказ завершает сессию; отказ оставляет её нетронутой, чтобы
// пользователь мог заменить цветок и повторить.
func (s *Service) Submit(ctx context.Context, sessionID string) (*ordersys.Receipt, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	sub := s.flatten(sess)
	s.mu.Unlock()

	receipt, err := s.orders.SubmitOrder(ctx, sub)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	return receipt, nil
}

// StartSessionCleanup запускает фоновую очистку просроченных сессий.
func (s *Service) StartSessionCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.dropExpired(time.Now())
			}
		}
	}()
}

func (s *Service) dropExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if now.Sub(sess.lastTouched) > s.sessionTTL {
			delete(s.sessions, id)
		}
	}
}

func (s *Service) mutate(sessionID string, fn func(*session) error) (*model.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if err := fn(sess); err != nil {
		return nil, err
	}

	sess.lastTouched = time.Now()
	return s.quote(sess), nil
}

// quote строит производное представление сессии. Себестоимость всегда
// пересчитывается из текущего выбора и нигде не кэшируется.
func (s *Service) quote(sess *session) *model.Quote {
	cost := costing.Recompute(sess.cfg, sess.sel, sess.containers)

	q := &model.Quote{
		SessionID:      sess.id,
		ProductID:      sess.cfg.ProductID,
		Cost:           cost,
		SuggestedPrice: costing.SuggestSalePrice(cost.TotalCost, s.margin),
	}

	for i := range sess.cfg.ColorSlots {
		slot := &sess.cfg.ColorSlots[i]

		state := model.SlotState{
			SlotID:          slot.ID,
			ColorName:       slot.ColorName,
			StockSufficient: true,
		}

		if choice, ok := sess.sel.Slots[slot.ID]; ok {
			state.SKU = choice.SKU
			state.Quantity = choice.Quantity
			state.Resolved = true
			state.StockSufficient = allocation.StockSufficient(sess.cfg, sess.sel, slot.ID)
		}

		q.Slots = append(q.Slots, state)
	}

	if sess.sel.Container != nil {
		q.ContainerSKU = sess.sel.Container.SKU
	}

	return q
}

// flatten переводит выбор сессии в плоскую форму для внешней системы.
// Неразрешённые слоты не включаются; разрешённый слот с нулевым количеством
// остаётся в форме с нулевой стоимостью строки.
func (s *Service) flatten(sess *session) *model.Submission {
	sub := &model.Submission{}

	for i := range sess.cfg.ColorSlots {
		slot := &sess.cfg.ColorSlots[i]

		choice, ok := sess.sel.Slots[slot.ID]
		if !ok {
			continue
		}

		opt, ok := slot.Option(choice.SKU)
		if !ok {
			continue
		}

		qty := decimal.NewFromInt(int64(choice.Quantity))
		sub.FlowerLines = append(sub.FlowerLines, model.FlowerLine{
			SKU:       choice.SKU,
			ColorName: slot.ColorName,
			Quantity:  choice.Quantity,
			UnitCost:  opt.UnitCost,
			LineCost:  opt.UnitCost.Mul(qty),
		})
	}

	if sess.sel.Container != nil {
		for _, c := range sess.containers {
			if c.SKU == sess.sel.Container.SKU {
				qty := decimal.NewFromInt(int64(sess.sel.Container.Quantity))
				sub.ContainerLine = &model.ContainerLine{
					SKU:      c.SKU,
					Quantity: sess.sel.Container.Quantity,
					UnitCost: c.UnitCost,
					LineCost: c.UnitCost.Mul(qty),
				}
				break
			}
		}
	}

	return sub
}
