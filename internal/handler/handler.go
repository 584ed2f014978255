// Package handler содержит HTTP-обработчики API сервиса флористики.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/floristika/insumos-system/internal/allocation"
	"github.com/floristika/insumos-system/internal/costing"
	"github.com/floristika/insumos-system/internal/model"
	"github.com/floristika/insumos-system/internal/ordersys"
	"github.com/floristika/insumos-system/internal/repository"
	"github.com/floristika/insumos-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateSession(ctx context.Context, productID int64) (*model.Quote, error)
	GetQuote(sessionID string) (*model.Quote, error)
	ChooseFlower(sessionID string, slotID int64, sku string) (*model.Quote, error)
	SetQuantity(sessionID string, slotID int64, raw string) (*model.Quote, error)
	ChooseContainer(sessionID string, sku string) (*model.Quote, error)
	Containers(sessionID string) ([]model.ContainerOption, error)
	ResolveTerm(sessionID string, tier string) (int, error)
	SetManualTerm(sessionID string, days int) (int, error)
	Submit(ctx context.Context, sessionID string) (*ordersys.Receipt, error)
	Cancel(sessionID string) error
}

// Handler реализует HTTP-обработчики API сервиса флористики.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

type createSessionRequest struct {
	ProductID int64 `json:"product_id"`
}

type slotStateResponse struct {
	SlotID          int64  `json:"slot_id"`
	ColorName       string `json:"color_name"`
	SKU             string `json:"sku,omitempty"`
	Quantity        int    `json:"quantity"`
	Resolved        bool   `json:"resolved"`
	StockSufficient bool   `json:"stock_sufficient"`
}

type marginResponse struct {
	Amount  decimal.Decimal  `json:"amount"`
	Percent *decimal.Decimal `json:"percent,omitempty"`
}

type quoteResponse struct {
	SessionID      string              `json:"session_id"`
	ProductID      int64               `json:"product_id"`
	Slots          []slotStateResponse `json:"slots"`
	ContainerSKU   string              `json:"container_sku,omitempty"`
	FlowerCost     decimal.Decimal     `json:"flower_cost"`
	ContainerCost  decimal.Decimal     `json:"container_cost"`
	TotalCost      decimal.Decimal     `json:"total_cost"`
	SuggestedPrice decimal.Decimal     `json:"suggested_price"`
	Margin         marginResponse      `json:"margin"`
}

func toQuoteResponse(q *model.Quote) quoteResponse {
	resp := quoteResponse{
		SessionID:      q.SessionID,
		ProductID:      q.ProductID,
		ContainerSKU:   q.ContainerSKU,
		FlowerCost:     q.Cost.FlowerCost,
		ContainerCost:  q.Cost.ContainerCost,
		TotalCost:      q.Cost.TotalCost,
		SuggestedPrice: q.SuggestedPrice,
	}

	m := costing.ComputeMargin(q.SuggestedPrice, q.Cost.TotalCost)
	resp.Margin = marginResponse{Amount: m.Amount, Percent: m.Percent}

	resp.Slots = make([]slotStateResponse, 0, len(q.Slots))
	for _, s := range q.Slots {
		resp.Slots = append(resp.Slots, slotStateResponse{
			SlotID:          s.SlotID,
			ColorName:       s.ColorName,
			SKU:             s.SKU,
			Quantity:        s.Quantity,
			Resolved:        s.Resolved,
			StockSufficient: s.StockSufficient,
		})
	}

	return resp
}

// CreateSession открывает сессию редактирования для продукта.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.ProductID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	q, err := h.service.CreateSession(r.Context(), req.ProductID)
	if err != nil {
		h.writeServiceError(w, err, "create session")
		return
	}

	h.writeJSON(w, http.StatusCreated, toQuoteResponse(q))
}

// GetQuote возвращает текущую оценку сессии.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.GetQuote(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeServiceError(w, err, "get quote")
		return
	}

	h.writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

type chooseFlowerRequest struct {
	SKU string `json:"sku"`
}

// ChooseFlower выбирает цветок для слота.
func (h *Handler) ChooseFlower(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.ParseInt(chi.URLParam(r, "slotID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req chooseFlowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SKU == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	q, err := h.service.ChooseFlower(chi.URLParam(r, "sessionID"), slotID, req.SKU)
	if err != nil {
		h.writeServiceError(w, err, "choose flower")
		return
	}

	h.writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

type setQuantityRequest struct {
	Quantity string `json:"quantity"`
}

// SetQuantity задаёт количество для слота. Любой ввод принимается
// и нормализуется: поле должно оставаться отзывчивым во время набора.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	slotID, err := strconv.ParseInt(chi.URLParam(r, "slotID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	q, err := h.service.SetQuantity(chi.URLParam(r, "sessionID"), slotID, req.Quantity)
	if err != nil {
		h.writeServiceError(w, err, "set quantity")
		return
	}

	h.writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

type chooseContainerRequest struct {
	SKU string `json:"sku"`
}

// ChooseContainer выбирает ёмкость для букета.
func (h *Handler) ChooseContainer(w http.ResponseWriter, r *http.Request) {
	var req chooseContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SKU == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	q, err := h.service.ChooseContainer(chi.URLParam(r, "sessionID"), req.SKU)
	if err != nil {
		h.writeServiceError(w, err, "choose container")
		return
	}

	h.writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

type containerResponse struct {
	SKU            string          `json:"sku"`
	Kind           string          `json:"kind"`
	Material       string          `json:"material"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	StockAvailable int             `json:"stock_available"`
}

// GetContainers возвращает ёмкости, допустимые для продукта сессии.
func (h *Handler) GetContainers(w http.ResponseWriter, r *http.Request) {
	containers, err := h.service.Containers(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeServiceError(w, err, "get containers")
		return
	}

	resp := make([]containerResponse, 0, len(containers))
	for _, c := range containers {
		resp = append(resp, containerResponse{
			SKU:            c.SKU,
			Kind:           c.Kind,
			Material:       c.Material,
			UnitCost:       c.UnitCost,
			StockAvailable: c.StockAvailable,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type termRequest struct {
	Tier string `json:"tier,omitempty"`
	Days *int   `json:"days,omitempty"`
}

type termResponse struct {
	Days int `json:"days"`
}

// SetTerm разрешает срок оплаты: по категории клиента автоматически
// либо вручную, если передано явное число дней. Ручное значение
// не перезаписывается последующими автоматическими разрешениями.
func (h *Handler) SetTerm(w http.ResponseWriter, r *http.Request) {
	var req termRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	var (
		days int
		err  error
	)
	if req.Days != nil {
		days, err = h.service.SetManualTerm(sessionID, *req.Days)
	} else {
		days, err = h.service.ResolveTerm(sessionID, req.Tier)
	}
	if err != nil {
		h.writeServiceError(w, err, "set term")
		return
	}

	h.writeJSON(w, http.StatusOK, termResponse{Days: days})
}

// Submit передаёт выбор сессии во внешнюю систему оформления заказов.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeServiceError(w, err, "submit")
		return
	}

	h.writeJSON(w, http.StatusOK, receipt)
}

// Cancel завершает сессию без оформления заказа.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(chi.URLParam(r, "sessionID")); err != nil {
		h.writeServiceError(w, err, "cancel session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

// writeServiceError переводит ошибки бизнес-логики в HTTP-статусы.
// Отказ внешней системы оформления передаётся клиенту дословно.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string) {
	var rejErr *ordersys.RejectionError
	if errors.As(err, &rejErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write(rejErr.Body)
		return
	}

	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, repository.ErrProductNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, allocation.ErrInvalidSelection):
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
	default:
		h.logger.Error(op+" error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
