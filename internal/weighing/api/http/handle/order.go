package handle

import (
	"context"
	"net/http"
	"time"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/app/services"
	"weighline/internal/weighing/domain/dto"
	"weighline/internal/xpkg/logger"
)

type OrderHandler struct {
	orderBook *services.OrderBook
	mylog     logger.Logger
}

func NewOrderHandler(orderBook *services.OrderBook, mylog logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderBook: orderBook,
		mylog:     mylog,
	}
}

func (oh *OrderHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, oh.orderBook.Partition())
	}
}

func (oh *OrderHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.AddOrderRequest
		if err := decodeBody(r, &req); err != nil {
			oh.mylog.Action("parse_failed").Error("Failed to parse order", err)
			writeErr(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := oh.orderBook.AddOrder(ctx, req.Code)
		if err != nil {
			writeErr(w, err)
			return
		}
		jsonResponse(w, http.StatusCreated, order)
	}
}

func (oh *OrderHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := pathIndex(r)
		if err != nil {
			writeErr(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		if err := oh.orderBook.RemoveOrder(ctx, index); err != nil {
			writeErr(w, err)
			return
		}
		jsonResponse(w, http.StatusNoContent, nil)
	}
}

func (oh *OrderHandler) ToggleWeighed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := pathIndex(r)
		if err != nil {
			writeErr(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := oh.orderBook.ToggleWeighed(ctx, index)
		if err != nil {
			writeErr(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

func (oh *OrderHandler) AssignProductionOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := pathIndex(r)
		if err != nil {
			writeErr(w, err)
			return
		}
		var req dto.ProductionOrderRequest
		if err := decodeBody(r, &req); err != nil {
			oh.mylog.Action("parse_failed").Error("Failed to parse production order", err)
			writeErr(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := oh.orderBook.AssignProductionOrder(ctx, index, req.OpID, req.Bins)
		if err != nil {
			writeErr(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

func (oh *OrderHandler) AutoOP() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next, ok := oh.orderBook.NextAutoOP()
		jsonResponse(w, http.StatusOK, dto.AutoOPResponse{Active: ok, Next: next})
	}
}

func (oh *OrderHandler) SetAutoOP() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.AutoOPRequest
		if err := decodeBody(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		if err := oh.orderBook.SetAutoOPBase(req.Base); err != nil {
			writeErr(w, err)
			return
		}
		next, ok := oh.orderBook.NextAutoOP()
		jsonResponse(w, http.StatusOK, dto.AutoOPResponse{Active: ok, Next: next})
	}
}

func (oh *OrderHandler) ClearAutoOP() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oh.orderBook.ClearAutoOP()
		jsonResponse(w, http.StatusNoContent, nil)
	}
}
