package handle

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/app/services"
	"weighline/internal/weighing/domain/dto"
	"weighline/internal/weighing/domain/models"
	"weighline/internal/xpkg/logger"
)

type ExcipientHandler struct {
	orderBook *services.OrderBook
	mylog     logger.Logger
}

func NewExcipientHandler(orderBook *services.OrderBook, mylog logger.Logger) *ExcipientHandler {
	return &ExcipientHandler{
		orderBook: orderBook,
		mylog:     mylog,
	}
}

// List serves the excipient table. Without ?order= the stored filter applies.
func (eh *ExcipientHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		automatic := false
		if raw := q.Get("automatic"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				writeErr(w, errBadQuery("automatic", raw))
				return
			}
			automatic = v
		}

		filter := q.Get("order")
		if filter == "" {
			filter = eh.orderBook.Filter()
		}

		view := eh.orderBook.View(filter, automatic)
		jsonResponse(w, http.StatusOK, dto.ExcipientsResponse{
			Filter:    filter,
			Automatic: automatic,
			Materials: excipientRows(view),
		})
	}
}

func (eh *ExcipientHandler) SetFilter() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.OrderFilterRequest
		if err := decodeBody(r, &req); err != nil {
			writeErr(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		eh.orderBook.SetFilter(ctx, req.Order)
		jsonResponse(w, http.StatusOK, req)
	}
}

func excipientRows(m models.Excipients) []dto.ExcipientRow {
	rows := make([]dto.ExcipientRow, 0, len(m))
	for _, name := range m.Names() {
		entry := m[name]
		rows = append(rows, dto.ExcipientRow{
			Material:      name,
			Total:         entry.Total,
			Automatic:     services.IsAutomatic(name),
			Contributions: entry.Contributions,
		})
	}
	return rows
}
