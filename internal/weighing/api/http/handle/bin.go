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

type BinHandler struct {
	binTracker *services.BinTracker
	mylog      logger.Logger
}

func NewBinHandler(binTracker *services.BinTracker, mylog logger.Logger) *BinHandler {
	return &BinHandler{
		binTracker: binTracker,
		mylog:      mylog,
	}
}

func (bh *BinHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, bh.binTracker.ListSortedByRemaining(bh.binTracker.Now()))
	}
}

func (bh *BinHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.AddBinRequest
		if err := decodeBody(r, &req); err != nil {
			bh.mylog.Action("parse_failed").Error("Failed to parse bin", err)
			writeErr(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		bin, err := bh.binTracker.AddBin(ctx, req.Number, req.Minutes, req.FullClean)
		if err != nil {
			writeErr(w, err)
			return
		}
		jsonResponse(w, http.StatusCreated, bin.StatusAt(bh.binTracker.Now()))
	}
}

func (bh *BinHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		if err := bh.binTracker.RemoveBin(ctx, r.PathValue("id")); err != nil {
			writeErr(w, err)
			return
		}
		jsonResponse(w, http.StatusNoContent, nil)
	}
}
