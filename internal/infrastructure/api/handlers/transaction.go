package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mufasadev/transfers/internal/domain/models"
	"github.com/mufasadev/transfers/internal/errors"
	http2 "github.com/mufasadev/transfers/internal/infrastructure/api/http"
	"github.com/mufasadev/transfers/internal/usecases/dtos"
	"github.com/mufasadev/transfers/internal/usecases/interactor"
	"github.com/mufasadev/transfers/pkg/log"
	"github.com/rs/zerolog"
)

const readTimeout = 5 * time.Second

type TransactionHandler struct {
	interactor *interactor.TransactionInteractor
	logger     *zerolog.Logger
}

func NewTransactionHandler(interactor *interactor.TransactionInteractor) *TransactionHandler {
	logger := log.GetLogger()
	return &TransactionHandler{interactor: interactor, logger: &logger}
}

// Create starts a transfer and answers with the saga outcome.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto dtos.TransferDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.logger.Error().Err(err).Msg(errors.ErrFailedDecodeRequestBody)
		errors.HandleHTTPError(w, errors.NewBadRequestError(errors.ErrInvalidRequestBody))
		return
	}

	res, err := h.interactor.Create(r.Context(), &dto)
	if err != nil {
		h.logger.Error().Err(err).Msg(errors.ErrFailedProcessTransaction)
		errors.HandleHTTPError(w, err)
		return
	}

	writeJSON(w, resultCode(res), res)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	transaction, err := h.interactor.Get(ctx, chi.URLParam(r, http2.TransactionIDParam))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get transaction")
		errors.HandleHTTPError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transaction)
}

func (h *TransactionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.RoleAny)
}

func (h *TransactionHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.RoleSent)
}

func (h *TransactionHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.RoleReceived)
}

func (h *TransactionHandler) list(w http.ResponseWriter, r *http.Request, role models.Role) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	userID := chi.URLParam(r, http2.UserIDParam)
	list, err := h.interactor.ListByParticipant(ctx, userID, role)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list transactions")
		errors.HandleHTTPError(w, err)
		return
	}
	if len(list) == 0 {
		errors.HandleHTTPError(w, errors.NewNotFoundError(errors.ErrNoTransactionsForUser))
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// Revert returns the funds of a completed transfer to the sender.
func (h *TransactionHandler) Revert(w http.ResponseWriter, r *http.Request) {
	res, err := h.interactor.Revert(r.Context(), chi.URLParam(r, http2.TransactionIDParam))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to revert transaction")
		errors.HandleHTTPError(w, err)
		return
	}

	writeJSON(w, resultCode(res), res)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.interactor.Delete(r.Context(), chi.URLParam(r, http2.TransactionIDParam))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to delete transaction")
		errors.HandleHTTPError(w, err)
		return
	}

	writeJSON(w, resultCode(res), res)
}

// UpdateStatus sets the status of a transfer by hand.
func (h *TransactionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var dto dtos.StatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.logger.Error().Err(err).Msg(errors.ErrFailedDecodeRequestBody)
		errors.HandleHTTPError(w, errors.NewBadRequestError(errors.ErrInvalidRequestBody))
		return
	}
	if dto.Status == "" {
		errors.HandleHTTPError(w, errors.NewBadRequestError(errors.ErrStatusRequired))
		return
	}

	res, err := h.interactor.UpdateStatus(r.Context(), chi.URLParam(r, http2.TransactionIDParam), dto.Status)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to update transaction status")
		errors.HandleHTTPError(w, err)
		return
	}

	writeJSON(w, resultCode(res), res)
}

// resultCode maps a saga outcome onto a response status.
func resultCode(res *dtos.TransferResult) int {
	switch res.Status {
	case dtos.ResultCompleted:
		return http.StatusAccepted
	case dtos.ResultReverted, dtos.ResultDeleted, dtos.ResultUpdated:
		return http.StatusOK
	case dtos.ResultNotReverted:
		return http.StatusConflict
	}
	if res.Reason == interactor.ReasonServiceUnavailable {
		return http.StatusServiceUnavailable
	}
	if res.Reason == interactor.ReasonDeleteFailed {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
