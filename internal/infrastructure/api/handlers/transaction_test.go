package handlers

import (
	"net/http"
	"testing"

	"github.com/mufasadev/transfers/internal/usecases/dtos"
	"github.com/mufasadev/transfers/internal/usecases/interactor"
	"github.com/stretchr/testify/assert"
)

func TestResultCode(t *testing.T) {
	tests := []struct {
		status string
		reason string
		code   int
	}{
		{dtos.ResultCompleted, "", http.StatusAccepted},
		{dtos.ResultReverted, "", http.StatusOK},
		{dtos.ResultDeleted, "", http.StatusOK},
		{dtos.ResultUpdated, "", http.StatusOK},
		{dtos.ResultNotReverted, interactor.ReasonTransactionNotCompleted, http.StatusConflict},
		{dtos.ResultInvalidTransition, "cannot move from reverted to completed", http.StatusBadRequest},
		{dtos.ResultFailed, interactor.ReasonInsufficientFunds, http.StatusBadRequest},
		{dtos.ResultFailed, interactor.ReasonReceiverNotFound, http.StatusBadRequest},
		{dtos.ResultFailed, interactor.ReasonServiceUnavailable, http.StatusServiceUnavailable},
		{dtos.ResultFailed, interactor.ReasonDeleteFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.code, resultCode(&dtos.TransferResult{Status: tt.status, Reason: tt.reason}))
		})
	}
}
