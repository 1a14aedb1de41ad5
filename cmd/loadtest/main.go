package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mufasadev/transfers/internal/domain/models"
	"github.com/mufasadev/transfers/internal/usecases/dtos"
	"github.com/mufasadev/transfers/pkg/log"
)

const (
	workers  = 10
	duration = 30 * time.Second
)

var apiURL = fmt.Sprintf("http://%s:%s/v1/transactions", getEnv("API_URL", "localhost"), getEnv("API_PORT", "8080"))

var accounts = strings.Split(getEnv("LOADTEST_ACCOUNTS", "ES0001,ES0002,ES0003"), ",")

func main() {
	log.Init("transfers-loadtest", log.WithConsoleLogger())
	logger := log.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	client := resty.New().SetBaseURL(apiURL).SetTimeout(10 * time.Second)

	var wg sync.WaitGroup
	wg.Add(workers + 1)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				var res dtos.TransferResult
				resp, err := client.R().
					SetContext(ctx).
					SetBody(createTransfer()).
					SetResult(&res).
					SetError(&res).
					Post("/")
				switch {
				case err != nil && ctx.Err() == nil:
					logger.Error().Err(err).Msg("failed to send transfer")
				case err == nil:
					logger.Info().Int("code", resp.StatusCode()).Str("status", res.Status).Str("reason", res.Reason).Msg("transfer sent")
				}

				time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)
			}
		}()
	}

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				printHistory(client, accounts[0])
			}
		}
	}()

	wg.Wait()
	printHistory(client, accounts[0])
}

func createTransfer() dtos.TransferDTO {
	sender := accounts[rand.Intn(len(accounts))]
	receiver := accounts[rand.Intn(len(accounts))]

	// invalid requests are mixed in on purpose
	quantity := int64(rand.Intn(500) + 1)
	if rand.Float64() < 0.05 {
		quantity = -quantity
	}

	return dtos.TransferDTO{Sender: sender, Receiver: receiver, Quantity: quantity}
}

func printHistory(client *resty.Client, account string) {
	logger := log.GetLogger()

	var list []*models.Transaction
	resp, err := client.R().SetResult(&list).Get("/user/" + account)
	if err != nil {
		logger.Error().Err(err).Msg("failed to get history")
		return
	}
	if resp.IsError() {
		logger.Warn().Int("code", resp.StatusCode()).Msg("unexpected status for history")
		return
	}

	counts := map[models.Status]int{}
	for _, tx := range list {
		counts[tx.Status]++
	}
	logger.Info().
		Str("account", account).
		Int("total", len(list)).
		Int("completed", counts[models.StatusCompleted]).
		Int("failed", counts[models.StatusFailed]).
		Int("pending", counts[models.StatusPending]).
		Int("reverted", counts[models.StatusReverted]).
		Msg("history")
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
