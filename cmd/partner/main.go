// Command partner is the delivery-partner device agent. It syncs the
// day's run sheet, streams position reports over the tracking socket
// while walking the route, and records delivery outcomes through the
// offline action queue so nothing is lost when connectivity drops.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"doodhly-fieldops/internal/core/config"
	"doodhly-fieldops/internal/core/httpclient"
	"doodhly-fieldops/internal/core/kv"
	"doodhly-fieldops/internal/core/logger"
	livehandler "doodhly-fieldops/internal/features/live/handler"
	"doodhly-fieldops/internal/features/outbox/adapters"
	outboxdomain "doodhly-fieldops/internal/features/outbox/domain"
	outboxservice "doodhly-fieldops/internal/features/outbox/service"
	"doodhly-fieldops/internal/features/outbox/storage"
	routingdomain "doodhly-fieldops/internal/features/routing/domain"

	"github.com/fasthttp/websocket"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Partner agent starting",
		zap.String("partner", cfg.Partner.ID),
		zap.String("device", cfg.Partner.DeviceID),
	)

	store, err := kv.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Failed to create device store", zap.Error(err))
	}
	defer store.Close()

	queue := storage.NewQueue(store, cfg.Partner.DeviceID)
	reconcileTimeout := time.Duration(cfg.Reconcile.TimeoutSeconds) * time.Second
	flusher := outboxservice.NewFlusher(
		queue,
		adapters.NewHTTPSubmitter(cfg.Reconcile.URL, reconcileTimeout),
		reconcileTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Drain any outcomes recorded during a previous, disconnected shift.
	flusher.SetConnected(ctx, true)

	stops, err := fetchRunSheet(ctx, cfg.Partner.APIURL, cfg.Partner.ID)
	if err != nil {
		l.Fatal("Failed to sync run sheet", zap.Error(err))
	}
	l.Info("Run sheet synced", zap.Int("stops", len(stops)))

	conn, err := dialTracking(cfg.Partner.APIURL)
	if err != nil {
		l.Fatal("Failed to open tracking socket", zap.Error(err))
	}
	defer conn.Close()

	if err := walkRoute(ctx, cfg, conn, queue, flusher, stops); err != nil {
		l.Error("Shift ended with error", zap.Error(err))
	}

	l.Info("Partner agent stopped")
}

// fetchRunSheet pulls the partner's cached run sheet from the API.
func fetchRunSheet(ctx context.Context, apiURL, partnerID string) ([]routingdomain.Stop, error) {
	client := httpclient.NewClient(10 * time.Second)

	url := fmt.Sprintf("%s/routes/%s", apiURL, partnerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build run-sheet request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("run-sheet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("run-sheet request returned status %d", resp.StatusCode)
	}

	var payload struct {
		Stops []map[string]interface{} `json:"stops"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode run sheet: %w", err)
	}

	stops := make([]routingdomain.Stop, 0, len(payload.Stops))
	for _, rec := range payload.Stops {
		stops = append(stops, routingdomain.StopFromRecord(rec))
	}
	return stops, nil
}

// dialTracking opens the WebSocket used for position reporting.
func dialTracking(apiURL string) (*websocket.Conn, error) {
	wsURL := strings.Replace(apiURL, "http", "ws", 1) + "/ws/track"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", wsURL, err)
	}
	return conn, nil
}

// walkRoute visits each stop in sequence, reporting positions along the
// way and queueing a delivery verification at every arrival. Socket
// failures flip the flusher to disconnected; outcomes keep accumulating
// locally and go out on the next reconnect.
func walkRoute(ctx context.Context, cfg *config.AppConfig, conn *websocket.Conn, queue *storage.Queue, flusher *outboxservice.Flusher, stops []routingdomain.Stop) error {
	interval := time.Duration(cfg.Partner.ReportIntervalSeconds) * time.Second
	speed := 5.6

	for _, stop := range stops {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !stop.HasValidCoordinates() {
			continue
		}

		err := conn.WriteJSON(livehandler.Frame{
			Event:      livehandler.EventReport,
			DeliveryID: stop.ID,
			PartnerID:  cfg.Partner.ID,
			Lat:        stop.Lat,
			Lng:        stop.Lng,
			Speed:      &speed,
			CapturedAt: time.Now().UTC(),
		})
		if err != nil {
			logger.Get().Warn("Position report failed, going offline", zap.Error(err))
			flusher.SetConnected(ctx, false)
		}

		// Record the outcome locally first; it only leaves the queue once
		// the reconciliation endpoint confirms it.
		action := outboxdomain.NewVerifyDelivery(stop.ID, verificationCode(stop), &stop.Lat, &stop.Lng)
		if err := queue.Enqueue(ctx, action); err != nil {
			return fmt.Errorf("failed to record outcome for stop %s: %w", stop.ID, err)
		}

		if err := flusher.Flush(ctx); err != nil && !errors.Is(err, outboxservice.ErrFlushInFlight) {
			logger.Get().Warn("Flush failed, outcomes remain queued", zap.Error(err))
			flusher.SetConnected(ctx, false)
		} else {
			flusher.SetConnected(ctx, true)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil
}

// verificationCode returns the doorstep code from the run-sheet entry,
// if the core platform supplied one.
func verificationCode(stop routingdomain.Stop) string {
	if code, ok := stop.Record["verification_code"].(string); ok {
		return code
	}
	return ""
}
