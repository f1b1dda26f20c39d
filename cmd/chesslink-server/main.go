// Command chesslink-server is the deployment wrapper around the game
// core: it accepts websocket connections, assigns each a channel id,
// and feeds inbound messages to the action dispatcher.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hailam/chesslink/internal/api"
	"github.com/hailam/chesslink/internal/config"
	"github.com/hailam/chesslink/internal/engine"
	"github.com/hailam/chesslink/internal/push"
	"github.com/hailam/chesslink/internal/store"
)

// actionTimeout is the outer deadline for handling one inbound action.
const actionTimeout = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The service is fronted by its own origin checks in deployment;
	// the core accepts any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}

	db, err := store.OpenBadger(cfg.DataDir, cfg.GameTable, cfg.UserTable, cfg.UserChannelIndex)
	if err != nil {
		log.Fatal("opening store", zap.Error(err))
	}
	defer db.Close()

	hub := push.NewHub(log)
	dispatcher := api.New(db, hub, engine.NewAlphaBeta(), log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveChannel(w, r, log, hub, dispatcher)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
}

// serveChannel upgrades one websocket connection and pumps its
// messages through the dispatcher until it closes. A close without a
// leave-game triggers the disconnect sweep.
func serveChannel(w http.ResponseWriter, r *http.Request, log *zap.Logger, hub *push.Hub, dispatcher *api.Dispatcher) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	channelID := uuid.NewString()
	hub.Register(channelID, ws)

	defer func() {
		hub.Unregister(channelID)
		ws.Close()

		sweepCtx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := dispatcher.DisconnectChannel(sweepCtx, channelID); err != nil {
			log.Error("disconnect sweep failed",
				zap.String("channelId", channelID), zap.Error(err))
		}
	}()

	for {
		msgType, payload, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("channel read ended",
					zap.String("channelId", channelID), zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
		response := dispatcher.Handle(ctx, channelID, payload)
		cancel()

		if err := hub.Push(context.Background(), channelID, response.Encode()); err != nil {
			log.Warn("writing response failed",
				zap.String("channelId", channelID), zap.Error(err))
			return
		}
	}
}
