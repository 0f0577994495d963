// Command redkv-server runs the RESP key-value server as a standalone
// process: it owns the listen address, the shared keyspace, and graceful
// shutdown on SIGINT/SIGTERM. Everything protocol- and keyspace-related
// lives in the redkv package; this file is just the bootstrap.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/devkeet/redkv"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "address to listen on")
	readTimeout := flag.Duration("read-timeout", 30*time.Second, "per-connection read timeout")
	writeTimeout := flag.Duration("write-timeout", 30*time.Second, "per-connection write timeout")
	idleTimeout := flag.Duration("idle-timeout", 120*time.Second, "idle connection timeout")
	maxConns := flag.Int("max-connections", 1000, "maximum concurrent connections")
	shutdownTimeout := flag.Duration("shutdown-timeout", 5*time.Second, "graceful shutdown deadline")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	redkv.Init()
	server := redkv.NewServerWithStore(*addr, redkv.Shared())
	server.Logger = logger
	server.ReadTimeout = *readTimeout
	server.WriteTimeout = *writeTimeout
	server.IdleTimeout = *idleTimeout
	server.MaxConnections = *maxConns

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting redkv-server", zap.String("addr", *addr))
	if err := server.Serve(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
