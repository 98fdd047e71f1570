package main

import (
	"context"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/Tyrowin/chatrelay/internal/server"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("CHATRELAY_CONFIG"), "path to a config file (yaml, json or toml)")
	pflag.Parse()

	cfg := server.MustLoadConfig(*configPath)
	log := server.NewLogger(cfg.Log)

	log.WithFields(logrus.Fields{
		"port":     cfg.Port,
		"origins":  cfg.AllowedOrigins,
		"room":     cfg.Chat.DefaultRoom,
		"maxBytes": cfg.MaxMessageSize,
	}).Info("Starting chatrelay server...")

	srv := server.New(cfg, log)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"chatrelay": func(ctx context.Context) error {
				log.Info("Graceful shutdown initiated...")
				return srv.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Infof("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}
