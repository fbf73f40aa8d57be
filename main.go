package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rcp-bridge/config"
	"rcp-bridge/console"
	"rcp-bridge/rcp/handler"
	"rcp-bridge/rcp/log"
	"rcp-bridge/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	args := config.ParseCommandLineArgs()

	cfg, err := config.LoadConfig(args.ConfigFile)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}
	cfg.ApplyCommandLineArgs(args)

	pollInterval, err := cfg.PollInterval()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}
	reconnectDelay, err := cfg.ReconnectDelay()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger, err := log.NewLogger(cfg.Log.Filename, cfg.Debug)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "log setup error: %v\n", err)
		return 1
	}
	log.SetLogger(logger)
	defer log.SetLogger(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGINT/SIGTERM end the process, SIGHUP rotates the log file.
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		fmt.Println("\nsignal received, shutting down...")
		cancel()
	}()

	rotateSignalCh := make(chan os.Signal, 1)
	signal.Notify(rotateSignalCh, syscall.SIGHUP)
	go func() {
		for {
			<-rotateSignalCh
			if err := log.GetLogger().Rotate(); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "log rotation error: %v\n", err)
			}
		}
	}()

	camera := handler.NewCameraHandler(ctx, handler.CameraHandlerOptions{
		Host:           cfg.Camera.Host,
		ClientName:     "rcp-bridge",
		ClientVersion:  "1.0",
		PollInterval:   pollInterval,
		ReconnectDelay: reconnectDelay,
	})
	defer func() {
		if err := camera.Close(); err != nil {
			fmt.Printf("error closing camera session: %v\n", err)
		}
	}()

	camera.StartMainLoop()
	camera.Connect()

	var ws *server.WebSocketServer
	if cfg.WebSocket.Enabled {
		ws = server.NewWebSocketServer(ctx, cfg.WebSocket.Addr, camera)
		ready := make(chan struct{})
		serverErrCh := make(chan error, 1)
		go func() {
			serverErrCh <- ws.Start(server.StartOptions{Ready: ready})
		}()
		select {
		case <-ready:
			fmt.Printf("WebSocket server listening on %s\n", cfg.WebSocket.Addr)
		case err := <-serverErrCh:
			_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			return 1
		}
		defer func() {
			if err := ws.Stop(); err != nil {
				fmt.Printf("error stopping server: %v\n", err)
			}
		}()
	}

	if cfg.Console.Enabled {
		console.ConsoleProcess(ctx, camera)
		return 0
	}

	// Headless mode: run until a signal arrives.
	<-ctx.Done()
	return 0
}
