package http_test

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/governance"
	httpserver "github.com/fyrsmithlabs/toolgate/internal/http"
	"go.uber.org/zap"
)

// ExampleServer shows how to start and stop the admin server.
func ExampleServer() {
	gov, err := governance.New()
	if err != nil {
		panic(err)
	}

	logger := zap.NewNop()
	server, err := httpserver.NewServer(gov, logger, &httpserver.Config{
		Host: "127.0.0.1",
		Port: 0,
	})
	if err != nil {
		panic(err)
	}

	done := make(chan error, 1)
	go func() { done <- server.Start() }()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	if err := <-done; err != nil {
		logger.Error("server error", zap.Error(err))
	}

	fmt.Println("Server started and stopped successfully")
	// Output: Server started and stopped successfully
}
