package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8000"`
	Room          string `env:"CHAT_ROOM,default=lobby"`
	Token         string `env:"CHAT_TOKEN,required=true"`
	Receiver      int64  `env:"CHAT_RECEIVER,default=0"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the room connection and announce ourselves.
	target := url.URL{Scheme: "ws", Host: config.ServerAddress, Path: "/ws/chat/" + url.PathEscape(config.Room) + "/"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", target.String(), err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	prompt := newPrompt(config.Token, config.Receiver)
	if err = conn.WriteJSON(prompt.join()); err != nil {
		return exitRuntime, fmt.Errorf("join failed: %w", err)
	}
	log.Info(fmt.Sprintf(">>> Connected to %s, room %q (/to <id>, /typing, /quit)", config.ServerAddress, config.Room))

	// 4. Print every inbound frame until the server closes the connection.
	closed := make(chan error, 1)
	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				closed <- err
				return
			}
			fmt.Println(render(payload))
		}
	}()

	// 5. Forward stdin lines as events.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteJSON(prompt.exit())
			return exitOK, nil
		case err := <-closed:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				_ = conn.WriteJSON(prompt.exit())
				return exitOK, nil
			}
			outbound, quit, err := prompt.handle(line)
			if err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
				continue
			}
			if outbound != nil {
				if err := conn.WriteJSON(outbound); err != nil {
					return exitRuntime, fmt.Errorf("send failed: %w", err)
				}
			}
			if quit {
				return exitOK, nil
			}
		}
	}
}

// frame mirrors every field the server may send back.
type frame struct {
	Type     string          `json:"type"`
	Message  string          `json:"message"`
	Sender   json.RawMessage `json:"sender"`
	Receiver json.RawMessage `json:"receiver"`
	Username string          `json:"username"`
}
