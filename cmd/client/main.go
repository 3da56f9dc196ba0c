package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"guild-chat/client"
	"guild-chat/domain"
	"guild-chat/domain/envelope"
	"guild-chat/projection"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
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
	ServerURL    string `env:"CHAT_SERVER_URL,default=http://localhost:8080"`
	UserID       string `env:"CHAT_USER_ID,required=true"`
	Username     string `env:"CHAT_USERNAME,required=true"`
	Token        string `env:"CHAT_TOKEN"`
	HistoryLimit int    `env:"HISTORY_LIMIT,default=50"`
	LogLevel     string `env:"LOG_LEVEL,default=WARN"`
}

var (
	timeStyle   = color.New(color.FgGray)
	authorStyle = color.New(color.FgCyan, color.OpBold)
	selfStyle   = color.New(color.FgGreen, color.OpBold)
	alertStyle  = color.New(color.BgRed, color.FgWhite)
	errorStyle  = color.New(color.FgYellow)
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Termination signals (Ctrl+C)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chat := client.New(client.Config{
		BaseURL:      config.ServerURL,
		Identity:     domain.Identity{UserID: config.UserID, Username: config.Username},
		Token:        config.Token,
		HistoryLimit: config.HistoryLimit,
	}, log)
	defer func() { _ = chat.Close() }()

	// 3. History first, then the live connection
	timeline := projection.NewTimeline(projection.WithListener(func(msg envelope.Message) {
		fmt.Println(render(msg, config.UserID))
	}))

	history, err := chat.History(ctx)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not load history from %s: %w", config.ServerURL, err)
	}
	for _, msg := range history {
		fmt.Println(render(msg, config.UserID))
	}
	timeline.Load(history)

	if err := chat.Connect(ctx); err != nil {
		var authErr *client.AuthError
		if errors.As(err, &authErr) {
			return exitConfig, err
		}
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	fmt.Println(selfStyle.Sprintf(">>> Connected as %s (Ctrl+C to quit)", config.Username))

	// 4. Live messages
	errChan := make(chan error, 1)
	go func() {
		errChan <- chat.Receive(ctx, timeline, func(e envelope.Error) {
			fmt.Println(errorStyle.Sprintf("! %s (%s)", e.Message, e.Code))
		})
	}()

	// 5. Every stdin line is a message
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if err := chat.Send(line); err != nil {
				log.Debug("Send failed", "error", err)
				return
			}
		}
	}()

	// 6. Wait for Ctrl+C or a lost connection, there is no reconnection
	select {
	case <-ctx.Done():
		return exitOK, nil
	case err := <-errChan:
		if ctx.Err() != nil {
			return exitOK, nil
		}
		fmt.Println(alertStyle.Sprint(" Connection lost, restart the client to rejoin "))
		return exitRuntime, err
	}
}

func render(msg envelope.Message, self string) string {
	author := authorStyle
	if msg.SenderID == self {
		author = selfStyle
	}
	return fmt.Sprintf("%s %s %s",
		timeStyle.Sprintf("[%s]", msg.CreatedAt.Local().Format(time.TimeOnly)),
		author.Sprintf("%s:", msg.Username),
		msg.Content,
	)
}
