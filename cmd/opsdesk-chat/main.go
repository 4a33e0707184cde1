package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MikeSquared-Agency/opsdesk/internal/chat"
	"github.com/MikeSquared-Agency/opsdesk/internal/config"
	"github.com/MikeSquared-Agency/opsdesk/internal/terminal"
	"github.com/MikeSquared-Agency/opsdesk/internal/webhook"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if cfg.WebhookURL == "" {
		fmt.Fprintln(os.Stderr, "CHAT_WEBHOOK_URL is required")
		os.Exit(1)
	}

	fd := int(os.Stdout.Fd())
	display, err := terminal.NewDisplay(os.Stdout, terminal.Width(fd), terminal.IsTerminal(fd))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	o := chat.New(chat.Options{
		Config:    cfg.Chat(),
		Transport: webhook.NewClient(cfg.Webhook(), slog.Default()),
		Logger:    slog.Default(),
		Notifier:  display,
	})
	defer o.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	display.Render(o.State())
	fmt.Println("Commands: /file <path> | /remove | /clear | /exit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}

		if quit := handle(ctx, o, display, cfg.MaxFileBytes, strings.TrimSpace(line)); quit {
			return
		}
	}
}

// handle runs one input line and reports whether the session should end.
func handle(ctx context.Context, o *chat.Orchestrator, display *terminal.Display, maxBytes int64, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/exit", "/quit":
		return true
	case "/clear":
		o.Clear()
		display.Forget()
		display.Render(o.State())
		return false
	case "/remove":
		o.RemoveFile()
		fmt.Println("attachment removed")
		return false
	case "/file":
		f, err := readFile(strings.TrimSpace(arg), maxBytes)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return false
		}
		// Rejections are already shown through the notifier.
		if err := o.StageFile(f); err != nil && !isRejection(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		display.Render(o.State())
		return false
	}

	if _, err := o.Submit(ctx, line); err != nil {
		if !errors.Is(err, chat.ErrEmptySubmission) {
			fmt.Fprintln(os.Stderr, err)
		}
		return false
	}
	display.Render(o.State())
	return false
}

func isRejection(err error) bool {
	var rej *chat.Rejection
	return errors.As(err, &rej)
}

// readFile loads path and guesses its MIME type from the extension, then
// from the content. A file above maxBytes is not read: only its name and
// size are returned, which StageFile rejects as too large.
func readFile(path string, maxBytes int64) (chat.File, error) {
	if path == "" {
		return chat.File{}, errors.New("usage: /file <path>")
	}
	info, err := os.Stat(path)
	if err != nil {
		return chat.File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return chat.File{}, fmt.Errorf("%s is a directory", path)
	}
	if maxBytes <= 0 {
		maxBytes = chat.DefaultMaxFileBytes
	}
	name := filepath.Base(path)
	if info.Size() > maxBytes {
		return chat.File{Name: name, MimeType: mimeBase(mime.TypeByExtension(filepath.Ext(path))), Size: info.Size()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return chat.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return chat.File{
		Name:     name,
		MimeType: mimeBase(mimeType),
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}

// mimeBase strips parameters such as charset.
func mimeBase(mimeType string) string {
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		return base
	}
	return mimeType
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
