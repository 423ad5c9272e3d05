package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/codeassist/internal/config"
)

var chatCmd = &cobra.Command{
	Use:   "chat [MESSAGE]",
	Short: "Chat with the assistant",
	Long: `Chat with the assistant. With MESSAGE, a single exchange is made;
otherwise an interactive prompt is started.

Interactive commands:
  /status   show the session summary
  /clear    forget the conversation and analyzed files
  /save     save the session now
  /quit     leave (also: exit, quit, Ctrl-D)

While chatting, the configuration file is watched and reported when it
changes. With --metrics-addr, Prometheus metrics are served at /metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

var (
	chatContext string
	metricsAddr string
)

func init() {
	chatCmd.Flags().StringVar(&chatContext, "context", "", "additional context for every message")
	chatCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 1 {
		reply, err := s.client.Chat(ctx, args[0], chatContext)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	if _, err := os.Stat(configPath); err == nil {
		go func() {
			err := config.Watch(ctx, configPath, func(cfg *config.Config) {
				fmt.Fprintf(os.Stderr, "\nconfiguration changed (model %s); restart the chat to apply it\n", cfg.Model.Name)
			}, s.logger)
			if err != nil {
				s.logger.Warn("not watching configuration", zap.Error(err))
			}
		}()
	}

	fmt.Printf("Session %s with %s. Type /quit to leave.\n", s.client.Session().ID(), s.cfg.Model.Name)
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "exit", "quit":
			return nil
		case "/status":
			sum := s.client.Session().Summary()
			fmt.Printf("%d messages, %d files\n", sum.MessageCount, sum.FileCount)
			continue
		case "/clear":
			s.client.Session().Clear()
			fmt.Println("Session cleared.")
			continue
		case "/save":
			if err := s.client.Session().Save(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			}
			continue
		}

		reply, err := s.client.Chat(ctx, line, chatContext)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
}
