package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	orchestration "github.com/koscakluka/ema-ivr/core"
	"github.com/koscakluka/ema-ivr/core/notifications"
	"github.com/koscakluka/ema-ivr/core/speechtotext"
	"github.com/koscakluka/ema-ivr/core/speechtotext/cognitive"
	"github.com/koscakluka/ema-ivr/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-ivr/internal/config"
	"github.com/koscakluka/ema-ivr/internal/transport/httpapi"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve call events from the telephony transport over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	transcriber, err := newTranscriber(cfg.Transcription)
	if err != nil {
		return err
	}

	o := orchestration.NewOrchestrator(
		orchestration.WithTranscriber(transcriber),
		orchestration.WithTranscriptionOptions(speechtotext.WithLanguage(cfg.Transcription.Locale)),
		orchestration.WithNotifier(newNotifier(cfg.Notification)),
		orchestration.WithNotificationChannel(cfg.Notification.ChannelID, cfg.Notification.ServiceURL),
		orchestration.WithMessages(cfg.Messages),
	)
	defer o.Close()

	source := httpapi.NewServer()
	if err := o.Attach(source); err != nil {
		return fmt.Errorf("attach orchestrator: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           source.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", cfg.Listen)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintln(cmd.OutOrStdout(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newTranscriber(cfg config.Transcription) (speechtotext.Transcriber, error) {
	switch cfg.Backend {
	case config.BackendDeepgram:
		client, err := deepgram.NewTranscriptionClient(cfg.DeepgramAPIKey,
			deepgram.WithModel(cfg.DeepgramModel),
			deepgram.WithListenURL(cfg.DeepgramListenURL),
		)
		if err != nil {
			return nil, fmt.Errorf("create deepgram transcriber: %w", err)
		}
		return client, nil
	default:
		tokens, err := cognitive.NewSubscriptionTokenSource(cfg.SubscriptionKey, cognitive.WithTokenEndpoint(cfg.TokenEndpoint))
		if err != nil {
			return nil, fmt.Errorf("create token source: %w", err)
		}
		var opts []cognitive.Option
		if cfg.ContentType != "" {
			opts = append(opts, cognitive.WithContentType(cfg.ContentType))
		}
		client, err := cognitive.New(cfg.Endpoint, tokens, opts...)
		if err != nil {
			return nil, fmt.Errorf("create cognitive transcriber: %w", err)
		}
		return client, nil
	}
}

func newNotifier(cfg config.Notification) *notifications.Client {
	var tokens notifications.TokenSource
	if cfg.Token != "" {
		tokens = notifications.StaticToken(cfg.Token)
	}
	trusted := append([]string{cfg.ServiceURL}, cfg.TrustedServiceURLs...)
	return notifications.New(tokens, notifications.WithTrustedServiceURLs(trusted...))
}
