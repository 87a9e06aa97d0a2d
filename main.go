package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/gmbot/internal/adapters"
	"github.com/iamwavecut/gmbot/internal/adapters/llm/gemini"
	"github.com/iamwavecut/gmbot/internal/adapters/llm/openai"
	"github.com/iamwavecut/gmbot/internal/bot"
	"github.com/iamwavecut/gmbot/internal/config"
	"github.com/iamwavecut/gmbot/internal/db/sqlite"
	"github.com/iamwavecut/gmbot/internal/handlers/admin"
	"github.com/iamwavecut/gmbot/internal/handlers/chat"
	"github.com/iamwavecut/gmbot/internal/infra"
	"github.com/iamwavecut/gmbot/internal/lifecycle"
	"github.com/iamwavecut/gmbot/internal/moderation"
	"github.com/iamwavecut/gmbot/internal/observability"
	"github.com/iamwavecut/gmbot/internal/schedule"
)

func main() {
	cfg := config.Get()
	log.SetFormatter(&config.GmFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsEnabled {
		if err := observability.Init(ctx); err != nil {
			log.WithError(err).Fatalln("cant initialize observability")
		}
	}

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}

	if err := os.MkdirAll(cfg.DotPath, 0o700); err != nil {
		log.WithError(err).Fatalln("cant create work dir")
	}
	store, err := sqlite.NewSQLiteClient(ctx, cfg.DotPath, "gmbot.db")
	if err != nil {
		log.WithError(err).Fatalln("cant open store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Errorln("cant close store")
		}
	}()

	service := bot.NewService(botAPI, store)
	gateway := bot.NewGateway(botAPI)

	scheduler := schedule.NewRegistry()
	runtime := lifecycle.NewRuntime(scheduler)
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start runtime")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Errorln("unclean shutdown")
		}
	}()

	warnings := moderation.NewWarningTracker(store, service)
	restrictions := moderation.NewRestrictionMatrix(store)
	filters := moderation.NewKeywordFilterTable(store)
	classifier := moderation.NewClassifier()

	bot.RegisterUpdateHandler("admin", admin.NewAdmin(
		service, gateway, warnings, restrictions, filters, classifier, newAdvisor(cfg)))
	bot.RegisterUpdateHandler("moderator", chat.NewModerator(
		service, gateway, warnings, restrictions, filters, classifier, scheduler))
	bot.RegisterUpdateHandler("greeter", chat.NewGreeter(service, gateway, scheduler))
	bot.RegisterUpdateHandler("housekeeper", chat.NewHousekeeper(service, gateway, scheduler))

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60
	updateProcessor := bot.NewUpdateProcessor(service)

	updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		for {
			select {
			case err := <-errorChan:
				return err
			case update, ok := <-updateChan:
				if !ok {
					return nil
				}
				go infra.GoRecoverable(1, "process_update", func() {
					if err := updateProcessor.Process(groupCtx, &update); err != nil {
						log.WithError(err).Errorln("cant process update")
					}
				})
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
	})
	group.Go(func() error {
		select {
		case <-infra.MonitorExecutable(groupCtx):
			log.Errorln("executable file was modified, shutting down")
			cancel()
			return nil
		case <-groupCtx.Done():
			return nil
		}
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatalln("bot api get updates error")
	}
	log.Infoln("bye")
}

// newAdvisor builds the optional LLM second-opinion classifier. Without
// an API key the /classify command reports the denylist verdict only.
func newAdvisor(cfg config.Config) adapters.LLM {
	if cfg.Advisor.APIKey == "" {
		return nil
	}
	entry := log.WithField("component", "advisor")
	switch cfg.Advisor.Type {
	case "gemini":
		return gemini.NewGemini(cfg.Advisor.APIKey, cfg.Advisor.Model, entry)
	default:
		return openai.NewOpenAI(cfg.Advisor.APIKey, cfg.Advisor.Model, cfg.Advisor.BaseURL, entry)
	}
}
