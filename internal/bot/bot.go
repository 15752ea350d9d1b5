// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"secret-santa-bot/internal/config"
	"secret-santa-bot/internal/handler"
	"secret-santa-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	games   *service.GameService
	dialogs *service.DialogService

	// Handlers
	menuHandler *handler.MenuHandler
	gameHandler *handler.GameHandler
	textHandler *handler.TextHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config        *config.Config
	GameService   *service.GameService
	DialogService *service.DialogService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:     teleBot,
		cfg:     deps.Config,
		games:   deps.GameService,
		dialogs: deps.DialogService,
	}

	b.menuHandler = handler.NewMenuHandler(deps.GameService, deps.DialogService)
	b.gameHandler = handler.NewGameHandler(deps.GameService, deps.DialogService)
	b.textHandler = handler.NewTextHandler(deps.DialogService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.menuHandler.HandleStart)
	b.bot.Handle("/help", b.menuHandler.HandleHelp)
	b.bot.Handle("/cancel", b.menuHandler.HandleCancel)

	// Free-form text feeds the dialog state machine
	b.bot.Handle(tele.OnText, b.textHandler.HandleText)

	// All inline buttons go through one router
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks by their data prefix.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")

	switch data {
	case handler.CallbackCreateGame:
		return b.gameHandler.HandleCreateGame(c)
	case handler.CallbackJoinGame:
		return b.gameHandler.HandleJoinGame(c)
	case handler.CallbackMyGames:
		return b.gameHandler.HandleMyGames(c)
	case handler.CallbackMenu:
		return b.menuHandler.HandleMenu(c)
	case handler.CallbackCancel:
		return b.menuHandler.HandleCancel(c)
	case handler.CallbackSkipWish:
		return b.gameHandler.HandleSkipWish(c)
	}

	if payload, ok := strings.CutPrefix(data, handler.CallbackGame); ok {
		return b.gameHandler.HandleGameDetails(c, payload)
	}
	if payload, ok := strings.CutPrefix(data, handler.CallbackInvite); ok {
		return b.gameHandler.HandleInvite(c, payload)
	}
	if payload, ok := strings.CutPrefix(data, handler.CallbackPlayers); ok {
		return b.gameHandler.HandlePlayers(c, payload)
	}
	if payload, ok := strings.CutPrefix(data, handler.CallbackKick); ok {
		return b.gameHandler.HandleKick(c, payload)
	}
	if payload, ok := strings.CutPrefix(data, handler.CallbackStart); ok {
		return b.gameHandler.HandleStartGame(c, payload)
	}
	if payload, ok := strings.CutPrefix(data, handler.CallbackDelete); ok {
		return b.gameHandler.HandleDelete(c, payload)
	}
	if payload, ok := strings.CutPrefix(data, handler.CallbackConfirm); ok {
		return b.gameHandler.HandleDeleteConfirm(c, payload)
	}
	if payload, ok := strings.CutPrefix(data, handler.CallbackBudget); ok {
		return b.gameHandler.HandleBudget(c, payload)
	}
	if payload, ok := strings.CutPrefix(data, handler.CallbackWish); ok {
		return b.gameHandler.HandleWish(c, payload)
	}
	if payload, ok := strings.CutPrefix(data, handler.CallbackReceiver); ok {
		return b.gameHandler.HandleReceiver(c, payload)
	}

	log.Debug().Str("data", data).Msg("unknown callback")
	return nil
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("starting bot")
	b.bot.Start()
}

// Stop gracefully stops the bot.
func (b *Bot) Stop() {
	log.Info().Msg("stopping bot")
	b.bot.Stop()
}
