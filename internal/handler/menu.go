package handler

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"secret-santa-bot/internal/model"
	"secret-santa-bot/internal/service"
)

// MenuHandler handles /start, /help, /cancel and main menu navigation.
type MenuHandler struct {
	games   *service.GameService
	dialogs *service.DialogService
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(games *service.GameService, dialogs *service.DialogService) *MenuHandler {
	return &MenuHandler{games: games, dialogs: dialogs}
}

// userFromSender converts a Telegram sender into the stored user profile.
func userFromSender(sender *tele.User) *model.User {
	return &model.User{
		ID:       sender.ID,
		Username: sender.Username,
		FullName: strings.TrimSpace(sender.FirstName + " " + sender.LastName),
	}
}

// HandleStart handles /start. A deep-link payload is treated as an invite
// code and joins the game in one step.
func (h *MenuHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	// A fresh /start always drops whatever dialog was in progress.
	if err := h.dialogs.Cancel(ctx, sender.ID); err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("failed to clear session")
	}

	payload := ""
	if msg := c.Message(); msg != nil {
		payload = strings.TrimSpace(msg.Payload)
	}
	if payload != "" {
		return h.joinByInvite(ctx, c, payload)
	}

	return c.Send(msgWelcome, BuildMainMenu())
}

func (h *MenuHandler) joinByInvite(ctx context.Context, c tele.Context, code string) error {
	user := userFromSender(c.Sender())

	game, err := h.games.Join(ctx, code, user)
	if err != nil {
		return c.Send(ErrorMessage(err), BuildMainMenu())
	}

	if game.OwnerID != user.ID {
		notifyOwner(c.Bot(), game, user)
	}

	if err := c.Send("🎉 Вы присоединились к игре!"); err != nil {
		return err
	}
	return c.Send(FormatGameDetails(game, user.ID), BuildGameMenu(game, user.ID), tele.ModeHTML)
}

// notifyOwner tells the organizer someone joined. Delivery failure is
// logged and swallowed, the join itself already happened.
func notifyOwner(b *tele.Bot, game *model.Game, joined *model.User) {
	_, err := b.Send(
		&tele.User{ID: game.OwnerID},
		"🎉 "+joined.DisplayName()+" присоединился к игре «"+game.Name+"»!",
	)
	if err != nil {
		log.Warn().Err(err).
			Str("game_id", game.ID).
			Int64("owner_id", game.OwnerID).
			Msg("failed to notify owner about join")
	}
}

// HandleHelp handles /help.
func (h *MenuHandler) HandleHelp(c tele.Context) error {
	return c.Send(msgWelcome, BuildMainMenu())
}

// HandleCancel handles /cancel and unconditionally returns to the menu.
func (h *MenuHandler) HandleCancel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if err := h.dialogs.Cancel(context.Background(), sender.ID); err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("failed to clear session")
	}
	return c.Send("👌 Действие отменено.", BuildMainMenu())
}

// HandleMenu handles the back-to-menu button.
func (h *MenuHandler) HandleMenu(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if err := h.dialogs.Cancel(context.Background(), sender.ID); err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("failed to clear session")
	}
	return c.Edit(msgWelcome, BuildMainMenu())
}
