package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"secret-santa-bot/internal/service"
)

// GameHandler handles game management callbacks: details, invites, the
// roster, kicks, budget edits, deletion and the draw itself.
type GameHandler struct {
	games   *service.GameService
	dialogs *service.DialogService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(games *service.GameService, dialogs *service.DialogService) *GameHandler {
	return &GameHandler{games: games, dialogs: dialogs}
}

// HandleCreateGame starts the creation dialog.
func (h *GameHandler) HandleCreateGame(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if err := h.dialogs.StartCreate(context.Background(), sender.ID); err != nil {
		return c.Send(ErrorMessage(err))
	}
	return c.Edit("🎄 Как назовём игру? Напишите название (минимум два символа).")
}

// HandleJoinGame starts the join-by-code dialog.
func (h *GameHandler) HandleJoinGame(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if err := h.dialogs.StartJoin(context.Background(), sender.ID); err != nil {
		return c.Send(ErrorMessage(err))
	}
	return c.Edit("🔑 Отправьте код игры, который вам дал организатор.")
}

// HandleMyGames shows the games the user participates in.
func (h *GameHandler) HandleMyGames(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	games, err := h.games.ListByUser(context.Background(), sender.ID)
	if err != nil {
		return c.Send(ErrorMessage(err))
	}
	if len(games) == 0 {
		return c.Edit("📋 Вы пока не участвуете ни в одной игре.", BuildMainMenu())
	}
	return c.Edit("📋 Ваши игры:", BuildGamesList(games))
}

// HandleGameDetails shows one game's card.
func (h *GameHandler) HandleGameDetails(c tele.Context, gameID string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	game, err := h.games.Get(context.Background(), gameID)
	if err != nil {
		return c.Edit(ErrorMessage(err), BuildMainMenu())
	}
	return c.Edit(FormatGameDetails(game, sender.ID), BuildGameMenu(game, sender.ID), tele.ModeHTML)
}

// HandleInvite sends the forwardable invite message.
func (h *GameHandler) HandleInvite(c tele.Context, gameID string) error {
	game, err := h.games.Get(context.Background(), gameID)
	if err != nil {
		return c.Send(ErrorMessage(err))
	}
	return c.Send(FormatInvite(game, c.Bot().Me.Username), tele.ModeHTML)
}

// HandlePlayers shows the roster, with kick buttons for the organizer.
func (h *GameHandler) HandlePlayers(c tele.Context, gameID string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	game, roster, err := h.games.Roster(context.Background(), gameID)
	if err != nil {
		return c.Edit(ErrorMessage(err), BuildMainMenu())
	}
	text, markup := BuildPlayersList(game, roster, sender.ID)
	return c.Edit(text, markup, tele.ModeHTML)
}

// HandleKick removes a participant. Payload is "<game_id>:<user_id>".
func (h *GameHandler) HandleKick(c tele.Context, payload string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	gameID, rawUserID, ok := strings.Cut(payload, ":")
	if !ok {
		return nil
	}
	targetID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil {
		return nil
	}

	if err := h.games.Kick(ctx, gameID, sender.ID, targetID); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: ErrorMessage(err)})
	}

	game, err := h.games.Get(ctx, gameID)
	if err == nil {
		kickNotice := "🚪 Организатор исключил вас из игры «" + game.Name + "»."
		if _, err := c.Bot().Send(&tele.User{ID: targetID}, kickNotice); err != nil {
			log.Warn().Err(err).
				Str("game_id", gameID).
				Int64("user_id", targetID).
				Msg("failed to notify kicked player")
		}
	}

	return h.HandlePlayers(c, gameID)
}

// HandleStartGame runs the draw and notifies every participant.
func (h *GameHandler) HandleStartGame(c tele.Context, gameID string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	result, err := h.games.Distribute(ctx, gameID, sender.ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: ErrorMessage(err)})
	}

	failed := h.deliverAssignments(c.Bot(), result)

	summary := "🎉 Жеребьёвка проведена! Все участники получили имена своих подопечных."
	if failed > 0 {
		summary = "🎉 Жеребьёвка проведена! Но " + strconv.Itoa(failed) +
			" участников не получили сообщение: попросите их открыть чат с ботом и заглянуть в игру."
	}
	if err := c.Send(summary); err != nil {
		return err
	}
	return h.HandleGameDetails(c, gameID)
}

// deliverAssignments sends each giver their receiver. The draw stands no
// matter how many sends fail; the count is reported to the organizer.
func (h *GameHandler) deliverAssignments(b *tele.Bot, result *service.DistributionResult) int {
	failed := 0
	for _, notice := range result.Notices {
		msg := FormatAssignment(&notice, result.Game)
		if _, err := b.Send(&tele.User{ID: notice.GiverID}, msg, tele.ModeHTML); err != nil {
			failed++
			log.Warn().Err(err).
				Str("game_id", result.Game.ID).
				Int64("user_id", notice.GiverID).
				Msg("failed to deliver assignment")
		}
	}
	return failed
}

// HandleDelete asks for confirmation.
func (h *GameHandler) HandleDelete(c tele.Context, gameID string) error {
	game, err := h.games.Get(context.Background(), gameID)
	if err != nil {
		return c.Edit(ErrorMessage(err), BuildMainMenu())
	}
	return c.Edit(
		"🗑 Удалить игру «"+game.Name+"»? Все участники получат уведомление.",
		BuildDeleteConfirm(gameID),
	)
}

// HandleDeleteConfirm deletes the game and notifies the participants.
func (h *GameHandler) HandleDeleteConfirm(c tele.Context, gameID string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	game, err := h.games.Get(ctx, gameID)
	if err != nil {
		return c.Edit(ErrorMessage(err), BuildMainMenu())
	}

	toNotify, err := h.games.Delete(ctx, gameID, sender.ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: ErrorMessage(err)})
	}

	notice := "🗑 Организатор удалил игру «" + game.Name + "»."
	for _, userID := range toNotify {
		if _, err := c.Bot().Send(&tele.User{ID: userID}, notice); err != nil {
			log.Warn().Err(err).
				Str("game_id", gameID).
				Int64("user_id", userID).
				Msg("failed to notify player about deletion")
		}
	}

	return c.Edit("🗑 Игра удалена.", BuildMainMenu())
}

// HandleBudget starts the budget-edit dialog.
func (h *GameHandler) HandleBudget(c tele.Context, gameID string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if err := h.dialogs.StartBudgetEdit(context.Background(), sender.ID, gameID); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: ErrorMessage(err)})
	}
	return c.Edit("💰 Укажите новый бюджет, например 1500 или 99,50.")
}

// HandleWish starts the wish dialog.
func (h *GameHandler) HandleWish(c tele.Context, gameID string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if err := h.dialogs.StartWish(context.Background(), sender.ID, gameID); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: ErrorMessage(err)})
	}
	return c.Edit("🎁 Что бы вы хотели получить в подарок? Напишите пару слов.", BuildSkipKeyboard())
}

// HandleSkipWish skips the current wish step.
func (h *GameHandler) HandleSkipWish(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	result, err := h.dialogs.Skip(context.Background(), sender.ID)
	if err != nil {
		return c.Send(ErrorMessage(err))
	}

	switch result.Outcome {
	case service.OutcomeAskNotWanted:
		return c.Edit("🚫 А что точно не стоит дарить?", BuildSkipKeyboard())
	case service.OutcomeWishSaved:
		return c.Edit("✅ Пожелания сохранены!")
	default:
		return nil
	}
}

// HandleReceiver shows who the user is gifting.
func (h *GameHandler) HandleReceiver(c tele.Context, gameID string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	notice, err := h.games.Receiver(ctx, gameID, sender.ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: ErrorMessage(err)})
	}
	game, err := h.games.Get(ctx, gameID)
	if err != nil {
		return c.Send(ErrorMessage(err))
	}
	return c.Send(FormatAssignment(notice, game), tele.ModeHTML)
}
