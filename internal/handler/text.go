package handler

import (
	"context"

	tele "gopkg.in/telebot.v3"

	"secret-santa-bot/internal/service"
)

// TextHandler routes free-form text into the dialog state machine and
// renders whatever step it produced.
type TextHandler struct {
	dialogs *service.DialogService
}

// NewTextHandler creates a new TextHandler.
func NewTextHandler(dialogs *service.DialogService) *TextHandler {
	return &TextHandler{dialogs: dialogs}
}

// HandleText handles any non-command text message.
func (h *TextHandler) HandleText(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user := userFromSender(sender)
	result, err := h.dialogs.HandleText(ctx, user, c.Text())
	if err != nil {
		// Dialog errors are conversational: tell the user and let the
		// state machine decide whether the step stays open.
		return c.Send(ErrorMessage(err))
	}

	switch result.Outcome {
	case service.OutcomeAskBudget:
		return c.Send("💰 Отлично! Теперь укажите бюджет подарка, например 1500 или 99,50.")

	case service.OutcomeGameCreated:
		if err := c.Send("🎄 Игра создана! Отправьте друзьям приглашение из меню игры."); err != nil {
			return err
		}
		return c.Send(FormatGameDetails(result.Game, sender.ID), BuildGameMenu(result.Game, sender.ID), tele.ModeHTML)

	case service.OutcomeJoined:
		if result.OwnerToNotify != 0 {
			notifyOwner(c.Bot(), result.Game, user)
		}
		if err := c.Send("🎉 Вы присоединились к игре!"); err != nil {
			return err
		}
		return c.Send(FormatGameDetails(result.Game, sender.ID), BuildGameMenu(result.Game, sender.ID), tele.ModeHTML)

	case service.OutcomeBudgetChanged:
		if err := c.Send("💰 Бюджет обновлён: " + service.FormatBudget(result.Game.Budget)); err != nil {
			return err
		}
		return c.Send(FormatGameDetails(result.Game, sender.ID), BuildGameMenu(result.Game, sender.ID), tele.ModeHTML)

	case service.OutcomeAskNotWanted:
		return c.Send("🚫 А что точно не стоит дарить?", BuildSkipKeyboard())

	case service.OutcomeWishSaved:
		return c.Send("✅ Пожелания сохранены! Тайный Санта их обязательно учтёт.")

	default:
		// Not in a dialog. Nudge towards the menu instead of staying
		// silent.
		return c.Send("🎅 Я вас не понял. Выберите действие в меню.", BuildMainMenu())
	}
}
