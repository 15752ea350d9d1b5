// Package handler provides Telegram bot command and callback handlers.
package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"secret-santa-bot/internal/model"
	"secret-santa-bot/internal/repository"
	"secret-santa-bot/internal/service"
)

// Callback data prefixes
const (
	CallbackCreateGame = "create_game"
	CallbackJoinGame   = "join_game"
	CallbackMyGames    = "my_games"
	CallbackMenu       = "menu"
	CallbackCancel     = "cancel"
	CallbackSkipWish   = "skip_wish"

	CallbackGame     = "game:"        // game:<id>
	CallbackInvite   = "invite:"      // invite:<id>
	CallbackPlayers  = "players:"     // players:<id>
	CallbackKick     = "kick:"        // kick:<id>:<user_id>
	CallbackStart    = "start_game:"  // start_game:<id>
	CallbackDelete   = "delete:"      // delete:<id>
	CallbackConfirm  = "confirm_del:" // confirm_del:<id>
	CallbackBudget   = "budget:"      // budget:<id>
	CallbackWish     = "wish:"        // wish:<id>
	CallbackReceiver = "receiver:"    // receiver:<id>
)

const msgWelcome = `🎅 Привет! Я помогу устроить Тайного Санту.

Создайте игру, отправьте друзьям ссылку-приглашение, а когда все соберутся, запустите жеребьёвку. Каждый узнает, кому он дарит подарок, и только это.`

// BuildMainMenu creates the main menu keyboard.
func BuildMainMenu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	createBtn := markup.Data("🎄 Создать игру", CallbackCreateGame)
	joinBtn := markup.Data("🔑 Ввести код игры", CallbackJoinGame)
	myBtn := markup.Data("📋 Мои игры", CallbackMyGames)

	markup.Inline(
		markup.Row(createBtn),
		markup.Row(joinBtn),
		markup.Row(myBtn),
	)
	return markup
}

// BuildGamesList creates a button per game, newest first.
func BuildGamesList(games []*model.Game) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	for _, game := range games {
		label := game.Name
		if game.Started {
			label = "🎁 " + label
		}
		btn := markup.Data(label, CallbackGame+game.ID)
		rows = append(rows, markup.Row(btn))
	}
	rows = append(rows, markup.Row(markup.Data("⬅️ В меню", CallbackMenu)))

	markup.Inline(rows...)
	return markup
}

// FormatGameDetails renders the game card shown from "my games".
func FormatGameDetails(game *model.Game, viewerID int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎄 <b>%s</b>\n\n", game.Name)
	fmt.Fprintf(&sb, "💰 Бюджет: %s\n", service.FormatBudget(game.Budget))
	fmt.Fprintf(&sb, "👥 Участников: %d\n", game.PlayerCount())
	if game.Started {
		sb.WriteString("🎁 Жеребьёвка проведена\n")
	} else {
		fmt.Fprintf(&sb, "🔑 Код игры: <code>%s</code>\n", game.ID)
	}
	if game.OwnerID == viewerID {
		sb.WriteString("\nВы организатор этой игры.")
	}
	return sb.String()
}

// BuildGameMenu creates the per-game keyboard. Organizers see management
// buttons, everyone sees the wish button until the draw and the receiver
// button after it.
func BuildGameMenu(game *model.Game, viewerID int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row

	if !game.Started {
		rows = append(rows, markup.Row(
			markup.Data("🎁 Мои пожелания", CallbackWish+game.ID),
		))
	} else {
		rows = append(rows, markup.Row(
			markup.Data("🎅 Кому я дарю?", CallbackReceiver+game.ID),
		))
	}

	rows = append(rows, markup.Row(
		markup.Data("👥 Участники", CallbackPlayers+game.ID),
	))

	if game.OwnerID == viewerID {
		if !game.Started {
			rows = append(rows, markup.Row(
				markup.Data("✉️ Пригласить", CallbackInvite+game.ID),
				markup.Data("💰 Изменить бюджет", CallbackBudget+game.ID),
			))
			rows = append(rows, markup.Row(
				markup.Data("🎲 Провести жеребьёвку", CallbackStart+game.ID),
			))
		}
		rows = append(rows, markup.Row(
			markup.Data("🗑 Удалить игру", CallbackDelete+game.ID),
		))
	}

	rows = append(rows, markup.Row(markup.Data("⬅️ В меню", CallbackMenu)))

	markup.Inline(rows...)
	return markup
}

// BuildPlayersList renders the roster with kick buttons for the organizer.
func BuildPlayersList(game *model.Game, roster []*model.User, viewerID int64) (string, *tele.ReplyMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Участники игры <b>%s</b>:\n\n", game.Name)
	for i, user := range roster {
		name := user.DisplayName()
		if user.ID == game.OwnerID {
			name += " 🎅"
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
	}

	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	if game.OwnerID == viewerID && !game.Started {
		for _, user := range roster {
			if user.ID == game.OwnerID {
				continue
			}
			rows = append(rows, markup.Row(markup.Data(
				"❌ "+user.DisplayName(),
				CallbackKick+game.ID+":"+strconv.FormatInt(user.ID, 10),
			)))
		}
	}
	rows = append(rows, markup.Row(markup.Data("⬅️ К игре", CallbackGame+game.ID)))
	markup.Inline(rows...)

	return sb.String(), markup
}

// BuildSkipKeyboard offers skipping the current wish step.
func BuildSkipKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("⏭ Пропустить", CallbackSkipWish)))
	return markup
}

// BuildDeleteConfirm asks the organizer to confirm deletion.
func BuildDeleteConfirm(gameID string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("🗑 Да, удалить", CallbackConfirm+gameID),
		markup.Data("⬅️ Нет", CallbackGame+gameID),
	))
	return markup
}

// FormatInvite renders the invite message with a deep link.
func FormatInvite(game *model.Game, botUsername string) string {
	link := fmt.Sprintf("https://t.me/%s?start=%s", botUsername, game.ID)
	return fmt.Sprintf(
		"✉️ Перешлите это сообщение друзьям:\n\n"+
			"Вас приглашают в игру «Тайный Санта» — <b>%s</b> (бюджет %s).\n"+
			"Присоединиться: %s\n\n"+
			"Или отправьте боту код игры: <code>%s</code>",
		game.Name, service.FormatBudget(game.Budget), link, game.ID,
	)
}

// FormatAssignment renders the message a giver receives after the draw.
func FormatAssignment(notice *service.AssignmentNotice, game *model.Game) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎲 Жеребьёвка в игре <b>%s</b> проведена!\n\n", game.Name)
	fmt.Fprintf(&sb, "🎅 Вы дарите подарок: <b>%s</b>\n", notice.Receiver.DisplayName())
	fmt.Fprintf(&sb, "💰 Бюджет: %s\n", service.FormatBudget(game.Budget))
	if notice.Wanted != "" {
		fmt.Fprintf(&sb, "\n🎁 Хочет получить: %s\n", notice.Wanted)
	}
	if notice.NotWanted != "" {
		fmt.Fprintf(&sb, "🚫 Точно не дарить: %s\n", notice.NotWanted)
	}
	sb.WriteString("\n🤫 Никому не рассказывайте!")
	return sb.String()
}

// ErrorMessage maps service and repository errors to user-facing text.
// Unknown errors get a generic apology so internals never leak into chat.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNameTooShort):
		return "✏️ Название должно быть не короче двух символов. Попробуйте ещё раз."
	case errors.Is(err, service.ErrBudgetNotANumber):
		return "🔢 Не получилось разобрать сумму. Напишите число, например 1500 или 99,50."
	case errors.Is(err, service.ErrBudgetNotPositive):
		return "💰 Бюджет должен быть больше нуля. Попробуйте ещё раз."
	case errors.Is(err, service.ErrBudgetTooLarge):
		return "💰 Слишком большая сумма. Укажите бюджет поскромнее."
	case errors.Is(err, service.ErrWishTooLong):
		return "✂️ Слишком длинный текст, сократите его, пожалуйста."
	case errors.Is(err, service.ErrTooFewPlayers):
		return "👥 Нужно хотя бы два участника, чтобы провести жеребьёвку."
	case errors.Is(err, service.ErrNotOwner):
		return "🔒 Это может делать только организатор игры."
	case errors.Is(err, service.ErrNotMember):
		return "🚪 Вы не участвуете в этой игре."
	case errors.Is(err, service.ErrCannotKickOwner):
		return "🎅 Организатора нельзя исключить из собственной игры."
	case errors.Is(err, service.ErrNotStarted):
		return "⏳ Жеребьёвка ещё не проводилась."
	case errors.Is(err, repository.ErrGameNotFound):
		return "🔍 Игра с таким кодом не найдена. Проверьте код и отправьте его ещё раз."
	case errors.Is(err, repository.ErrGameStarted):
		return "🎁 В этой игре уже прошла жеребьёвка, изменения невозможны."
	case errors.Is(err, repository.ErrAlreadyMember):
		return "✅ Вы уже участвуете в этой игре."
	case errors.Is(err, repository.ErrNotMember):
		return "🚪 Этот участник уже покинул игру."
	default:
		return "⚠️ Что-то пошло не так. Попробуйте ещё раз чуть позже."
	}
}
