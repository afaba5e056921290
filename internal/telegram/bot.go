package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tempo/internal/database"
	"tempo/internal/logger"
	"tempo/internal/services"
	"tempo/internal/utils"
)

type Bot struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	services *services.ServiceManager
	handlers map[string]func(context.Context, *tgbotapi.Message)
	log      logger.Logger
}

func NewBot(token string, chatID int64, serviceManager *services.ServiceManager, log logger.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания бота: %w", err)
	}

	bot := &Bot{
		bot:      botAPI,
		chatID:   chatID,
		services: serviceManager,
		handlers: make(map[string]func(context.Context, *tgbotapi.Message)),
		log:      log,
	}

	bot.registerHandlers()
	log.Infof("🤖 Бот инициализирован: %s", botAPI.Self.UserName)
	return bot, nil
}

func (b *Bot) registerHandlers() {
	b.handlers["/start"] = b.handleStart
	b.handlers["/help"] = b.handleHelp
	b.handlers["/today"] = b.handleToday
	b.handlers["/plan"] = b.handlePlan
	b.handlers["/in"] = b.handleClockIn
	b.handlers["/out"] = b.handleClockOut
	b.handlers["/miss"] = b.handleMiss
	b.handlers["/dismiss"] = b.handleDismiss
	b.handlers["/delete"] = b.handleDelete
	b.handlers["/report"] = b.handleReport
	b.handlers["/week"] = b.handleWeek
	b.handlers["/copy"] = b.handleCopyWeek
	b.handlers["/categories"] = b.handleCategories
	b.handlers["/format"] = b.handleTimeFormat
	b.handlers["/notify"] = b.handleNotify
	b.handlers["/backup"] = b.handleBackup
}

func (b *Bot) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.bot.Send(msg)
	return err
}

// SendActivityReminder присылает напоминание с кнопками clock in / пропустить.
func (b *Bot) SendActivityReminder(a database.Activity) error {
	use12h := b.use12h(context.Background())
	message := fmt.Sprintf(
		"🔔 <b>%s</b>\n\n"+
			"⏰ %s – %s (%s)",
		a.Title,
		utils.FormatTimeDisplay(a.StartTime, use12h),
		utils.FormatTimeDisplay(a.EndTime, use12h),
		utils.FormatDuration(a.PlannedDurationMin),
	)

	msg := tgbotapi.NewMessage(b.chatID, message)
	msg.ParseMode = "HTML"
	msg.ReplyMarkup = activityKeyboard(a.ID)
	_, err := b.bot.Send(msg)
	return err
}

// SendMissedActivities отправляет объединенное сообщение о пропущенных занятиях
func (b *Bot) SendMissedActivities(activities []database.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	return b.SendMessage(formatMissed(activities, b.use12h(context.Background())))
}

func activityKeyboard(activityID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Начать", "clockin_"+activityID),
			tgbotapi.NewInlineKeyboardButtonData("➖ Пропустить", "dismiss_"+activityID),
		),
	)
}

func sessionKeyboard(sessionID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏹ Завершить", "clockout_"+sessionID),
		),
	)
}

func (b *Bot) GetUsername() string {
	return b.bot.Self.UserName
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	if update.Message.Chat.ID != b.chatID {
		b.log.Warnf("⛔ Сообщение из чужого чата %d", update.Message.Chat.ID)
		return
	}

	b.handleMessage(ctx, update.Message)
}

// handleMessage обрабатывает текстовые сообщения
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	command := "/" + msg.Command()
	if handler, exists := b.handlers[command]; exists {
		handler(ctx, msg)
		return
	}
	b.SendMessageOrLogError("❌ Неизвестная команда. Используйте /help")
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.bot.Request(tgbotapi.NewCallback(callback.ID, "✅")); err != nil {
			b.log.Warnf("⚠️ Telegram callback error: %v", err)
		}
	}()

	if callback.Message == nil || callback.Message.Chat.ID != b.chatID {
		return
	}

	data := callback.Data
	b.log.Debugf("Received callback: %s", data)

	switch {
	case strings.HasPrefix(data, "clockin_"):
		b.clockIn(ctx, strings.TrimPrefix(data, "clockin_"))
	case strings.HasPrefix(data, "dismiss_"):
		b.dismiss(ctx, strings.TrimPrefix(data, "dismiss_"))
		b.safeDeleteMessage(callback.Message.MessageID)
	case strings.HasPrefix(data, "clockout_"):
		b.clockOut(ctx, strings.TrimPrefix(data, "clockout_"))
		b.safeDeleteMessage(callback.Message.MessageID)
	}
}

// safeDeleteMessage удаляет сообщение, ошибки только логируются
func (b *Bot) safeDeleteMessage(messageID int) {
	if _, err := b.bot.Request(tgbotapi.NewDeleteMessage(b.chatID, messageID)); err != nil {
		b.log.Warnf("⚠️ Ошибка при удалении сообщения %d: %v", messageID, err)
	}
}

func (b *Bot) sendDocument(name string, data []byte) error {
	doc := tgbotapi.NewDocument(b.chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	_, err := b.bot.Send(doc)
	return err
}

func (b *Bot) sendWithKeyboard(text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "HTML"
	msg.ReplyMarkup = keyboard
	if _, err := b.bot.Send(msg); err != nil {
		b.log.Errorf("❌ Ошибка отправки: %v", err)
	}
}

func (b *Bot) use12h(ctx context.Context) bool {
	prefs, err := b.services.Preferences.Preferences(ctx)
	if err != nil {
		return true
	}
	return prefs.TimeFormat == "12h"
}
