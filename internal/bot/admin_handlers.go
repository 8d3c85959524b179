package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"shoeshop-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleAdminCommand(ctx context.Context, chatID int64, cmd string, args []string) {
	if !b.isAdmin(chatID) {
		b.sendError(chatID, msgUnknownCommand)
		return
	}

	switch cmd {
	case "export":
		b.handleExportOrders(ctx, chatID)
	case "stats":
		b.handleOrderStats(ctx, chatID)
	case "status":
		if len(args) < 2 {
			b.sendError(chatID, "Использование: /status <ID_заказа> <новый_статус>")
			return
		}
		b.handleStatusUpdate(ctx, chatID, args[0], args[1])
	}
}

func (b *Bot) handleStatusUpdate(ctx context.Context, chatID int64, orderIDStr string, newStatus string) {
	orderID, err := strconv.ParseInt(orderIDStr, 10, 64)
	if err != nil {
		b.sendError(chatID, "Неверный формат ID заказа")
		return
	}

	if _, ok := statusTitles[newStatus]; !ok {
		b.sendError(chatID, "Недопустимый статус. Допустимые значения: pending, processing, shipped, delivered, cancelled")
		return
	}

	if err := b.storage.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
		b.logger.Error("Failed to update order status",
			zap.Int64("order_id", orderID),
			zap.String("status", newStatus),
			zap.Error(err))
		b.sendError(chatID, "Ошибка при обновлении статуса")
		return
	}

	b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"✅ Статус заказа #%d изменён на: %s", orderID, statusTitles[newStatus])))

	// Notify the customer if the order is still resolvable.
	order, err := b.storage.OrderByID(ctx, orderID)
	if err != nil {
		b.logger.Warn("Failed to load order for status notification",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return
	}
	userMsg := tgbotapi.NewMessage(order.ChatID, fmt.Sprintf(
		"ℹ️ Статус вашего заказа #%d изменён на: %s", orderID, statusTitles[newStatus]))
	if _, err := b.bot.Send(userMsg); err != nil {
		b.logger.Warn("Failed to notify user about status change",
			zap.Int64("chat_id", order.ChatID),
			zap.Error(err))
	}
}

// handleOrderStats shows aggregate order statistics.
func (b *Bot) handleOrderStats(ctx context.Context, chatID int64) {
	stats, err := b.storage.GetOrderStatistics(ctx)
	if err != nil {
		b.logger.Error("Failed to get order statistics", zap.Error(err))
		b.sendError(chatID, "Ошибка при получении статистики")
		return
	}

	msgText := fmt.Sprintf(
		"📊 *Статистика заказов*\n\n"+
			"📌 Всего заказов: %d\n"+
			"💰 Общая сумма: %d ₽\n"+
			"📅 За сегодня: %d\n"+
			"📅 За неделю: %d\n"+
			"📅 За месяц: %d\n\n"+
			"📌 По статусам:\n"+
			"🕐 Ожидают: %d\n"+
			"🔄 В обработке: %d\n"+
			"🚚 Отправлены: %d\n"+
			"✅ Доставлены: %d\n"+
			"❌ Отменены: %d",
		stats.TotalOrders,
		stats.TotalRevenue,
		stats.TodayOrders,
		stats.WeekOrders,
		stats.MonthOrders,
		stats.StatusCounts[storage.StatusPending],
		stats.StatusCounts[storage.StatusProcessing],
		stats.StatusCounts[storage.StatusShipped],
		stats.StatusCounts[storage.StatusDelivered],
		stats.StatusCounts[storage.StatusCancelled],
	)

	msg := tgbotapi.NewMessage(chatID, msgText)
	msg.ParseMode = "Markdown"
	b.sendMessage(msg)
}

func (b *Bot) handleExportOrders(ctx context.Context, chatID int64) {
	filename := fmt.Sprintf("orders_report_%s", time.Now().Format("20060102"))
	filepath, err := b.storage.ExportOrdersToExcel(ctx, filename)
	if err != nil {
		b.logger.Error("Failed to export orders", zap.Error(err))
		b.sendError(chatID, "Ошибка при экспорте заказов")
		return
	}

	msg := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(filepath))
	msg.Caption = "📊 Выгрузка заказов"

	if _, err := b.bot.Send(msg); err != nil {
		b.logger.Error("Failed to send Excel file", zap.Error(err))
		b.sendError(chatID, "Ошибка при отправке файла")
	}
}
