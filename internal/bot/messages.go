package bot

// BOT MESSAGE TEXTS

import (
	"fmt"

	"shoeshop-bot/internal/storage"
)

const (
	msgWelcome          = "👟 Добро пожаловать в магазин обуви! Выберите бренд:"
	msgUseMenu          = "Выберите опцию из меню:"
	msgUnknownCommand   = "Неизвестная команда. Используйте /start для начала работы."
	msgBrandNotFound    = "Бренд не найден. Выберите бренд из меню."
	msgShoeNotFound     = "Модель не найдена. Выберите модель из меню."
	msgSizeNotFound     = "Размер не найден. Выберите размер из меню."
	msgColorNotFound    = "Цвет не найден. Выберите цвет из меню."
	msgSizeUnavailable  = "Этот размер недоступен для выбранной модели. Выберите размер из меню."
	msgColorUnavailable = "Этот цвет недоступен для выбранной модели. Выберите цвет из меню."
	msgBadPayment       = "Неизвестный способ оплаты. Выберите вариант из меню."
	msgEmptyAddress     = "Адрес не может быть пустым. Введите адрес доставки:"
	msgOrderFailed      = "Не удалось оформить заказ. Попробуйте ещё раз."
	msgInternalError    = "Ошибка при обработке запроса. Попробуйте ещё раз."
	msgRateLimited      = "Слишком много запросов. Попробуйте через минуту."

	msgHelp = `Доступные команды:
/start - Начать оформление заказа
/help - Показать эту справку

Если у вас возникли проблемы, свяжитесь с поддержкой.`
)

var paymentTitles = map[string]string{
	storage.PaymentCard: "банковской картой",
	storage.PaymentCash: "наличными курьеру",
}

var statusTitles = map[string]string{
	storage.StatusPending:    "Ожидает обработки",
	storage.StatusProcessing: "В обработке",
	storage.StatusShipped:    "Отправлен",
	storage.StatusDelivered:  "Доставлен",
	storage.StatusCancelled:  "Отменён",
}

func formatOrderConfirmation(order *storage.Order, shoe *storage.Shoe, color *storage.Color, size *storage.Size) string {
	return fmt.Sprintf(
		"✅ Заказ #%d успешно оформлен!\n\n"+
			"Модель: %s\n"+
			"Цвет: %s\n"+
			"Размер: %s\n"+
			"Цена: %d руб.\n\n"+
			"Адрес доставки: %s, подъезд %s, кв. %s\n"+
			"Способ оплаты: %s\n\n"+
			"Спасибо за заказ! Наш менеджер свяжется с вами для подтверждения.",
		order.ID,
		shoe.Name,
		color.Name,
		size.Value,
		shoe.Price,
		order.Address,
		order.Entrance.String,
		order.Apartment.String,
		paymentTitles[order.PaymentMethod],
	)
}

func formatOrderNotification(order *storage.Order, shoe *storage.Shoe, color *storage.Color, size *storage.Size) string {
	return fmt.Sprintf(
		"📦 Новый заказ #%d\n\n"+
			"Модель: %s\n"+
			"Цвет: %s\n"+
			"Размер: %s\n"+
			"Цена: %d руб.\n"+
			"──────────────────\n"+
			"Адрес: %s, подъезд %s, кв. %s\n"+
			"Оплата: %s\n"+
			"Статус: %s",
		order.ID,
		shoe.Name,
		color.Name,
		size.Value,
		shoe.Price,
		order.Address,
		order.Entrance.String,
		order.Apartment.String,
		paymentTitles[order.PaymentMethod],
		statusTitles[order.Status],
	)
}
