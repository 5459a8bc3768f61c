package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/internal/app/repository"
)

// Money formats rubles the way ru-RU does: "79 990 ₽" with non-breaking spaces.
func Money(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteRune('\u00a0')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "\u00a0₽"
}

func esc(s string) string {
	return html.EscapeString(s)
}

// NewOrderForAdmin renders the "new order" card sent to every admin.
func NewOrderForAdmin(order *model.Order) Message {
	var b strings.Builder
	b.WriteString("<b>🛒 Новый заказ</b>\n")
	fmt.Fprintf(&b, "№ <b>%s</b>\n", esc(order.ID))
	fmt.Fprintf(&b, "Клиент: <b>%s</b>\n", esc(order.CustomerName))
	fmt.Fprintf(&b, "Телефон: <b>%s</b>\n", esc(order.Phone))
	fmt.Fprintf(&b, "Получение: <b>%s</b>\n", order.Method.Label())
	if order.Method == model.MethodCourier {
		fmt.Fprintf(&b, "Адрес: <b>%s</b>\n", esc(order.Address))
	}
	if order.Comment != "" {
		fmt.Fprintf(&b, "Комментарий: <i>%s</i>\n", esc(order.Comment))
	}

	b.WriteString("\n<b>Состав:</b>\n")
	for i, line := range order.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		title := esc(line.TitleSnapshot)
		if line.OptionSnapshot != "" {
			title += " (" + esc(line.OptionSnapshot) + ")"
		}
		fmt.Fprintf(&b, "• %s × %d = <b>%s</b>", title, line.Qty, Money(line.LineTotal()))
	}
	fmt.Fprintf(&b, "\n\nИтого: <b>%s</b>", Money(order.Total))

	return Message{Text: b.String(), Event: EventOrderCreated, Payload: order}
}

// OrderAccepted is the customer's confirmation that the order was received.
func OrderAccepted(storeName string, order *model.Order) Message {
	text := fmt.Sprintf("<b>%s</b>\nЗаявка принята ✅\nНомер заказа: <b>%s</b>\nМенеджер скоро подтвердит.",
		esc(storeName), esc(order.ID))
	return Message{Text: text, Event: EventStatusMessage}
}

// StatusChanged tells the customer which of the two statuses moved.
func StatusChanged(storeName string, order *model.Order, orderChanged, paymentChanged bool) Message {
	lines := []string{
		fmt.Sprintf("<b>%s</b>", esc(storeName)),
		fmt.Sprintf("Заказ <b>%s</b>", esc(order.ID)),
	}
	if orderChanged {
		lines = append(lines, fmt.Sprintf("Статус: <b>%s</b>", order.OrderStatus.Label()))
	}
	if paymentChanged {
		lines = append(lines, fmt.Sprintf("Оплата: <b>%s</b>", order.PaymentStatus.Label()))
	}
	lines = append(lines,
		fmt.Sprintf("Получение: <b>%s</b>", order.Method.Label()),
		fmt.Sprintf("Итого: <b>%s</b>", Money(order.Total)),
	)
	return Message{Text: strings.Join(lines, "\n"), Event: EventOrderUpdated, Payload: order}
}

// LowStockDigest lists variants that are about to sell out.
func LowStockDigest(items []repository.LowStockItem) Message {
	var b strings.Builder
	b.WriteString("<b>📦 Заканчивается товар</b>\n")
	for _, it := range items {
		title := esc(it.Title)
		if it.Options != "" {
			title += " (" + esc(it.Options) + ")"
		}
		fmt.Fprintf(&b, "\n• %s: <b>%d шт.</b>", title, it.Stock)
	}
	return Message{Text: b.String(), Event: EventLowStock, Payload: items}
}
