package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0\u00a0₽"},
		{999, "999\u00a0₽"},
		{1000, "1\u00a0000\u00a0₽"},
		{79990, "79\u00a0990\u00a0₽"},
		{1234567, "1\u00a0234\u00a0567\u00a0₽"},
		{-1500, "-1\u00a0500\u00a0₽"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Money(tt.in), "Money(%d)", tt.in)
	}
}

func sampleOrder() *model.Order {
	return &model.Order{
		ID:            "241019-120000-AB12",
		CustomerName:  "Иван <script>",
		Phone:         "+79990001122",
		Method:        model.MethodCourier,
		Address:       "Москва, Тверская 1",
		Comment:       "после 18:00",
		Total:         179970,
		OrderStatus:   model.OrderStatusCreated,
		PaymentStatus: model.PaymentStatusUnpaid,
		Items: []model.OrderLine{
			{TitleSnapshot: "iPhone 15", OptionSnapshot: "Память: 128GB", PriceSnapshot: 79990, Qty: 2},
			{TitleSnapshot: "AirPods", PriceSnapshot: 19990, Qty: 1},
		},
	}
}

func TestNewOrderForAdmin(t *testing.T) {
	msg := NewOrderForAdmin(sampleOrder())

	assert.Equal(t, EventOrderCreated, msg.Event)
	assert.Contains(t, msg.Text, "🛒 Новый заказ")
	assert.Contains(t, msg.Text, "№ <b>241019-120000-AB12</b>")
	assert.Contains(t, msg.Text, "Иван &lt;script&gt;")
	assert.Contains(t, msg.Text, "Получение: <b>Курьер</b>")
	assert.Contains(t, msg.Text, "Адрес: <b>Москва, Тверская 1</b>")
	assert.Contains(t, msg.Text, "Комментарий: <i>после 18:00</i>")
	assert.Contains(t, msg.Text, "• iPhone 15 (Память: 128GB) × 2 = <b>159\u00a0980\u00a0₽</b>")
	assert.Contains(t, msg.Text, "• AirPods × 1 = <b>19\u00a0990\u00a0₽</b>")
	assert.True(t, strings.HasSuffix(msg.Text, "Итого: <b>179\u00a0970\u00a0₽</b>"))
}

func TestNewOrderForAdmin_PickupHasNoAddress(t *testing.T) {
	order := sampleOrder()
	order.Method = model.MethodPickup
	order.Comment = ""

	msg := NewOrderForAdmin(order)
	assert.Contains(t, msg.Text, "Получение: <b>Самовывоз</b>")
	assert.NotContains(t, msg.Text, "Адрес:")
	assert.NotContains(t, msg.Text, "Комментарий:")
}

func TestCustomerMessages(t *testing.T) {
	order := sampleOrder()

	accepted := OrderAccepted("Store 177", order)
	assert.Equal(t, "<b>Store 177</b>\nЗаявка принята ✅\nНомер заказа: <b>241019-120000-AB12</b>\nМенеджер скоро подтвердит.", accepted.Text)

	order.OrderStatus = model.OrderStatusConfirmed
	changed := StatusChanged("Store 177", order, true, false)
	assert.Contains(t, changed.Text, "Статус: <b>Подтверждён</b>")
	assert.NotContains(t, changed.Text, "Оплата:")

	order.PaymentStatus = model.PaymentStatusPaidCash
	paid := StatusChanged("Store 177", order, false, true)
	assert.Contains(t, paid.Text, "Оплата: <b>Оплачен наличными</b>")
	assert.NotContains(t, paid.Text, "Статус:")
}

func TestLowStockDigest(t *testing.T) {
	msg := LowStockDigest([]repository.LowStockItem{
		{Title: "iPhone 15", Options: "Память: 128GB", Stock: 1},
		{Title: "AirPods", Stock: 0},
	})
	assert.Equal(t, EventLowStock, msg.Event)
	assert.Contains(t, msg.Text, "• iPhone 15 (Память: 128GB): <b>1 шт.</b>")
	assert.Contains(t, msg.Text, "• AirPods: <b>0 шт.</b>")
}

func TestTelegramSender(t *testing.T) {
	var got sendMessageRequest
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	sender := NewTelegramSender(server.URL+"/", "TOKEN")
	err := sender.Notify(context.Background(), 42, Message{Text: "<b>hi</b>"})
	require.NoError(t, err)

	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "<b>hi</b>", got.Text)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.True(t, got.DisableWebPagePreview)
}

func TestTelegramSender_Failures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	err := NewTelegramSender(server.URL, "TOKEN").Notify(context.Background(), 1, Message{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")

	err = NewTelegramSender(server.URL, "").Notify(context.Background(), 1, Message{Text: "x"})
	assert.Error(t, err)
}

func TestMultiNotifier(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	record := func(name string, fail bool) Notifier {
		return Func(func(ctx context.Context, id int64, msg Message) error {
			mu.Lock()
			seen = append(seen, fmt.Sprintf("%s:%d", name, id))
			mu.Unlock()
			if fail {
				return fmt.Errorf("%s down", name)
			}
			return nil
		})
	}

	multi := NewMultiNotifier(record("tg", false), nil, record("feed", true))
	err := multi.Notify(context.Background(), 7, Message{Text: "x"})

	assert.EqualError(t, err, "feed down")
	assert.ElementsMatch(t, []string{"tg:7", "feed:7"}, seen)
}

func TestBroadcast_LogsAndContinues(t *testing.T) {
	var calls []int64
	n := Func(func(ctx context.Context, id int64, msg Message) error {
		calls = append(calls, id)
		if id == 1 {
			return fmt.Errorf("blocked")
		}
		return nil
	})

	Broadcast(context.Background(), n, []int64{1, 2, 3}, Message{Text: "x"})
	assert.Equal(t, []int64{1, 2, 3}, calls)

	Broadcast(context.Background(), nil, []int64{1}, Message{})
}
