package models

// NotificationLine is the per-product summary included in the order
// confirmation sent to the operator.
type NotificationLine struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

// OrderNotification carries everything the operator confirmation needs. It is
// published to the notification queue and rendered into the email body.
type OrderNotification struct {
	OrderCode     string             `json:"order_code"`
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	Products      []NotificationLine `json:"products"`
	TotalPrice    float64            `json:"total_price"`
	Address       Address            `json:"address"`
	OrderDate     string             `json:"order_date"`
}
