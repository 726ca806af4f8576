package domain

import "strings"

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Valid reports whether the side is one the engine understands.
func (s OrderSide) Valid() bool {
	return s == Buy || s == Sell
}

// OrderType represents how an order is priced.
type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
)

// Valid reports whether the order type is supported by the fill simulator.
func (t OrderType) Valid() bool {
	return t == Market || t == Limit
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusNew       OrderStatus = "NEW"
	StatusSubmitted OrderStatus = "SUBMITTED"
	StatusFilled    OrderStatus = "FILLED"
	StatusRejected  OrderStatus = "REJECTED"
)

// transitions lists the states reachable from each non-terminal state.
var transitions = map[OrderStatus][]OrderStatus{
	StatusNew:       {StatusSubmitted, StatusFilled, StatusRejected},
	StatusSubmitted: {StatusFilled, StatusRejected},
}

// Terminal reports whether no further transition is allowed from the status.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusRejected
}

// Valid reports whether the status is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNew, StatusSubmitted, StatusFilled, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
// Transitions only ever move forward; FILLED and REJECTED are absorbing.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseOrderStatus normalizes user input into an OrderStatus.
func ParseOrderStatus(s string) OrderStatus {
	return OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
}
