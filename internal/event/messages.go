// Package event defines the wire contract between the gateway and the
// engine: command envelopes in, correlated reply messages out.
package event

import (
	"encoding/json"
	"fmt"
)

// Command types (gateway -> engine).
const (
	TypeCreateOrder   = "CREATE_ORDER"
	TypeCancelOrder   = "CANCEL_ORDER"
	TypeOnRamp        = "ON_RAMP"
	TypeGetDepth      = "GET_DEPTH"
	TypeGetOpenOrders = "GET_OPEN_ORDERS"
)

// Reply types (engine -> gateway).
const (
	TypeOrderPlaced    = "ORDER_PLACED"
	TypeOrderCancelled = "ORDER_CANCELLED"
	TypeDepth          = "DEPTH"
	TypeOpenOrders     = "OPEN_ORDERS"
	TypeOnRampAck      = "ON_RAMP_ACK"
)

// Envelope is one inbound command. Data stays raw until the dispatcher
// knows the type; prices and quantities travel as decimal strings.
type Envelope struct {
	Type          string          `json:"type"`
	CorrelationID string          `json:"correlationId"`
	Data          json.RawMessage `json:"data"`
}

// Decode unmarshals the envelope payload into the type's data struct.
func (e *Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type CreateOrderData struct {
	Market   string `json:"market"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Side     string `json:"side"`
	UserID   string `json:"userId"`
}

type CancelOrderData struct {
	OrderID string `json:"orderId"`
	Market  string `json:"market"`
}

type OnRampData struct {
	Amount string `json:"amount"`
	UserID string `json:"userId"`
	TxnID  string `json:"txnId"`
}

type GetDepthData struct {
	Market string `json:"market"`
}

type GetOpenOrdersData struct {
	UserID string `json:"userId"`
	Market string `json:"market"`
}

// Message is one outbound reply.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// OrderFill is the client-visible slice of a fill.
type OrderFill struct {
	Price   string `json:"price"`
	Qty     string `json:"qty"`
	TradeID uint64 `json:"tradeId"`
}

type OrderPlacedPayload struct {
	OrderID     string      `json:"orderId"`
	ExecutedQty string      `json:"executedQty"`
	Fills       []OrderFill `json:"fills"`
}

type OrderCancelledPayload struct {
	OrderID      string `json:"orderId"`
	ExecutedQty  string `json:"executedQty"`
	RemainingQty string `json:"remainingQty"`
}

// PriceLevel is a [price, quantity] pair, both decimal strings.
type PriceLevel [2]string

type DepthPayload struct {
	Market string       `json:"market"`
	Bids   []PriceLevel `json:"bids"`
	Asks   []PriceLevel `json:"asks"`
}

// OpenOrder is one live order in a GET_OPEN_ORDERS reply.
type OpenOrder struct {
	OrderID     string `json:"orderId"`
	Market      string `json:"market"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	Side        string `json:"side"`
	UserID      string `json:"userId"`
	ExecutedQty string `json:"executedQty"`
}

type OpenOrdersPayload []OpenOrder

type OnRampAckPayload struct {
	UserID string `json:"userId"`
	TxnID  string `json:"txnId"`
}
