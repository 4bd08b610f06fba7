package simulation

import (
	"strconv"

	"github.com/efreitasn/dasim/internal/agent"
)

// LogSink is an append-only tabular log the simulation writes to.
type LogSink interface {
	SetHeader(header []string) error
	Write(row []any) error
	LastByKey(column string) (any, bool)
}

// Log names.
const (
	LogTrade           = "trade"
	LogBuyOrder        = "buyorder"
	LogSellOrder       = "sellorder"
	LogRejectBuyOrder  = "rejectbuyorder"
	LogRejectSellOrder = "rejectsellorder"
	LogProfit          = "profit"
	LogOHLC            = "ohlc"
	LogVolume          = "volume"
	LogEffalloc        = "effalloc"
)

var orderHeader = []string{"period", "t", "tp", "id", "x", "buyLimitPrice", "value", "sellLimitPrice", "cost"}

var fixedHeaders = map[string][]string{
	LogTrade:           {"period", "t", "tp", "price", "buyerAgentId", "buyerValue", "buyerProfit", "sellerAgentId", "sellerCost", "sellerProfit"},
	LogBuyOrder:        orderHeader,
	LogSellOrder:       orderHeader,
	LogRejectBuyOrder:  orderHeader,
	LogRejectSellOrder: orderHeader,
	LogOHLC:            {"period", "open", "high", "low", "close"},
	LogVolume:          {"period", "volume"},
	LogEffalloc:        {"period", "efficiencyOfAllocation"},
}

// LogNames lists the logs a run produces, in a stable order. The order
// logs are left out when withoutOrderLogs is set.
func LogNames(withoutOrderLogs bool) []string {
	names := []string{LogTrade}
	if !withoutOrderLogs {
		names = append(names, LogBuyOrder, LogSellOrder, LogRejectBuyOrder, LogRejectSellOrder)
	}
	return append(names, LogProfit, LogOHLC, LogVolume, LogEffalloc)
}

func isOrderLog(name string) bool {
	switch name {
	case LogBuyOrder, LogSellOrder, LogRejectBuyOrder, LogRejectSellOrder:
		return true
	}
	return false
}

// headerFor returns the header of a log. The profit log has one column
// per agent id, in pool order.
func headerFor(name string, agents []agent.Trader) []string {
	if name == LogProfit {
		h := make([]string, len(agents))
		for i, a := range agents {
			h[i] = strconv.Itoa(a.ID())
		}
		return h
	}
	return fixedHeaders[name]
}

// juicyPrices reads the previous period's extremes from the ohlc log.
type juicyPrices struct {
	ohlc LogSink
}

func (j juicyPrices) LastHigh() (float64, bool) { return j.last("high") }
func (j juicyPrices) LastLow() (float64, bool)  { return j.last("low") }

func (j juicyPrices) last(column string) (float64, bool) {
	if j.ohlc == nil {
		return 0, false
	}
	v, ok := j.ohlc.LastByKey(column)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// nullable returns v as a cell, or nil when ok is false.
func nullable(v float64, ok bool) any {
	if !ok {
		return nil
	}
	return v
}
