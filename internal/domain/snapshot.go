package domain

import "time"

// EquitySnapshot captures account and engine state at one reconciliation pass.
// String fields avoid precision issues when rendered in UI layers.
type EquitySnapshot struct {
	Timestamp     time.Time `json:"ts"`
	Equity        string    `json:"equity"`
	NetProfit     string    `json:"net_profit"`
	OpenLots      int       `json:"open_lots"`
	PendingOrders int       `json:"pending_orders"`
}

// EquitySnapshotRecord bundles a snapshot with the log index it originated from.
type EquitySnapshotRecord struct {
	Index    uint64
	Snapshot EquitySnapshot
}
