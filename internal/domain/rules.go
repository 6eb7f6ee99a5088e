package domain

import "github.com/shopspring/decimal"

// SymbolRules holds exchange-mandated quantization rules for one symbol.
// They are best-effort aids for avoiding rejected orders; staleness is
// tolerated.
type SymbolRules struct {
	Symbol   string
	StepSize decimal.Decimal
	TickSize decimal.Decimal
	MinQty   decimal.Decimal
	MaxQty   decimal.Decimal
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
}
