package report

import "strings"

// Direction is the side of the ledger a transaction type contributes to.
type Direction int

const (
	// Unclassified types are excluded from every total.
	Unclassified Direction = iota
	Income
	Expense
)

func (d Direction) String() string {
	switch d {
	case Income:
		return "income"
	case Expense:
		return "expense"
	default:
		return "unclassified"
	}
}

var (
	incomeTypeNames  = map[string]bool{"ingreso": true, "income": true, "revenue": true}
	expenseTypeNames = map[string]bool{"gasto": true, "expense": true, "cost": true}
)

// Classify maps a transaction type name to a Direction, ignoring case and surrounding spaces.
func Classify(typeName string) Direction {
	name := normalizeTypeName(typeName)
	switch {
	case incomeTypeNames[name]:
		return Income
	case expenseTypeNames[name]:
		return Expense
	default:
		return Unclassified
	}
}

func normalizeTypeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
