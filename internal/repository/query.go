package repository

import (
	"strings"

	"github.com/shopspring/decimal"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// toLowerLike prepares user input for a LOWER(col) LIKE '%...%' match.
func toLowerLike(s string) string {
	return likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// roundMoney restores cents on aggregated money. sqlite stores numeric
// columns as REAL, so its SUM carries binary float error.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
