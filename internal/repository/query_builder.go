package repository

import (
	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

type QueryBuilder interface {
	AddCondition(key string, value interface{})
	AddExpression(expression exp.Expression)
	BuildConditions(aliases map[string]string) goqu.Ex
	Expressions() []exp.Expression
}
