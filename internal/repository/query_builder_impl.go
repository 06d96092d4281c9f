package repository

import (
	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

type queryBuilderImpl struct {
	conditions  map[string]interface{}
	expressions []exp.Expression
}

func NewQueryBuilder() QueryBuilder {
	return &queryBuilderImpl{
		conditions: make(map[string]interface{}),
	}
}

func (q *queryBuilderImpl) AddCondition(key string, value interface{}) {
	q.conditions[key] = value
}

// AddExpression keeps conditions that cannot be expressed as column equality (ranges, ORs).
func (q *queryBuilderImpl) AddExpression(expression exp.Expression) {
	q.expressions = append(q.expressions, expression)
}

func (q *queryBuilderImpl) BuildConditions(aliases map[string]string) goqu.Ex {
	conditions := goqu.Ex{}
	for key, value := range q.conditions {
		if alias, ok := aliases[key]; ok {
			conditions[alias] = value
		} else {
			conditions[key] = value
		}
	}
	return conditions
}

func (q *queryBuilderImpl) Expressions() []exp.Expression {
	return q.expressions
}
