package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// NewCalculatorTool returns the calculator descriptor
func NewCalculatorTool() Descriptor {
	return Descriptor{
		Name:           "calculator",
		Category:       CategoryCalculation,
		Description:    "Perform calculations",
		Keywords:       []string{"calculate", "compute", "math"},
		RequiredParams: []string{"expression"},
		Handler:        calculate,
	}
}

func calculate(_ context.Context, params map[string]any) (any, error) {
	expression, ok := params["expression"].(string)
	if n, isNum := toFloat(params["expression"]); !ok && isNum {
		expression, ok = strconv.FormatFloat(n, 'g', -1, 64), true
	}
	if !ok || strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("missing required parameter: expression")
	}

	result, err := Evaluate(expression, nil)
	if err != nil {
		return nil, fmt.Errorf("Invalid expression: %s (%v)", expression, err)
	}

	return map[string]any{
		"result":     result,
		"expression": expression,
	}, nil
}
