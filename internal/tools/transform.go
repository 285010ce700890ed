package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NewDataTransformerTool returns the data transformer descriptor
func NewDataTransformerTool() Descriptor {
	return Descriptor{
		Name:           "data_transformer",
		Category:       CategoryData,
		Description:    "Transform data: filter, map, sort or aggregate a list of values",
		Keywords:       []string{"transform", "filter", "map", "process data"},
		RequiredParams: []string{"data", "operation"},
		Handler:        transformData,
	}
}

func transformData(_ context.Context, params map[string]any) (any, error) {
	data, ok := params["data"].([]any)
	if !ok {
		return nil, fmt.Errorf("data must be a list")
	}
	operation, _ := params["operation"].(string)
	operation = strings.ToLower(strings.TrimSpace(operation))

	switch operation {
	case "", "identity":
		return map[string]any{"result": data}, nil
	case "filter":
		condition, _ := params["condition"].(string)
		keep, err := parseCondition(condition)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(data))
		for _, item := range data {
			n, ok := toFloat(item)
			if ok && keep(n) {
				out = append(out, item)
			}
		}
		return map[string]any{"result": out}, nil
	case "map":
		expression, _ := params["expression"].(string)
		if strings.TrimSpace(expression) == "" {
			return nil, fmt.Errorf("map operation requires an expression")
		}
		out := make([]any, 0, len(data))
		for i, item := range data {
			n, ok := toFloat(item)
			if !ok {
				return nil, fmt.Errorf("item %d is not a number", i)
			}
			v, err := Evaluate(expression, map[string]float64{"x": n})
			if err != nil {
				return nil, fmt.Errorf("map item %d: %w", i, err)
			}
			out = append(out, v)
		}
		return map[string]any{"result": out}, nil
	case "sort":
		nums, err := toFloats(data)
		if err != nil {
			return nil, err
		}
		sort.Float64s(nums)
		return map[string]any{"result": nums}, nil
	case "sum", "average":
		nums, err := toFloats(data)
		if err != nil {
			return nil, err
		}
		var sum float64
		for _, n := range nums {
			sum += n
		}
		if operation == "sum" {
			return map[string]any{"result": sum}, nil
		}
		if len(nums) == 0 {
			return map[string]any{"result": 0.0}, nil
		}
		return map[string]any{"result": sum / float64(len(nums))}, nil
	case "count":
		return map[string]any{"result": len(data)}, nil
	default:
		return nil, fmt.Errorf("unsupported operation: %s", operation)
	}
}

// parseCondition parses "<op> <number>", e.g. "> 2"
func parseCondition(condition string) (func(float64) bool, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return func(float64) bool { return true }, nil
	}

	for _, op := range []string{">=", "<=", "==", "!=", ">", "<"} {
		if !strings.HasPrefix(condition, op) {
			continue
		}
		operand, err := strconv.ParseFloat(strings.TrimSpace(condition[len(op):]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid condition operand: %s", condition)
		}
		switch op {
		case ">=":
			return func(v float64) bool { return v >= operand }, nil
		case "<=":
			return func(v float64) bool { return v <= operand }, nil
		case "==":
			return func(v float64) bool { return v == operand }, nil
		case "!=":
			return func(v float64) bool { return v != operand }, nil
		case ">":
			return func(v float64) bool { return v > operand }, nil
		default:
			return func(v float64) bool { return v < operand }, nil
		}
	}
	return nil, fmt.Errorf("invalid condition: %s", condition)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toFloats(data []any) ([]float64, error) {
	nums := make([]float64, 0, len(data))
	for i, item := range data {
		n, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("item %d is not a number", i)
		}
		nums = append(nums, n)
	}
	return nums, nil
}
