package calc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/haasonsaas/copilot/internal/schema"
)

func run(t *testing.T, args string) (Output, error) {
	t.Helper()
	raw, err := Definition().Run(context.Background(), nil, json.RawMessage(args))
	if err != nil {
		return Output{}, err
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	return out, nil
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name string
		args string
		want float64
	}{
		{"add", `{"operation":"add","a":2,"b":3}`, 5},
		{"subtract", `{"operation":"subtract","a":2,"b":3}`, -1},
		{"multiply", `{"operation":"multiply","a":2.5,"b":4}`, 10},
		{"divide", `{"operation":"divide","a":9,"b":3}`, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if out.Result != tt.want {
				t.Errorf("result = %v, want %v", out.Result, tt.want)
			}
		})
	}
}

func TestCalculateDivisionByZero(t *testing.T) {
	if _, err := run(t, `{"operation":"divide","a":1,"b":0}`); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestCalculateUnknownOperation(t *testing.T) {
	if _, err := run(t, `{"operation":"modulo","a":1,"b":2}`); err == nil {
		t.Fatal("expected unsupported-operation error")
	}
}

func TestCalculateSchemaRequiresOperands(t *testing.T) {
	v := schema.NewValidator()
	if err := v.Validate(inputSchema, json.RawMessage(`{"operation":"add"}`)); err == nil {
		t.Fatal("schema accepted missing operands")
	}
	if err := v.Validate(inputSchema, json.RawMessage(`{"operation":"add","a":1,"b":2}`)); err != nil {
		t.Fatalf("valid args rejected: %v", err)
	}
}
