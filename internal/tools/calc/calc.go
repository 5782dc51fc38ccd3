// Package calc provides the calculate read tool.
package calc

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/pkg/models"
)

// ToolID is the registered identifier.
const ToolID = "calculate"

// Input are the tool arguments.
type Input struct {
	Operation string  `json:"operation" jsonschema:"required,enum=add,enum=subtract,enum=multiply,enum=divide,description=Arithmetic operation to perform."`
	A         float64 `json:"a" jsonschema:"required,description=Left operand."`
	B         float64 `json:"b" jsonschema:"required,description=Right operand."`
}

// Output is the tool result.
type Output struct {
	Result float64 `json:"result"`
}

var inputSchema = schema.MustFor[Input]()

// Definition builds the tool.
func Definition() *agent.ToolDefinition {
	return &agent.ToolDefinition{
		ID:          ToolID,
		Name:        "Calculator",
		Description: "Performs basic arithmetic on two numbers.",
		Effect:      models.ToolEffectRead,
		InputSchema: inputSchema,
		Run: func(ctx context.Context, ic *agent.Context, args json.RawMessage) (json.RawMessage, error) {
			var in Input
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}

			var result float64
			switch in.Operation {
			case "add":
				result = in.A + in.B
			case "subtract":
				result = in.A - in.B
			case "multiply":
				result = in.A * in.B
			case "divide":
				if in.B == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				result = in.A / in.B
			default:
				return nil, fmt.Errorf("unsupported operation %q", in.Operation)
			}
			if math.IsInf(result, 0) || math.IsNaN(result) {
				return nil, fmt.Errorf("result is not a finite number")
			}

			return json.Marshal(Output{Result: result})
		},
	}
}
