// Package clock provides the get-time read tool.
package clock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/pkg/models"
)

// ToolID is the registered identifier.
const ToolID = "get-time"

// Input are the tool arguments.
type Input struct {
	// Timezone is an IANA zone name. Empty means UTC.
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA timezone name such as America/New_York. Defaults to UTC."`
}

// Output is the tool result.
type Output struct {
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
	Unix     int64  `json:"unix"`
}

var inputSchema = schema.MustFor[Input]()

// Definition builds the tool. The now func is injectable for tests; nil
// means time.Now.
func Definition(now func() time.Time) *agent.ToolDefinition {
	if now == nil {
		now = time.Now
	}
	return &agent.ToolDefinition{
		ID:          ToolID,
		Name:        "Get Time",
		Description: "Returns the current date and time, optionally in a specific timezone.",
		Effect:      models.ToolEffectRead,
		InputSchema: inputSchema,
		Run: func(ctx context.Context, ic *agent.Context, args json.RawMessage) (json.RawMessage, error) {
			var in Input
			if len(args) > 0 {
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("decode args: %w", err)
				}
			}

			loc := time.UTC
			if in.Timezone != "" {
				var err error
				loc, err = time.LoadLocation(in.Timezone)
				if err != nil {
					return nil, fmt.Errorf("unknown timezone %q", in.Timezone)
				}
			}

			t := now().In(loc)
			return json.Marshal(Output{
				Time:     t.Format(time.RFC3339),
				Timezone: loc.String(),
				Unix:     t.Unix(),
			})
		},
	}
}
