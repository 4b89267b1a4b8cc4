package chat

import "github.com/partdeck/partdeck/pkg/llm"

// Tool names exposed to the model. Each maps to one retrieval domain.
const (
	ToolPartsInfo   = "parts_info"
	ToolRepairInfo  = "repair_info"
	ToolSupportInfo = "support_info"
)

// ToolDefinitions describes the retrieval tools offered on every draft
// completion. Each tool takes a single natural-language query; identifiers
// like part numbers should be left in the query text, the retrieval layer
// extracts them itself.
var ToolDefinitions = []llm.Tool{
	{
		Name: ToolPartsInfo,
		Description: "Search the parts catalog for refrigerator and dishwasher parts. " +
			"Returns part names, PS-prefixed catalog IDs, manufacturer part numbers, prices, brands, " +
			"availability, installation difficulty and time, common symptoms the part fixes, " +
			"related parts, and product and installation video URLs. " +
			"Use for any question about a specific part, a part number, pricing, stock, " +
			"compatibility, or which part fixes a symptom.",
		Parameters: toolParams(map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Natural language search, including any part numbers, brand, appliance type, or symptoms the customer mentioned.",
			},
		}, []string{"query"}),
	},
	{
		Name: ToolRepairInfo,
		Description: "Search repair guidance for refrigerator and dishwasher problems. " +
			"Returns the symptom, a description of the likely cause, how common the problem is, " +
			"repair difficulty, the parts typically needed, and repair video URLs. " +
			"Use for troubleshooting questions like 'my dishwasher won't drain' or " +
			"'why is my fridge not cooling'.",
		Parameters: toolParams(map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Natural language description of the problem, including the appliance type and symptom.",
			},
		}, []string{"query"}),
	},
	{
		Name: ToolSupportInfo,
		Description: "Search customer support policies. " +
			"Returns policy text covering returns, refunds, warranties, shipping, " +
			"order changes, and payment. " +
			"Use for questions about orders, returns, warranty coverage, or shipping.",
		Parameters: toolParams(map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Natural language question about a policy or order.",
			},
		}, []string{"query"}),
	},
}

func toolParams(properties map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
