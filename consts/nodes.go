package consts

// Workflow graph nodes.
const (
	MarketAnalysis = "market_analysis"
	Strategist     = "strategist"
)

const GraphName = "FinSim-Recommendation"

const (
	Agent_MarketAnalyst    = "Market Analyst"
	Agent_Strategist       = "Strategist"
	Agent_ReasoningAdvisor = "Reasoning Advisor"
	Agent_PreferenceParser = "Preference Parser"
)
