package model

// PolicyRule is one independently checkable rule from the expense policy
type PolicyRule struct {
	ID       int    `json:"id"`                 // 1-based, unique within a policy, document order
	Text     string `json:"text"`               // The rule text itself
	Category string `json:"category,omitempty"` // Nearest preceding heading, if any
}

// Policy is the normalized expense policy
type Policy struct {
	Source     string       `json:"source"`     // Path the policy was loaded from
	Rules      []PolicyRule `json:"rules"`      // Ordered as they appear in the document
	Monolithic bool         `json:"monolithic"` // True when the whole document became a single rule
}
