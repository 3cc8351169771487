package skill

import "strings"

// Display categories. CategoryOther is the uncategorized bucket.
const (
	CategoryDevelopment   = "development"
	CategoryData          = "data"
	CategoryDocuments     = "documents"
	CategoryDesign        = "design"
	CategoryDevOps        = "devops"
	CategoryTesting       = "testing"
	CategorySecurity      = "security"
	CategoryAI            = "ai"
	CategoryProductivity  = "productivity"
	CategoryCommunication = "communication"
	CategoryOther         = "other"
)

type keywordRule struct {
	category string
	keywords []string
}

// Order matters: the first rule with a matching keyword wins.
var categoryRules = []keywordRule{
	{CategoryTesting, []string{"test", "qa ", "playwright", "selenium", "coverage", "tdd"}},
	{CategorySecurity, []string{"security", "vulnerab", "pentest", "encrypt", "secret", "threat"}},
	{CategoryDevOps, []string{"deploy", "docker", "kubernetes", "terraform", "ci/cd", "infrastructure", "devops"}},
	{CategoryData, []string{"data", "analytics", "sql", "csv", "spreadsheet", "excel", "chart"}},
	{CategoryDocuments, []string{"document", "pdf", "docx", "pptx", "xlsx", "markdown", "report"}},
	{CategoryDesign, []string{"design", "figma", "css", "brand", "artifact", "canvas", "theme"}},
	{CategoryAI, []string{"llm", "prompt", "agent", "mcp", "machine learning", "model"}},
	{CategoryDevelopment, []string{"code", "develop", "programming", "git", "debug", "refactor", "api"}},
	{CategoryCommunication, []string{"email", "slack", "communicat", "message", "meeting"}},
	{CategoryProductivity, []string{"productiv", "workflow", "task", "plan", "note", "organiz"}},
}

// Categories lists the closed category set in display order.
func Categories() []string {
	out := make([]string, 0, len(categoryRules)+1)
	for _, r := range categoryRules {
		out = append(out, r.category)
	}
	return append(out, CategoryOther)
}

// Classify maps free text to a category by keyword matching.
func Classify(name, description string) string {
	text := strings.ToLower(name + " " + description)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// ResolveCategory prefers an explicit category from the set and falls back
// to Classify.
func ResolveCategory(explicit, name, description string) string {
	explicit = strings.ToLower(strings.TrimSpace(explicit))
	if explicit != "" {
		for _, c := range Categories() {
			if c == explicit {
				return c
			}
		}
	}
	return Classify(name, description)
}
