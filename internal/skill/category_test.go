package skill

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name, description, want string
	}{
		{"webapp-testing", "Toolkit for interacting with local web applications using Playwright", CategoryTesting},
		{"pdf", "Comprehensive PDF manipulation toolkit", CategoryDocuments},
		{"canvas-design", "Create beautiful visual art", CategoryDesign},
		{"mcp-builder", "Guide for creating high-quality MCP servers", CategoryAI},
		{"slack-gif-creator", "Create animated GIFs optimized for Slack", CategoryCommunication},
		{"kubernetes-helper", "Deploy workloads", CategoryDevOps},
		{"xyz", "nothing recognisable here", CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.name, tt.description), tt.name)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Matches both the testing and the documents keyword sets; testing is
	// declared first.
	assert.Equal(t, CategoryTesting, Classify("report-checker", "Test generated PDF reports"))
	// Matches data and development; data is declared first.
	assert.Equal(t, CategoryData, Classify("sql-refactor", "Refactor SQL code"))
}

func TestClassifyIsDeterministic(t *testing.T) {
	desc := "Analyze CSV data and write a markdown summary"
	first := Classify("analyst", desc)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Classify("analyst", desc))
	}
}

func TestResolveCategory(t *testing.T) {
	assert.Equal(t, CategoryDesign, ResolveCategory("Design", "pdf", "PDF toolkit"))
	assert.Equal(t, CategoryDocuments, ResolveCategory("made-up", "pdf", "PDF toolkit"))
	assert.Equal(t, CategoryDocuments, ResolveCategory("", "pdf", "PDF toolkit"))
}

func TestCategoriesEndWithOther(t *testing.T) {
	cats := Categories()
	assert.Len(t, cats, 11)
	assert.Equal(t, CategoryOther, cats[len(cats)-1])
}
