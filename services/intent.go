package services

import (
	"strings"

	"atomrouter/models"

	"golang.org/x/text/unicode/norm"
)

// Keyword sets used for classification. Matching is substring based on the
// lowercased, NFC-normalized message.
var (
	createWords   = []string{"generar", "genera", "crear", "crea"}
	chartWords    = []string{"gráfica", "grafica", "gráfico", "grafico", "chart"}
	documentVerbs = []string{"generar", "genera"}
	documentWords = []string{"pdf"}
)

type variantRule struct {
	variant models.ChartVariant
	words   []string
}

// variantRules are checked in order; the first match wins and bar is the default
var variantRules = []variantRule{
	{variant: models.ChartLine, words: []string{"línea", "linea", "line"}},
	{variant: models.ChartPie, words: []string{"circular", "pie", "pastel"}},
	{variant: models.ChartScatter, words: []string{"dispersión", "dispersion", "scatter"}},
}

type intentRule struct {
	name    string
	matches func(msg string, useHosted bool) bool
	intent  func(msg string) models.Intent
}

// intentRules is evaluated top-down and the first matching rule decides.
// Chart must come before document because both share the "genera"/"generar" verbs.
var intentRules = []intentRule{
	{
		name:    "hosted-provider",
		matches: func(_ string, useHosted bool) bool { return useHosted },
		intent:  func(string) models.Intent { return models.ConversationIntent() },
	},
	{
		name: "chart",
		matches: func(msg string, _ bool) bool {
			return containsAny(msg, createWords) && containsAny(msg, chartWords)
		},
		intent: func(msg string) models.Intent { return models.ChartIntent(classifyVariant(msg)) },
	},
	{
		name: "document",
		matches: func(msg string, _ bool) bool {
			return containsAny(msg, documentVerbs) && containsAny(msg, documentWords)
		},
		intent: func(string) models.Intent { return models.DocumentIntent() },
	},
}

// ClassifyIntent decides what a message asks for. Artifact intents are only
// available against the local provider; useHosted always yields a conversation.
func ClassifyIntent(message string, useHosted bool) models.Intent {
	msg := normalizeMessage(message)
	for _, rule := range intentRules {
		if rule.matches(msg, useHosted) {
			return rule.intent(msg)
		}
	}
	return models.ConversationIntent()
}

func classifyVariant(msg string) models.ChartVariant {
	for _, rule := range variantRules {
		if containsAny(msg, rule.words) {
			return rule.variant
		}
	}
	return models.ChartBar
}

func normalizeMessage(message string) string {
	return strings.ToLower(norm.NFC.String(message))
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
