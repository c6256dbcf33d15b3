package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"
)

func TestIntentClassifierParsing(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantIntent core.Intent
		wantConf   float64
	}{
		{"exact label", "legal", core.IntentLegal, 0.9},
		{"label with trailing period", "business.", core.IntentBusiness, 0.9},
		{"label uppercased", "GENERAL", core.IntentGeneral, 0.9},
		{"label quoted", `"legal"`, core.IntentLegal, 0.9},
		{"label inside sentence", "Ý định của câu hỏi là business nhé", core.IntentBusiness, 0.7},
		{"unparseable", "tôi không chắc", core.IntentGeneral, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &scriptedLLM{}
			llm.push(tt.reply, nil)
			c := core.NewIntentClassifier(llm, 0.5, testLogger())

			intent, confidence := c.Classify(context.Background(), "câu hỏi", "")
			assert.Equal(t, tt.wantIntent, intent)
			assert.Equal(t, tt.wantConf, confidence)
		})
	}
}

func TestIntentClassifierThreshold(t *testing.T) {
	// Extracted-from-sentence parses carry 0.7 confidence.
	reply := "Câu này thuộc loại legal."

	t.Run("below threshold resolves to general", func(t *testing.T) {
		llm := &scriptedLLM{}
		llm.push(reply, nil)
		c := core.NewIntentClassifier(llm, 0.8, testLogger())

		intent, confidence := c.Classify(context.Background(), "q", "")
		assert.Equal(t, core.IntentGeneral, intent)
		assert.Equal(t, 0.7, confidence)
	})

	t.Run("exactly at threshold keeps the intent", func(t *testing.T) {
		llm := &scriptedLLM{}
		llm.push(reply, nil)
		c := core.NewIntentClassifier(llm, 0.7, testLogger())

		intent, _ := c.Classify(context.Background(), "q", "")
		assert.Equal(t, core.IntentLegal, intent)
	})
}

func TestIntentClassifierBackendFailure(t *testing.T) {
	llm := &scriptedLLM{}
	llm.push("", errors.New("backend down"))
	c := core.NewIntentClassifier(llm, 0.6, testLogger())

	intent, confidence := c.Classify(context.Background(), "q", "")
	assert.Equal(t, core.IntentGeneral, intent)
	assert.Zero(t, confidence)
}

func TestIntentClassifierPromptCarriesContext(t *testing.T) {
	llm := &scriptedLLM{}
	llm.push("legal", nil)
	c := core.NewIntentClassifier(llm, 0.6, testLogger())

	c.Classify(context.Background(), "Điều 15 quy định gì?", "Người dùng: xin chào\nBot: chào bạn")

	if assert.Len(t, llm.prompts, 1) {
		prompt := llm.prompts[0]
		assert.True(t, strings.Contains(prompt, "Điều 15 quy định gì?"))
		assert.True(t, strings.Contains(prompt, "Người dùng: xin chào"))
	}
}
