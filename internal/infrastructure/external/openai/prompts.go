package openai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the prompts and model parameters used by the analyzer
type PromptConfig struct {
	RootCause struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"root_cause"`
}

const defaultPrompts = `
root_cause:
  temperature: 0.2
  max_tokens: 600
  system: >
    You are a manufacturing quality analyst. Attribute customer claims to the
    process that caused them. Always respond with a single JSON object.
  user_template: |
    Determine the root cause of this product claim.

    Claim:
    - Category: {{.Claim.Category}}
    - Product: {{.Claim.ProductID}}
    - Order: {{.Claim.OrderNumber}}
    - Estimated value: {{printf "%.2f" .Claim.EstimatedValue}}
    - Description: {{.Claim.Description}}

    ERP reference data:
    {{if .Reference}}{{.Reference}}{{else}}none available{{end}}

    Respond with JSON of exactly this shape:
    {
      "source": one of "production", "inventory", "logistics", "quality_control",
      "details": string explaining the cause,
      "confidence": number between 0.0 and 1.0,
      "systemic_issue": boolean, true when other units are likely affected
    }
`

// DefaultPrompts returns the built-in prompt configuration
func DefaultPrompts() *PromptConfig {
	prompts, err := parsePrompts([]byte(defaultPrompts))
	if err != nil {
		panic(fmt.Sprintf("built-in prompts are invalid: %v", err))
	}
	return prompts
}

// LoadPrompts loads prompt configuration from YAML file
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return parsePrompts(data)
}

func parsePrompts(data []byte) (*PromptConfig, error) {
	var prompts PromptConfig
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	if prompts.RootCause.UserTemplate == "" {
		return nil, fmt.Errorf("root_cause.user_template is required")
	}
	return &prompts, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
