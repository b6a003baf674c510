package guardrail

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/a-h/mathagent/generate"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

type Config struct {
	PrivacyKeywords  []string `yaml:"privacy_keywords"`
	AllowedTopics    []string `yaml:"allowed_topics"`
	MathIndicators   []string `yaml:"math_indicators"`
	Greetings        []string `yaml:"greetings"`
	RefusalPhrases   []string `yaml:"refusal_phrases"`
	RefusalMaxLength int      `yaml:"refusal_max_length"`

	// Classification is the prompt sent to the topic classifier.
	Classification generate.Mode `yaml:"-"`
}

func DefaultConfig() Config {
	c, err := ParseConfig(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("guardrail: embedded config is invalid: %v", err))
	}
	return c
}

// LoadConfig reads a YAML config file. An empty name returns the default config.
func LoadConfig(name string) (c Config, err error) {
	if name == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return c, fmt.Errorf("guardrail: failed to read config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (c Config, err error) {
	if err = yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("guardrail: failed to parse config: %w", err)
	}
	if len(c.PrivacyKeywords) == 0 {
		return c, fmt.Errorf("guardrail: config must list at least one privacy keyword")
	}
	c.PrivacyKeywords = lowerAll(c.PrivacyKeywords)
	c.AllowedTopics = lowerAll(c.AllowedTopics)
	c.MathIndicators = lowerAll(c.MathIndicators)
	c.Greetings = lowerAll(c.Greetings)
	c.RefusalPhrases = lowerAll(c.RefusalPhrases)
	c.Classification = generate.TopicClassification
	return c, nil
}

func lowerAll(values []string) (op []string) {
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		op = append(op, v)
	}
	return op
}
