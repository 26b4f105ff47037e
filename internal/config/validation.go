package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Provider names accepted in credential configuration.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Credential is a resolved generative backend credential with its effective
// model. Index 0 is the primary credential; later entries are backups.
type Credential struct {
	Name     string
	Provider string
	APIKey   string
	Model    string
}

// Validate checks struct-level constraints and the cross-field rules that
// validator tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: field %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Generation.Credentials))
	for _, cred := range c.Generation.Credentials {
		if _, dup := seen[cred.Name]; dup {
			return fmt.Errorf("invalid configuration: duplicate credential name %q", cred.Name)
		}
		seen[cred.Name] = struct{}{}
	}

	return nil
}

// Credentials returns the ordered credential list: explicit credential
// entries first, then bare api_keys as OpenAI-compatible credentials named
// key-1, key-2 and so on. Credentials without a model inherit the default
// for their provider.
func (c *Config) Credentials() []Credential {
	out := make([]Credential, 0, len(c.Generation.Credentials)+len(c.Generation.APIKeys))

	for _, cc := range c.Generation.Credentials {
		model := cc.Model
		if model == "" {
			if cc.Provider == ProviderGemini {
				model = DefaultGeminiModel
			} else {
				model = c.Generation.Model
			}
		}
		out = append(out, Credential{Name: cc.Name, Provider: cc.Provider, APIKey: cc.APIKey, Model: model})
	}

	for i, key := range c.Generation.APIKeys {
		out = append(out, Credential{
			Name:     fmt.Sprintf("key-%d", i+1),
			Provider: ProviderOpenAI,
			APIKey:   key,
			Model:    c.Generation.Model,
		})
	}

	return out
}
