package scheme

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"
)

//go:embed schemes.yaml
var builtinData []byte

// KnowledgeBase is an immutable, versioned set of scheme rules
type KnowledgeBase struct {
	Version  string
	rules    map[SchemeID]Rules
	cmaForms []string
}

// document mirrors the YAML layout
type document struct {
	Version  string   `yaml:"version"`
	CMAForms []string `yaml:"cma_forms"`
	Schemes  []Rules  `yaml:"schemes"`
}

var (
	defaultKB  *KnowledgeBase
	defaultErr error
	once       sync.Once
)

// Default returns the built-in knowledge base. The embedded data is parsed once.
func Default() *KnowledgeBase {
	once.Do(func() {
		defaultKB, defaultErr = Parse(builtinData)
	})
	if defaultErr != nil {
		// The embedded document is part of the binary; failing here is a build defect.
		panic(fmt.Sprintf("scheme: invalid built-in knowledge base: %v", defaultErr))
	}
	return defaultKB
}

// Load reads a knowledge base from a YAML file
func Load(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scheme data: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a knowledge base document
func Parse(data []byte) (*KnowledgeBase, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scheme data: %w", err)
	}

	kb := &KnowledgeBase{
		Version:  doc.Version,
		rules:    make(map[SchemeID]Rules, len(doc.Schemes)),
		cmaForms: doc.CMAForms,
	}
	for _, r := range doc.Schemes {
		if !r.ID.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, r.ID)
		}
		if _, dup := kb.rules[r.ID]; dup {
			return nil, fmt.Errorf("scheme %s defined twice", r.ID)
		}
		for _, t := range r.MudraTiers {
			if !t.Tier.Valid() {
				return nil, fmt.Errorf("scheme %s: %w: %q", r.ID, ErrInvalidTier, t.Tier)
			}
		}
		kb.rules[r.ID] = r
	}
	return kb, nil
}

// GetRules returns the rules for a scheme
func (kb *KnowledgeBase) GetRules(id SchemeID) (Rules, error) {
	r, ok := kb.rules[id]
	if !ok {
		return Rules{}, fmt.Errorf("%w: %q", ErrUnknownScheme, id)
	}
	return r.clone(), nil
}

// Schemes returns the rules for every configured scheme in display order
func (kb *KnowledgeBase) Schemes() []Rules {
	out := make([]Rules, 0, len(kb.rules))
	for _, id := range SchemeIDs {
		if r, ok := kb.rules[id]; ok {
			out = append(out, r.clone())
		}
	}
	return out
}

// CMAForms returns the Credit Monitoring Arrangement form list
func (kb *KnowledgeBase) CMAForms() []string {
	return append([]string(nil), kb.cmaForms...)
}

// MudraTier returns the rule for a MUDRA tier
func (kb *KnowledgeBase) MudraTier(tier MudraTier) (MudraTierRule, error) {
	if !tier.Valid() {
		return MudraTierRule{}, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}
	r, err := kb.GetRules(MUDRA)
	if err != nil {
		return MudraTierRule{}, err
	}
	for _, t := range r.MudraTiers {
		if t.Tier == tier {
			return t, nil
		}
	}
	return MudraTierRule{}, fmt.Errorf("%w: %q not configured", ErrInvalidTier, tier)
}

// GetRules looks up a scheme in the built-in knowledge base
func GetRules(id SchemeID) (Rules, error) {
	return Default().GetRules(id)
}
