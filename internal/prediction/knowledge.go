package prediction

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var knowledgeYAML []byte

// knowledgeDocument is the on-disk layout of the knowledge base.
type knowledgeDocument struct {
	Symptoms     []string            `yaml:"symptoms"`
	Diseases     []string            `yaml:"diseases"`
	Associations map[string][]string `yaml:"associations"`
}

// KnowledgeBase maps symptom identifiers to the diseases they point towards.
// It is immutable once loaded and safe for concurrent readers.
type KnowledgeBase struct {
	symptoms     []string
	diseases     []string
	symptomSet   map[string]struct{}
	diseaseSet   map[string]struct{}
	associations map[string][]string
}

var defaultKnowledgeBase = mustLoadKnowledgeBase(knowledgeYAML)

func mustLoadKnowledgeBase(data []byte) *KnowledgeBase {
	kb, err := LoadKnowledgeBase(data)
	if err != nil {
		panic(fmt.Sprintf("prediction: embedded knowledge base: %v", err))
	}
	return kb
}

// Default returns the knowledge base shipped with the binary.
func Default() *KnowledgeBase {
	return defaultKnowledgeBase
}

// Symptoms returns the full symptom vocabulary of the default knowledge base.
func Symptoms() []string {
	return defaultKnowledgeBase.Symptoms()
}

// Diseases returns the disease enumeration of the default knowledge base.
func Diseases() []string {
	return defaultKnowledgeBase.Diseases()
}

// LoadKnowledgeBase parses a YAML knowledge base document and validates it.
func LoadKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var doc knowledgeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}

	kb := &KnowledgeBase{
		symptoms:     append([]string(nil), doc.Symptoms...),
		diseases:     append([]string(nil), doc.Diseases...),
		symptomSet:   make(map[string]struct{}, len(doc.Symptoms)),
		diseaseSet:   make(map[string]struct{}, len(doc.Diseases)),
		associations: make(map[string][]string, len(doc.Associations)),
	}
	for _, s := range kb.symptoms {
		kb.symptomSet[s] = struct{}{}
	}
	for _, d := range kb.diseases {
		kb.diseaseSet[d] = struct{}{}
	}
	for symptom, diseases := range doc.Associations {
		kb.associations[symptom] = append([]string(nil), diseases...)
	}

	if err := kb.Validate(); err != nil {
		return nil, err
	}
	return kb, nil
}

// Validate checks the structural invariants of the knowledge base: both
// vocabularies are present, disease names are unique, and every association
// refers to a known symptom and to known diseases only.
func (kb *KnowledgeBase) Validate() error {
	var problems []string

	if len(kb.symptoms) == 0 {
		problems = append(problems, "symptom vocabulary is empty")
	}
	if len(kb.diseases) == 0 {
		problems = append(problems, "disease vocabulary is empty")
	}
	for _, s := range kb.symptoms {
		if strings.TrimSpace(s) == "" {
			problems = append(problems, "symptom vocabulary contains a blank entry")
			break
		}
	}
	if len(kb.diseaseSet) != len(kb.diseases) {
		problems = append(problems, "disease vocabulary contains duplicates")
	}

	symptoms := make([]string, 0, len(kb.associations))
	for s := range kb.associations {
		symptoms = append(symptoms, s)
	}
	sort.Strings(symptoms)

	for _, s := range symptoms {
		if _, ok := kb.symptomSet[s]; !ok {
			problems = append(problems, fmt.Sprintf("association for unknown symptom %q", s))
		}
		for _, d := range kb.associations[s] {
			if _, ok := kb.diseaseSet[d]; !ok {
				problems = append(problems, fmt.Sprintf("symptom %q maps to unknown disease %q", s, d))
			}
		}
	}

	if len(problems) > 0 {
		return errors.New("invalid knowledge base: " + strings.Join(problems, "; "))
	}
	return nil
}

// Symptoms returns a copy of the symptom vocabulary in its canonical order.
func (kb *KnowledgeBase) Symptoms() []string {
	return append([]string(nil), kb.symptoms...)
}

// Diseases returns a copy of the disease enumeration.
func (kb *KnowledgeBase) Diseases() []string {
	return append([]string(nil), kb.diseases...)
}

// Candidates returns the diseases associated with a symptom. Unknown symptoms
// yield an empty result.
func (kb *KnowledgeBase) Candidates(symptom string) []string {
	return append([]string(nil), kb.associations[symptom]...)
}

func (kb *KnowledgeBase) IsKnownSymptom(symptom string) bool {
	_, ok := kb.symptomSet[symptom]
	return ok
}

func (kb *KnowledgeBase) IsKnownDisease(disease string) bool {
	_, ok := kb.diseaseSet[disease]
	return ok
}

// candidates is the allocation-free lookup used by the scoring passes. Callers
// must not modify the returned slice.
func (kb *KnowledgeBase) candidates(symptom string) []string {
	return kb.associations[symptom]
}
