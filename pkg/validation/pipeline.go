package validation

import (
	"travel-gateway/pkg/types"
)

// Normalizer rewrites a payload in place before it is signed.
type Normalizer func(payload map[string]interface{})

// Guardrail is a semantic check that runs once every rule has passed.
type Guardrail func(payload map[string]interface{}) *types.GatewayError

// Pipeline is the per-route validation chain.
type Pipeline struct {
	Rules       []Rule
	Normalizers []Normalizer
	Guardrails  []Guardrail
}

func NewPipeline(rules ...Rule) *Pipeline {
	return &Pipeline{Rules: rules}
}

func (p *Pipeline) Normalize(normalizers ...Normalizer) *Pipeline {
	p.Normalizers = append(p.Normalizers, normalizers...)
	return p
}

func (p *Pipeline) Guard(guardrails ...Guardrail) *Pipeline {
	p.Guardrails = append(p.Guardrails, guardrails...)
	return p
}

// Apply runs every normalizer. It is safe on a nil pipeline.
func (p *Pipeline) Apply(payload map[string]interface{}) {
	if p == nil {
		return
	}
	for _, n := range p.Normalizers {
		n(payload)
	}
}

// Validate reports every failing rule at once. Guardrails only run when the
// payload is syntactically valid; the first guardrail failure is returned.
func (p *Pipeline) Validate(payload map[string]interface{}) error {
	if p == nil {
		return nil
	}

	var fields []types.FieldError
	for _, rule := range p.Rules {
		if fe := rule.Check(payload); fe != nil {
			fields = append(fields, *fe)
		}
	}
	if len(fields) > 0 {
		return types.NewValidationFailed(fields)
	}

	for _, guard := range p.Guardrails {
		if err := guard(payload); err != nil {
			return err
		}
	}
	return nil
}
