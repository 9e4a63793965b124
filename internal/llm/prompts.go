// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"go.yaml.in/yaml/v3"
)

// Prompts holds the instruction payload of every stage as text/template
// source. Field values replace the defaults when loaded from a prompts file.
type Prompts struct {
	InitialCoding       string `yaml:"initial_coding"`
	FocusCoding         string `yaml:"focus_coding"`
	AggregateDimensions string `yaml:"aggregate_dimensions"`
	Theories            string `yaml:"theories"`
	ConceptTuples       string `yaml:"concept_tuples"`
	Interrelationship   string `yaml:"interrelationship"`
	ModelConstruction   string `yaml:"model_construction"`
	ModelName           string `yaml:"model_name"`
	Visualization       string `yaml:"visualization"`
	Critique            string `yaml:"critique"`
	ResearchQuestions   string `yaml:"research_questions"`
	Detail              string `yaml:"detail"`
	LiteratureReview    string `yaml:"literature_review"`
}

// Schemas describe the JSON object each structured stage must return.
const (
	SchemaCodes             = `{"codes": ["short theme label", "..."]}`
	SchemaFocusCodes        = `{"<focus code>": ["<initial code>", "..."], "...": []}`
	SchemaDimensions        = `{"<aggregate dimension>": ["<focus code>", "..."], "...": []}`
	SchemaTheories          = `{"applicableTheories": [{"theory": "...", "description": "...", "relatedDimensions": ["..."], "possibleResearchQuestions": ["..."]}]}`
	SchemaConceptTuples     = `{"conceptTuples": [["concept A", "concept B"], ["...", "..."]]}`
	SchemaResearchQuestions = `{"researchQuestions": ["...", "..."]}`
)

// DefaultPrompts returns the built-in instructions.
func DefaultPrompts() Prompts {
	return Prompts{
		InitialCoding: `You are tasked with applying the initial coding phase of the Gioia method to the provided academic paper excerpt.
In this phase, scrutinize the text to identify emergent themes, concepts, or patterns.
Your output should be a list of concise labels (at most five words each) capturing the essence of the text.
{{- if .Remarks}}
Take into account these remarks from the researcher: {{.Remarks}}
{{- end}}`,

		FocusCoding: `You are tasked with applying the second-order coding phase of the Gioia method.
Group the provided initial codes into at most {{.MaxBuckets}} second-order themes (focus codes).
Each theme maps to the initial codes it subsumes. Use only the initial codes provided; do not invent new ones.`,

		AggregateDimensions: `You are tasked with applying the aggregate dimension phase of the Gioia method.
Distill the provided second-order themes into {{.Min}} to {{.Max}} overarching theoretical dimensions.
Each dimension maps to the second-order themes it subsumes. Use only the themes provided.`,

		Theories: `You are a research assistant. Based on the aggregate dimensions and their underlying themes from a Gioia-method analysis, brainstorm established theories that could explain or frame the findings.
For each theory give a short description, the dimensions it relates to, and possible research questions.
{{- if .Remarks}}
Research focus: {{.Remarks}}
{{- end}}`,

		ConceptTuples: `You are a research assistant building a theoretical model from a Gioia-method analysis.
Propose between {{.Min}} and {{.Max}} pairs of concepts, taken from the dimensions and themes, whose relationship is worth investigating.
{{- if .Remarks}}
Research focus: {{.Remarks}}
{{- end}}`,

		Interrelationship: `Summarize in one sentence how "{{.A}}" relates to "{{.B}}", using only the evidence provided.
If the evidence does not describe a relationship, say so.`,

		ModelConstruction: `You are a theory-building researcher. Construct a theoretical model from the applicable theories, the aggregate dimensions of a Gioia-method analysis, and the discovered interrelationships between concepts.
Describe the constructs, the relationships between them, and the mechanisms that explain those relationships.
{{- if .Remarks}}
Take into account: {{.Remarks}}
{{- end}}
{{- if .Critique}}
A previous version of the model was critiqued. Improve it by addressing the critique.
{{- end}}`,

		ModelName: `Give the following theoretical model a short, memorable name. Respond with the name only.`,

		Visualization: `Translate the theoretical model into a Mermaid flowchart.
Respond only with Mermaid source beginning with "flowchart TD". Use short node labels and label the edges with the relationship.`,

		Critique: `You are a critical reviewer of theoretical models. Identify weaknesses of the model: missing constructs, unsupported relationships, logical gaps, and limits of generalizability. Suggest concrete improvements.`,

		ResearchQuestions: `You are a research assistant. Based on the papers found for the query "{{.Query}}", suggest tentative research questions that address gaps in this literature.`,

		Detail: `You are a research assistant reading an academic paper. Answer briefly and precisely: What is the {{.Column}} of the paper? If the text does not say, answer "Not stated".`,

		LiteratureReview: `{{.Papers}}

Based on the papers above, write a short, academic literature review answering the question "{{.Query}}". Follow APA7 citation style, citing the papers by author and year.`,
	}
}

// LoadPrompts returns the defaults overlaid with the non-empty fields of
// the YAML file at path. An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("reading prompts file %s: %w", path, err)
	}
	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return p, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}
	p.overlay(override)
	return p, nil
}

func (p *Prompts) overlay(o Prompts) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.InitialCoding, o.InitialCoding)
	set(&p.FocusCoding, o.FocusCoding)
	set(&p.AggregateDimensions, o.AggregateDimensions)
	set(&p.Theories, o.Theories)
	set(&p.ConceptTuples, o.ConceptTuples)
	set(&p.Interrelationship, o.Interrelationship)
	set(&p.ModelConstruction, o.ModelConstruction)
	set(&p.ModelName, o.ModelName)
	set(&p.Visualization, o.Visualization)
	set(&p.Critique, o.Critique)
	set(&p.ResearchQuestions, o.ResearchQuestions)
	set(&p.Detail, o.Detail)
	set(&p.LiteratureReview, o.LiteratureReview)
}

// Render executes the template source tmpl with data.
func Render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}
