package prompt

import (
	"strings"

	"github.com/geocoder89/statementhub/internal/domain/statement"
)

// SystemPrompt frames the model before the user prompt is sent.
const SystemPrompt = "You are an expert project manager with experience in creating detailed project statements."

// ValidationError lists the required fields found empty after trimming.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

const notSpecified = "Not specified"

// Build maps the submitted fields into the generation prompt.
// It is a pure function: identical input always yields a byte-identical
// prompt, and fields are embedded in a fixed, documented order
// (project type, domain, objective, audience, timeline, budget, constraints).
func Build(in statement.Input) (string, error) {
	projectType := strings.TrimSpace(in.ProjectType)
	objective := strings.TrimSpace(in.Objective)

	var missing []string
	if projectType == "" {
		missing = append(missing, "projectType")
	}
	if objective == "" {
		missing = append(missing, "objective")
	}
	if len(missing) > 0 {
		return "", &ValidationError{Fields: missing}
	}

	var b strings.Builder

	b.WriteString("You are an expert project strategist.\n\n")
	b.WriteString("Here are the initial project details provided (context only - do not simply restate):\n")
	writeField(&b, "Project Type", projectType, "")
	writeField(&b, "Domain", in.Domain, notSpecified)
	writeField(&b, "Objective", objective, "")
	writeField(&b, "Target Audience", in.Audience, notSpecified)
	writeField(&b, "Timeline", in.Timeline, notSpecified)
	writeField(&b, "Budget", in.Budget, notSpecified)
	writeField(&b, "Constraints", in.Constraints, "None specified")

	b.WriteString("\nYour task:\n")
	b.WriteString("1. Invent new and creative project ideas, opportunities, and directions that build on these details.\n")
	b.WriteString("2. Suggest approaches the user might not have considered yet.\n")
	b.WriteString("3. Incorporate innovative methods, technologies, and strategies.\n")
	b.WriteString("4. Highlight unique ways to network, collaborate, or reach the audience.\n")
	b.WriteString("5. Keep the tone professional but inspiring.\n")

	b.WriteString("\nOutput the final result in pure HTML with the following structure and tags:\n\n")
	for _, section := range []string{
		"Project Statement",
		"Objectives",
		"Scope",
		"Deliverables",
		"Success Metrics",
		"Tech Stack",
		"Technical Approach",
		"Potential Challenges",
		"Recommended Approach",
	} {
		b.WriteString("<h2>" + section + "</h2>\n")
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Generate a solid, professional problem statement including a tech stack.\n")
	b.WriteString("- Do not repeat the original text exactly.\n")
	b.WriteString("- Do not include any introduction or explanation outside the HTML tags.\n")
	b.WriteString("- Every section must contain original suggestions that expand beyond the given details.\n")

	return b.String(), nil
}

func writeField(b *strings.Builder, label, value, placeholder string) {
	v := strings.TrimSpace(value)
	if v == "" {
		v = placeholder
	}
	b.WriteString(label + ": " + v + "\n")
}
