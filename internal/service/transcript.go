package service

import (
	"strings"

	"github.com/pawscope/backend/pkg/model"
)

// Disclaimer is appended to every synthesized assessment message
const Disclaimer = "This is AI-generated guidance. Always consult a veterinarian for diagnosis and treatment."

// FormatAnalysis renders an assessment into the bot transcript message. The
// transformation is order-preserving and deterministic: sections in order,
// each title followed by its points, then the fixed disclaimer. Points that
// already carry a bullet marker are rendered as-is on their own line; plain
// points are joined with line breaks without a trailing break on the last one.
func FormatAnalysis(result *model.AnalysisResult) string {
	var sb strings.Builder

	for i, section := range result.DetailedSections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(section.Title)
		sb.WriteString("\n")

		for j, point := range section.Points {
			if strings.HasPrefix(point, "•") {
				sb.WriteString(point)
				sb.WriteString("\n")
				continue
			}
			sb.WriteString(point)
			if j < len(section.Points)-1 {
				sb.WriteString("\n")
			}
		}
	}

	sb.WriteString("\n")
	sb.WriteString(Disclaimer)

	return sb.String()
}
