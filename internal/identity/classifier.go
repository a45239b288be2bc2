package identity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/uatops/uat-router/internal/domain"
)

// Keyword lists are checked in order, CSU before STU; the first containment wins.
var (
	csuKeywords = []string{
		"customer success account manager",
		"csam",
		"cloud solution architect",
		"csa",
		"customer success",
	}
	stuKeywords = []string{
		"specialist",
		"sales engineer",
		"account executive",
		"technical specialist",
		"solution specialist",
	}
)

// ClassifyTeam maps a job title onto CSU, STU or UNKNOWN.
func ClassifyTeam(jobTitle string) domain.Team {
	if jobTitle == "" {
		return domain.TeamUnknown
	}
	title := cases.Lower(language.Und).String(jobTitle)

	for _, keyword := range csuKeywords {
		if strings.Contains(title, keyword) {
			return domain.TeamCSU
		}
	}
	for _, keyword := range stuKeywords {
		if strings.Contains(title, keyword) {
			return domain.TeamSTU
		}
	}
	return domain.TeamUnknown
}
