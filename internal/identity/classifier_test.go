package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uatops/uat-router/internal/domain"
)

func TestClassifyTeam(t *testing.T) {
	cases := []struct {
		title string
		want  domain.Team
	}{
		{"", domain.TeamUnknown},
		{"Customer Success Account Manager", domain.TeamCSU},
		{"Senior CSAM", domain.TeamCSU},
		{"Principal Cloud Solution Architect", domain.TeamCSU},
		{"CSA - Data & AI", domain.TeamCSU},
		{"Director, Customer Success", domain.TeamCSU},
		{"Azure Infra Specialist", domain.TeamSTU},
		{"SALES ENGINEER", domain.TeamSTU},
		{"Account Executive", domain.TeamSTU},
		{"Software Engineer", domain.TeamUnknown},
		// matches both lists; CSU is checked first
		{"Customer Success Specialist", domain.TeamCSU},
		// substring containment, not word matching
		{"Ops Lead, NCSA Region", domain.TeamCSU},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyTeam(tc.title))
		})
	}
}
