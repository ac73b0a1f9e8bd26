package vectorstore

import (
	"testing"

	"sentio/internal/rag/schema"
)

func TestBuildFilterExpression(t *testing.T) {
	cases := []struct {
		name   string
		filter *schema.Filter
		want   string
	}{
		{"nil filter", nil, ""},
		{"zero filter", &schema.Filter{}, ""},
		{"app equality", &schema.Filter{AppName: "PowerNap"}, `app_name == "PowerNap"`},
		{"app with quotes escaped", &schema.Filter{AppName: `Say "Hi"`}, `app_name == "Say \"Hi\""`},
		{"app in list", &schema.Filter{AppNames: []string{"A", "B"}}, `app_name in ["A", "B"]`},
		{"category", &schema.Filter{Category: "Music"}, `category == "Music"`},
		{"rating min", &schema.Filter{RatingMin: 4}, `rating >= 4`},
		{"rating max", &schema.Filter{RatingMax: 2}, `rating <= 2`},
		{
			"combined",
			&schema.Filter{Category: "Music", RatingMin: 1, RatingMax: 2},
			`category == "Music" and rating >= 1 and rating <= 2`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildFilterExpression(tc.filter); got != tc.want {
				t.Errorf("buildFilterExpression = %q, want %q", got, tc.want)
			}
		})
	}
}
