package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"cvbuilder_backend/internal/models"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases and dedupes", "Go, go, GO developer", []string{"go", "developer"}},
		{"drops stop words and short tokens", "We are looking for a C developer with a team", []string{"developer"}},
		{"keeps symbols of tech names", "C++ and C# with Node.js.", []string{"c++", "c#", "node.js"}},
		{"keeps leading dot of tech names", "Senior .NET developer.", []string{"senior", ".net", "developer"}},
		{"strips stray leading dots", "...hello ..world", []string{"hello", "world"}},
		{"empty", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.text))
		})
	}
}

func TestCalculateATSScore(t *testing.T) {
	cv := &models.CV{
		Title:   "Backend Engineer",
		Summary: "Python services deployed on AWS",
		PersonalInfo: datatypes.NewJSONType(models.PersonalInfo{
			FullName: "Jane Doe",
			JobTitle: "Platform engineer",
		}),
		Skills: datatypes.JSONSlice[models.Skill]{{Name: "PostgreSQL"}},
	}

	res := CalculateATSScore(cv, "Python AWS Docker")
	assert.Equal(t, []string{"python", "aws"}, res.KeywordMatches)
	assert.Equal(t, []string{"docker"}, res.MissingKeywords)
	assert.Equal(t, 3, res.TotalKeywords)
	assert.Equal(t, 67, res.Score)

	full := CalculateATSScore(cv, "python postgresql engineer")
	assert.Equal(t, 100, full.Score)
	assert.Empty(t, full.MissingKeywords)
}

func TestCalculateATSScore_ImportantKeywordsWeighMore(t *testing.T) {
	cv := &models.CV{Summary: "kubernetes"}

	// kubernetes (вес 2) найден, teamwork (вес 1) нет
	res := CalculateATSScore(cv, "kubernetes teamwork")
	assert.Equal(t, 67, res.Score)

	cv = &models.CV{Summary: "teamwork"}
	res = CalculateATSScore(cv, "kubernetes teamwork")
	assert.Equal(t, 33, res.Score)
}

func TestCalculateATSScore_DotNet(t *testing.T) {
	assert.True(t, IsImportantKeyword(".net"))

	res := CalculateATSScore(&models.CV{Summary: "Built .NET services"}, "Senior .NET developer")
	assert.Equal(t, []string{".net"}, res.KeywordMatches)
	assert.Equal(t, []string{"senior", "developer"}, res.MissingKeywords)
	// .net весит 2 из 4
	assert.Equal(t, 50, res.Score)
}

func TestCalculateATSScore_NoKeywords(t *testing.T) {
	res := CalculateATSScore(&models.CV{Summary: "anything"}, "the and of")
	assert.Equal(t, 0, res.Score)
	assert.NotNil(t, res.KeywordMatches)
	assert.NotNil(t, res.MissingKeywords)
}
