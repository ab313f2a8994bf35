package wizard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/services/dto"
	"cvbuilder_backend/internal/validator"
)

func TestNavigationIsBounded(t *testing.T) {
	w := New(nil)
	assert.Equal(t, StepTemplate, w.Current())
	assert.False(t, w.Prev())
	assert.Equal(t, StepTemplate, w.Current())

	for i := 1; i < StepCount; i++ {
		assert.True(t, w.Next())
	}
	assert.Equal(t, StepAdditional, w.Current())
	assert.False(t, w.Next(), "no wrap-around")
	assert.True(t, w.IsLast())

	assert.True(t, w.Prev())
	assert.Equal(t, StepSkills, w.Current())
}

func TestJumpTo(t *testing.T) {
	w := New(nil)
	require.NoError(t, w.JumpTo(StepEducation))
	assert.Equal(t, StepEducation, w.Current())

	require.NoError(t, w.JumpTo(StepTemplate))
	assert.Equal(t, StepTemplate, w.Current())

	assert.ErrorIs(t, w.JumpTo(Step(7)), ErrStepOutOfRange)
	assert.ErrorIs(t, w.JumpTo(Step(-1)), ErrStepOutOfRange)
	assert.Equal(t, StepTemplate, w.Current())
}

func TestStepNames(t *testing.T) {
	assert.Equal(t, "personal-info", StepPersonalInfo.String())
	assert.Equal(t, "step(9)", Step(9).String())
	assert.Len(t, Steps(), StepCount)
}

func TestSaveAndContinueMergesAndAdvances(t *testing.T) {
	w := New(nil)

	require.NoError(t, w.SaveAndContinue(Draft{Title: "Backend CV", Template: models.TemplateClassic, Summary: "ignored"}))
	assert.Equal(t, StepPersonalInfo, w.Current())
	assert.True(t, w.Saved(StepTemplate))
	assert.Empty(t, w.Draft().Summary, "template step owns only template and title")

	require.NoError(t, w.SaveAndContinue(Draft{PersonalInfo: models.PersonalInfo{FullName: "Jane Doe", Email: "jane@example.com"}}))
	require.NoError(t, w.SaveAndContinue(Draft{Summary: "Go developer"}))
	require.NoError(t, w.SaveAndContinue(Draft{WorkExperience: []models.WorkExperience{
		{Company: "Acme", Position: "Engineer"},
		{Company: "Globex", Position: "Lead"},
	}}))
	require.NoError(t, w.SaveAndContinue(Draft{Education: []models.Education{{Institution: "MIT"}}}))
	require.NoError(t, w.SaveAndContinue(Draft{
		Skills:    []models.Skill{{Name: "Go"}, {Name: "SQL"}},
		Languages: []models.Language{{Name: "English"}},
	}))
	assert.Equal(t, StepAdditional, w.Current())

	require.NoError(t, w.SaveAndContinue(Draft{Projects: []models.Project{{Name: "cvctl"}}}))
	assert.Equal(t, StepAdditional, w.Current(), "last step stays last")

	d := w.Draft()
	assert.Equal(t, "Backend CV", d.Title)
	assert.Equal(t, models.TemplateClassic, d.Template)
	assert.Equal(t, "Jane Doe", d.PersonalInfo.FullName)
	assert.Equal(t, "Go developer", d.Summary)
	assert.Len(t, d.WorkExperience, 2)
	assert.Len(t, d.Skills, 2)
	assert.Equal(t, "cvctl", d.Projects[0].Name)
}

func TestSaveAndContinueReplacesWholeField(t *testing.T) {
	w := New(nil)
	require.NoError(t, w.JumpTo(StepSkills))
	require.NoError(t, w.SaveAndContinue(Draft{Skills: []models.Skill{{Name: "Go"}, {Name: "SQL"}}}))

	require.NoError(t, w.JumpTo(StepSkills))
	require.NoError(t, w.SaveAndContinue(Draft{Skills: []models.Skill{{Name: "Rust"}}}))
	assert.Equal(t, []models.Skill{{Name: "Rust"}}, w.Draft().Skills)
}

func TestValidationBlocksMerge(t *testing.T) {
	w := New(nil)

	err := w.SaveAndContinue(Draft{Title: "CV", Template: "neon"})
	var verr *validator.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Errors, "template")
	assert.Equal(t, StepTemplate, w.Current())
	assert.Equal(t, models.TemplateModern, w.Draft().Template)

	require.NoError(t, w.JumpTo(StepPersonalInfo))
	err = w.SaveAndContinue(Draft{PersonalInfo: models.PersonalInfo{FullName: "Jane", Email: "not-an-email"}})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Errors, "email")
	assert.Equal(t, StepPersonalInfo, w.Current())
	assert.Empty(t, w.Draft().PersonalInfo.FullName)

	require.NoError(t, w.JumpTo(StepWorkExperience))
	err = w.SaveAndContinue(Draft{WorkExperience: []models.WorkExperience{{Company: "Acme", Position: "Dev"}, {Company: "NoTitle"}}})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Errors, "workExperience[1].position")
	assert.Empty(t, w.Draft().WorkExperience)
}

func TestMoveItem(t *testing.T) {
	w := New(&Draft{
		Title:    "CV",
		Template: models.TemplateMinimal,
		Skills:   []models.Skill{{Name: "A"}, {Name: "B"}, {Name: "C"}},
	})

	require.NoError(t, w.MoveItem(SectionSkills, 0, 2))
	assert.Equal(t, []models.Skill{{Name: "B"}, {Name: "C"}, {Name: "A"}}, w.Draft().Skills)

	require.NoError(t, w.MoveItem(SectionSkills, 2, 0))
	assert.Equal(t, []models.Skill{{Name: "A"}, {Name: "B"}, {Name: "C"}}, w.Draft().Skills)

	assert.ErrorIs(t, w.MoveItem(SectionSkills, 0, 3), ErrIndexOutOfRange)
	assert.ErrorIs(t, w.MoveItem(SectionEducation, 0, 0), ErrIndexOutOfRange)
	assert.ErrorIs(t, w.MoveItem("hobbies", 0, 1), ErrUnknownSection)
}

func TestDraftIsACopy(t *testing.T) {
	initial := &Draft{Title: "CV", Skills: []models.Skill{{Name: "Go"}}}
	w := New(initial)
	initial.Skills[0].Name = "changed"

	d := w.Draft()
	assert.Equal(t, "Go", d.Skills[0].Name)
	assert.Equal(t, models.TemplateModern, d.Template, "empty template defaults")

	d.Skills[0].Name = "mutated"
	assert.Equal(t, "Go", w.Draft().Skills[0].Name)
}

func TestDraftCopiesNestedLists(t *testing.T) {
	cv := &dto.CVResponse{
		Title:          "CV",
		WorkExperience: []models.WorkExperience{{Position: "Dev", Achievements: []string{"shipped"}}},
		Projects:       []models.Project{{Name: "cli", Technologies: []string{"go"}}},
		CustomSections: []models.CustomSection{{Title: "Talks", Items: []models.CustomSectionItem{{Title: "GopherCon"}}}},
	}
	d := FromCV(cv)

	cv.WorkExperience[0].Achievements[0] = "changed"
	cv.Projects[0].Technologies[0] = "changed"
	cv.CustomSections[0].Items[0].Title = "changed"

	assert.Equal(t, "shipped", d.WorkExperience[0].Achievements[0])
	assert.Equal(t, "go", d.Projects[0].Technologies[0])
	assert.Equal(t, "GopherCon", d.CustomSections[0].Items[0].Title)

	w := New(&d)
	got := w.Draft()
	got.WorkExperience[0].Achievements[0] = "mutated"
	got.Projects[0].Technologies[0] = "mutated"
	got.CustomSections[0].Items[0].Title = "mutated"

	again := w.Draft()
	assert.Equal(t, "shipped", again.WorkExperience[0].Achievements[0])
	assert.Equal(t, "go", again.Projects[0].Technologies[0])
	assert.Equal(t, "GopherCon", again.CustomSections[0].Items[0].Title)

	req := again.CreateRequest()
	(*req.WorkExperience)[0].Achievements[0] = "request"
	assert.Equal(t, "shipped", again.WorkExperience[0].Achievements[0])
}

func TestCreateRequest(t *testing.T) {
	d := NewDraft()
	d.Title = "CV"
	d.Summary = "hello"
	req := d.CreateRequest()

	assert.Equal(t, "CV", req.Title)
	assert.Equal(t, models.TemplateModern, req.Template)
	require.NotNil(t, req.Summary)
	assert.Equal(t, "hello", *req.Summary)

	upd := d.UpdateRequest()
	require.NotNil(t, upd.Title)
	assert.Equal(t, "CV", *upd.Title)
}
