package wizard

import (
	"errors"
	"fmt"
	"slices"
)

// Step - шаг мастера создания резюме
type Step int

const (
	StepTemplate Step = iota
	StepPersonalInfo
	StepSummary
	StepWorkExperience
	StepEducation
	StepSkills
	StepAdditional
)

// StepCount - количество шагов
const StepCount = 7

var stepNames = [StepCount]string{
	"template",
	"personal-info",
	"summary",
	"work-experience",
	"education",
	"skills",
	"additional",
}

func (s Step) String() string {
	if s.Valid() {
		return stepNames[s]
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) Valid() bool { return s >= 0 && s < StepCount }

// Steps - все шаги по порядку
func Steps() []Step {
	out := make([]Step, StepCount)
	for i := range out {
		out[i] = Step(i)
	}
	return out
}

var ErrStepOutOfRange = errors.New("wizard: step out of range")

// Wizard - конечный автомат шагов. Черновик живет только в памяти,
// сохранение на сервер делает вызывающий код.
type Wizard struct {
	current Step
	draft   Draft
	saved   [StepCount]bool
}

// New начинает с первого шага. initial - существующее резюме при редактировании.
func New(initial *Draft) *Wizard {
	w := &Wizard{draft: NewDraft()}
	if initial != nil {
		w.draft = initial.clone()
		if w.draft.Template == "" {
			w.draft.Template = defaultTemplate
		}
	}
	return w
}

func (w *Wizard) Current() Step { return w.current }

func (w *Wizard) IsFirst() bool { return w.current == 0 }
func (w *Wizard) IsLast() bool  { return w.current == StepCount-1 }

// Next - на шаг вперед; на последнем шаге ничего не делает
func (w *Wizard) Next() bool {
	if w.IsLast() {
		return false
	}
	w.current++
	return true
}

// Prev - на шаг назад; на первом шаге ничего не делает
func (w *Wizard) Prev() bool {
	if w.IsFirst() {
		return false
	}
	w.current--
	return true
}

// JumpTo - переход на любой шаг (клик по заголовку шага)
func (w *Wizard) JumpTo(s Step) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, int(s))
	}
	w.current = s
	return nil
}

// SaveAndContinue проверяет поля текущего шага, переносит их в черновик
// целиком и переходит дальше. При ошибке черновик и шаг не меняются.
func (w *Wizard) SaveAndContinue(data Draft) error {
	if err := validateStep(w.current, &data); err != nil {
		return err
	}
	mergeStep(w.current, &w.draft, &data)
	w.saved[w.current] = true
	w.Next()
	return nil
}

// Saved - был ли шаг сохранен хотя бы раз
func (w *Wizard) Saved(s Step) bool {
	return s.Valid() && w.saved[s]
}

// Draft - копия накопленного черновика
func (w *Wizard) Draft() Draft {
	return w.draft.clone()
}

// Section - список, который можно переупорядочивать
type Section string

const (
	SectionWorkExperience Section = "workExperience"
	SectionEducation      Section = "education"
	SectionSkills         Section = "skills"
	SectionLanguages      Section = "languages"
	SectionProjects       Section = "projects"
	SectionCertifications Section = "certifications"
	SectionCustom         Section = "customSections"
	SectionReferences     Section = "references"
)

var ErrUnknownSection = errors.New("wizard: unknown section")

// MoveItem переносит элемент списка с позиции from на позицию to
func (w *Wizard) MoveItem(section Section, from, to int) error {
	d := &w.draft
	var err error
	switch section {
	case SectionWorkExperience:
		d.WorkExperience, err = move(d.WorkExperience, from, to)
	case SectionEducation:
		d.Education, err = move(d.Education, from, to)
	case SectionSkills:
		d.Skills, err = move(d.Skills, from, to)
	case SectionLanguages:
		d.Languages, err = move(d.Languages, from, to)
	case SectionProjects:
		d.Projects, err = move(d.Projects, from, to)
	case SectionCertifications:
		d.Certifications, err = move(d.Certifications, from, to)
	case SectionCustom:
		d.CustomSections, err = move(d.CustomSections, from, to)
	case SectionReferences:
		d.References, err = move(d.References, from, to)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return err
}

var ErrIndexOutOfRange = errors.New("wizard: item index out of range")

func move[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return items, fmt.Errorf("%w: move %d -> %d of %d", ErrIndexOutOfRange, from, to, len(items))
	}
	if from == to {
		return items, nil
	}
	item := items[from]
	items = slices.Delete(items, from, from+1)
	return slices.Insert(items, to, item), nil
}
