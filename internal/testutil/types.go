package testutil

import (
	"gorm.io/datatypes"

	"cvbuilder_backend/internal/models"
)

// Типы значений, которые сервисы передают в UpdateFields для JSON-колонок
type (
	datatypesPersonalInfo   = datatypes.JSONType[models.PersonalInfo]
	datatypesMetadata       = datatypes.JSONType[models.CVMetadata]
	datatypesPrivacy        = datatypes.JSONType[models.CVPrivacy]
	datatypesWork           = datatypes.JSONSlice[models.WorkExperience]
	datatypesEducation      = datatypes.JSONSlice[models.Education]
	datatypesSkills         = datatypes.JSONSlice[models.Skill]
	datatypesLanguages      = datatypes.JSONSlice[models.Language]
	datatypesProjects       = datatypes.JSONSlice[models.Project]
	datatypesCertifications = datatypes.JSONSlice[models.Certification]
	datatypesCustomSections = datatypes.JSONSlice[models.CustomSection]
	datatypesReferences     = datatypes.JSONSlice[models.Reference]
)
