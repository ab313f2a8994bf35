// Package testutil содержит in-memory реализации репозиториев и HTTP-хелперы
// для тестов сервисов и роутера без живой базы.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvbuilder_backend/internal/models"
	"cvbuilder_backend/internal/repositories"
)

// Store - общее состояние фейковых репозиториев. db во всех методах игнорируется.
type Store struct {
	mu     sync.Mutex
	users  map[string]*models.User
	cvs    map[string]*models.CV
	clock  time.Time
	events sync.Mutex
	seen   map[string]models.ProcessedWebhookEvent
}

func NewStore() *Store {
	return &Store{
		users: map[string]*models.User{},
		cvs:   map[string]*models.CV{},
		clock: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		seen:  map[string]models.ProcessedWebhookEvent{},
	}
}

func (s *Store) Users() repositories.UserRepository                  { return &userRepo{s} }
func (s *Store) CVs() repositories.CVRepository                      { return &cvRepo{s} }
func (s *Store) WebhookEvents() repositories.WebhookEventRepository { return &eventRepo{s} }

// tick - монотонное время, чтобы сортировка по updated_at была детерминированной
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// UserCount / CVCount - для проверок в тестах
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) CVCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, cv := range s.cvs {
		if cv.UserID == userID {
			n++
		}
	}
	return n
}

// PutUser кладет пользователя как есть (тарифы, сроки) для подготовки теста
func (s *Store) PutUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.tick()
		u.UpdatedAt = u.CreatedAt
	}
	cp := *u
	s.users[u.ID] = &cp
}

// ---------------------------------------------------------------------------
// users
// ---------------------------------------------------------------------------

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ *gorm.DB, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repositories.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.s.tick()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *userRepo) FindByID(_ *gorm.DB, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *userRepo) FindByEmail(_ *gorm.DB, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *userRepo) FindByResetToken(_ *gorm.DB, tokenHash string) (*models.User, error) {
	if tokenHash == "" {
		return nil, repositories.ErrUserNotFound
	}
	return r.find(func(u *models.User) bool { return u.ResetToken == tokenHash })
}

func (r *userRepo) FindByVerificationToken(_ *gorm.DB, token string) (*models.User, error) {
	if token == "" {
		return nil, repositories.ErrUserNotFound
	}
	return r.find(func(u *models.User) bool { return u.VerificationToken == token })
}

func (r *userRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *userRepo) UpdateFields(_ *gorm.DB, userID string, fields map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if email, ok := fields["email"].(string); ok {
		for _, other := range r.s.users {
			if other.ID != userID && other.Email == email {
				return repositories.ErrUserAlreadyExists
			}
		}
	}

	cp := *u
	for k, v := range fields {
		switch k {
		case "name":
			cp.Name = v.(string)
		case "email":
			cp.Email = v.(string)
		case "password_hash":
			cp.PasswordHash = v.(string)
		case "active":
			cp.Active = v.(bool)
		case "is_verified":
			cp.IsVerified = v.(bool)
		case "verification_token":
			cp.VerificationToken = v.(string)
		case "reset_token":
			cp.ResetToken = v.(string)
		case "reset_token_exp":
			cp.ResetTokenExp = timePtr(v)
		case "last_login_at":
			cp.LastLoginAt = timePtr(v)
		case "subscription_tier":
			cp.SubscriptionTier = v.(models.SubscriptionTier)
		case "subscription_status":
			cp.SubscriptionStatus = v.(models.SubscriptionStatus)
		case "subscription_plan":
			cp.SubscriptionPlan = v.(models.SubscriptionPlan)
		case "subscription_expires_at":
			cp.SubscriptionExpiresAt = timePtr(v)
		case "updated_at":
		default:
			panic("testutil: unsupported user field " + k)
		}
	}
	cp.UpdatedAt = r.s.tick()
	r.s.users[userID] = &cp
	return nil
}

func (r *userRepo) Delete(_ *gorm.DB, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return repositories.ErrUserNotFound
	}
	for id, cv := range r.s.cvs {
		if cv.UserID == userID {
			delete(r.s.cvs, id)
		}
	}
	delete(r.s.users, userID)
	return nil
}

func (r *userRepo) DowngradeExpired(_ *gorm.DB, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if u.SubscriptionTier == models.TierFree || u.SubscriptionExpiresAt == nil || !u.SubscriptionExpiresAt.Before(now) {
			continue
		}
		u.SubscriptionTier = models.TierFree
		u.SubscriptionStatus = models.SubscriptionStatusExpired
		u.UpdatedAt = now
		n++
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// cvs
// ---------------------------------------------------------------------------

type cvRepo struct{ s *Store }

func (r *cvRepo) CreateWithinLimit(_ *gorm.DB, cv *models.CV, limit int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	owner, ok := r.s.users[cv.UserID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if limit > 0 {
		n := 0
		for _, c := range r.s.cvs {
			if c.UserID == cv.UserID {
				n++
			}
		}
		if n >= limit {
			return repositories.ErrCVLimitReached
		}
	}
	if cv.ID == "" {
		cv.ID = uuid.NewString()
	}
	now := r.s.tick()
	cv.CreatedAt, cv.UpdatedAt = now, now
	cp := *cv
	r.s.cvs[cv.ID] = &cp
	owner.CVsCreated++
	return nil
}

func (r *cvRepo) FindByID(_ *gorm.DB, id string) (*models.CV, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cv, ok := r.s.cvs[id]
	if !ok {
		return nil, repositories.ErrCVNotFound
	}
	cp := *cv
	return &cp, nil
}

func (r *cvRepo) FindByUser(_ *gorm.DB, userID string) ([]models.CV, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.CV{}
	for _, cv := range r.s.cvs {
		if cv.UserID == userID {
			out = append(out, *cv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *cvRepo) FindByShareToken(_ *gorm.DB, token string) (*models.CV, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if token == "" {
		return nil, repositories.ErrCVNotFound
	}
	for _, cv := range r.s.cvs {
		if cv.ShareToken != nil && *cv.ShareToken == token {
			cp := *cv
			return &cp, nil
		}
	}
	return nil, repositories.ErrCVNotFound
}

func (r *cvRepo) CountByUser(_ *gorm.DB, userID string) (int64, error) {
	return int64(r.s.CVCount(userID)), nil
}

func (r *cvRepo) UpdateFields(_ *gorm.DB, cvID string, fields map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cv, ok := r.s.cvs[cvID]
	if !ok {
		return repositories.ErrCVNotFound
	}

	cp := *cv
	for k, v := range fields {
		switch k {
		case "title":
			cp.Title = v.(string)
		case "template":
			cp.Template = v.(models.CVTemplate)
		case "summary":
			cp.Summary = v.(string)
		case "personal_info":
			cp.PersonalInfo = v.(datatypesPersonalInfo)
		case "work_experience":
			cp.WorkExperience = v.(datatypesWork)
		case "education":
			cp.Education = v.(datatypesEducation)
		case "skills":
			cp.Skills = v.(datatypesSkills)
		case "languages":
			cp.Languages = v.(datatypesLanguages)
		case "projects":
			cp.Projects = v.(datatypesProjects)
		case "certifications":
			cp.Certifications = v.(datatypesCertifications)
		case "custom_sections":
			cp.CustomSections = v.(datatypesCustomSections)
		case "cv_references":
			cp.References = v.(datatypesReferences)
		case "metadata":
			cp.Metadata = v.(datatypesMetadata)
		case "privacy":
			cp.Privacy = v.(datatypesPrivacy)
		case "share_token":
			token := v.(*string)
			if token != nil {
				for id, other := range r.s.cvs {
					if id != cvID && other.ShareToken != nil && *other.ShareToken == *token {
						return repositories.ErrShareTokenTaken
					}
				}
			}
			cp.ShareToken = token
		case "updated_at":
		default:
			panic("testutil: unsupported cv field " + k)
		}
	}
	cp.UpdatedAt = r.s.tick()
	r.s.cvs[cvID] = &cp
	return nil
}

func (r *cvRepo) UpdateMetadata(_ *gorm.DB, cvID string, md models.CVMetadata) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cv, ok := r.s.cvs[cvID]
	if !ok {
		return repositories.ErrCVNotFound
	}
	cp := *cv
	cp.Metadata = datatypes.NewJSONType(md)
	r.s.cvs[cvID] = &cp
	return nil
}

func (r *cvRepo) Delete(_ *gorm.DB, cvID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cvs[cvID]; !ok {
		return repositories.ErrCVNotFound
	}
	delete(r.s.cvs, cvID)
	return nil
}

func (r *cvRepo) FileKeysByUser(_ *gorm.DB, userID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var keys []string
	for _, cv := range r.s.cvs {
		if cv.UserID == userID {
			md := cv.Metadata.Data()
			for _, key := range []string{md.PDFKey, md.PhotoKey} {
				if key != "" {
					keys = append(keys, key)
				}
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ---------------------------------------------------------------------------
// webhook events
// ---------------------------------------------------------------------------

type eventRepo struct{ s *Store }

// ApplyOnce сериализует применение событий; при ошибке apply запись откатывается
func (r *eventRepo) ApplyOnce(db *gorm.DB, event *models.ProcessedWebhookEvent, apply func(tx *gorm.DB) error) error {
	r.s.events.Lock()
	defer r.s.events.Unlock()
	if _, ok := r.s.seen[event.EventID]; ok {
		return repositories.ErrEventAlreadyProcessed
	}
	if err := apply(db); err != nil {
		return err
	}
	r.s.seen[event.EventID] = *event
	return nil
}

func (r *eventRepo) Exists(_ *gorm.DB, eventID string) (bool, error) {
	r.s.events.Lock()
	defer r.s.events.Unlock()
	_, ok := r.s.seen[eventID]
	return ok, nil
}

func timePtr(v interface{}) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return &t
	case *time.Time:
		return t
	default:
		panic("testutil: unsupported time value")
	}
}
