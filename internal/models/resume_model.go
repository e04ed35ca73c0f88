package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultResumeTitle is used for resumes created without an explicit title.
const DefaultResumeTitle = "My Resume"

// Delivery modes accepted for a training entry.
const (
	DeliveryOnline      = "online"
	DeliveryOnsite      = "onsite"
	DeliveryHybrid      = "hybrid"
	DeliveryWorkshop    = "workshop"
	DeliveryJobTraining = "job training"
)

// Training levels.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Skill types.
const (
	SkillUpskill    = "Upskill"
	SkillReskill    = "Reskill"
	SkillCrossSkill = "Cross-skill"
)

// trainingNamespace seeds the name-based ids given to legacy training entries.
var trainingNamespace = uuid.MustParse("6f1c3f4e-8d2b-4c61-9a57-2e9b1f0c7d3a")

// Resume is the top-level aggregate stored in the resumes collection, keyed by ID.
type Resume struct {
	ID           string       `json:"id" firestore:"id"`
	UserID       string       `json:"userId" firestore:"userId" validate:"required"`
	Title        string       `json:"title" firestore:"title" validate:"required,max=200"`
	PersonalInfo PersonalInfo `json:"personalInfo" firestore:"personalInfo"`
	Experience   []Experience `json:"experience" firestore:"experience" validate:"dive"`
	Education    []Education  `json:"education" firestore:"education" validate:"dive"`
	Training     []Training   `json:"training" firestore:"training" validate:"dive"`
	Skills       []string     `json:"skills" firestore:"skills" validate:"dive,max=100"`
	UpdatedAt    time.Time    `json:"updatedAt" firestore:"updatedAt"`
	IsPublic     bool         `json:"isPublic" firestore:"isPublic"`
	MigratedAt   *time.Time   `json:"migratedAt,omitempty" firestore:"migratedAt,omitempty"`
	LegacyID     string       `json:"legacyId,omitempty" firestore:"legacyId,omitempty"`
}

// PersonalInfo holds the contact block of a resume.
type PersonalInfo struct {
	FullName string `json:"fullName" firestore:"fullName" validate:"required,max=200"`
	Email    string `json:"email" firestore:"email" validate:"required,email"`
	Phone    string `json:"phone" firestore:"phone" validate:"max=50"`
	Location string `json:"location" firestore:"location" validate:"max=200"`
	Summary  string `json:"summary" firestore:"summary"`
}

// Experience is one work history entry.
type Experience struct {
	ID               string `json:"id,omitempty" firestore:"id,omitempty"`
	Title            string `json:"title" firestore:"title" validate:"required"`
	Company          string `json:"company" firestore:"company" validate:"required"`
	StartDate        string `json:"startDate" firestore:"startDate"`
	EndDate          string `json:"endDate" firestore:"endDate"`
	CurrentlyWorking bool   `json:"currentlyWorking" firestore:"currentlyWorking"`
	Description      string `json:"description" firestore:"description"`
}

// Education is one education history entry.
type Education struct {
	ID             string `json:"id,omitempty" firestore:"id,omitempty"`
	School         string `json:"school" firestore:"school"`
	Degree         string `json:"degree" firestore:"degree"`
	FieldOfStudy   string `json:"fieldOfStudy" firestore:"fieldOfStudy"`
	StartDate      string `json:"startDate" firestore:"startDate"`
	GraduationDate string `json:"graduationDate" firestore:"graduationDate"`
	Description    string `json:"description" firestore:"description"`
}

// Training is a course or certification entry. Image is an optional data URL.
type Training struct {
	ID                string  `json:"id" firestore:"id"`
	Name              string  `json:"name" firestore:"name" validate:"required"`
	Issuer            string  `json:"issuer" firestore:"issuer" validate:"required"`
	Date              string  `json:"date" firestore:"date"`
	CourseCode        string  `json:"courseCode,omitempty" firestore:"courseCode,omitempty"`
	SkillCategory     string  `json:"skillCategory,omitempty" firestore:"skillCategory,omitempty"`
	Instructor        string  `json:"instructor,omitempty" firestore:"instructor,omitempty"`
	LearningObjective string  `json:"learningObjective,omitempty" firestore:"learningObjective,omitempty"`
	StartDate         string  `json:"startDate,omitempty" firestore:"startDate,omitempty"`
	EndDate           string  `json:"endDate,omitempty" firestore:"endDate,omitempty"`
	DeliveryMode      string  `json:"deliveryMode,omitempty" firestore:"deliveryMode,omitempty" validate:"omitempty,oneof=online onsite hybrid workshop 'job training'"`
	TrainingLevel     string  `json:"trainingLevel,omitempty" firestore:"trainingLevel,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	SkillType         string  `json:"skillType,omitempty" firestore:"skillType,omitempty" validate:"omitempty,oneof=Upskill Reskill Cross-skill"`
	Prerequisites     string  `json:"prerequisites,omitempty" firestore:"prerequisites,omitempty"`
	TrainingCost      float64 `json:"trainingCost,omitempty" firestore:"trainingCost,omitempty" validate:"gte=0"`
	Note              string  `json:"note,omitempty" firestore:"note,omitempty"`
	Image             string  `json:"image,omitempty" firestore:"image,omitempty"`
}

// NewResume returns a resume with a fresh id and the defaults used for a blank document.
func NewResume(userID, title, fullName, email string) *Resume {
	if title == "" {
		title = DefaultResumeTitle
	}
	return &Resume{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
		PersonalInfo: PersonalInfo{
			FullName: fullName,
			Email:    email,
		},
		Experience: []Experience{},
		Education:  []Education{},
		Training:   []Training{},
		Skills:     []string{},
		UpdatedAt:  time.Now().UTC(),
	}
}

// Clone returns a deep copy. Nil and empty slices keep their distinction.
func (r *Resume) Clone() *Resume {
	if r == nil {
		return nil
	}
	c := *r
	c.Experience = cloneSlice(r.Experience)
	c.Education = cloneSlice(r.Education)
	c.Training = cloneSlice(r.Training)
	c.Skills = cloneSlice(r.Skills)
	if r.MigratedAt != nil {
		t := *r.MigratedAt
		c.MigratedAt = &t
	}
	return &c
}

// BackfillTrainingIDs assigns ids to training entries stored without one.
// The id is derived from the resume id and position, so repeated reads agree
// until a save persists it.
func (r *Resume) BackfillTrainingIDs() {
	for i := range r.Training {
		if r.Training[i].ID == "" {
			r.Training[i].ID = uuid.NewSHA1(trainingNamespace, []byte(r.ID+"/training/"+strconv.Itoa(i))).String()
		}
	}
}

// TrainingIndex returns the position of the training entry with the given id, or -1.
func (r *Resume) TrainingIndex(trainingID string) int {
	for i := range r.Training {
		if r.Training[i].ID == trainingID {
			return i
		}
	}
	return -1
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
