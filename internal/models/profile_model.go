package models

import "time"

// ProfileSummary is the projection returned by profile search: a public resume
// joined with its owner's avatar.
type ProfileSummary struct {
	ResumeID  string    `json:"resumeId"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Location  string    `json:"location,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Skills    []string  `json:"skills"`
	UpdatedAt time.Time `json:"updatedAt"`
	Avatar    string    `json:"avatar,omitempty"`
}

// NewProfileSummary joins a resume with its owner. owner may be nil.
func NewProfileSummary(r Resume, owner *User) ProfileSummary {
	p := ProfileSummary{
		ResumeID:  r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		FullName:  r.PersonalInfo.FullName,
		Email:     r.PersonalInfo.Email,
		Location:  r.PersonalInfo.Location,
		Summary:   r.PersonalInfo.Summary,
		Skills:    r.Skills,
		UpdatedAt: r.UpdatedAt,
	}
	if owner != nil {
		p.Avatar = owner.Avatar
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return p
}

// Feed item kinds.
const (
	FeedItemResume   = "resume"
	FeedItemTraining = "training"
)

// FeedItem is one entry of the dashboard feed.
type FeedItem struct {
	Type        string    `json:"type"`
	ResumeID    string    `json:"resumeId"`
	ResumeTitle string    `json:"resumeTitle"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Owner       string    `json:"user"`
	Resume      *Resume   `json:"resume,omitempty"`
	Training    *Training `json:"training,omitempty"`
}
