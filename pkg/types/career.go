package types

import "time"

type ApplicationStatus string

const (
	ApplicationStatusNew       ApplicationStatus = "new"
	ApplicationStatusReviewed  ApplicationStatus = "reviewed"
	ApplicationStatusInterview ApplicationStatus = "interview"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusHired     ApplicationStatus = "hired"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusNew, ApplicationStatusReviewed, ApplicationStatusInterview,
		ApplicationStatusRejected, ApplicationStatusHired:
		return true
	}
	return false
}

type CareerApplication struct {
	ID              string            `db:"id" json:"id"`
	FullName        string            `db:"full_name" json:"fullName" form:"fullName"`
	Email           string            `db:"email" json:"email" form:"email"`
	Phone           *string           `db:"phone" json:"phone,omitempty" form:"phone"`
	Position        string            `db:"position" json:"position" form:"position"`
	ExperienceYears *int              `db:"experience_years" json:"experienceYears,omitempty" form:"experienceYears"`
	ResumeURL       *string           `db:"resume_url" json:"resumeUrl,omitempty" form:"resumeUrl"`
	LinkedInURL     *string           `db:"linkedin_url" json:"linkedinUrl,omitempty" form:"linkedinUrl"`
	CoverLetter     *string           `db:"cover_letter" json:"coverLetter,omitempty" form:"coverLetter"`
	Status          ApplicationStatus `db:"status" json:"status" form:"-"`
	AdminNotes      *string           `db:"admin_notes" json:"adminNotes,omitempty" form:"-"`
	ReviewedBy      *string           `db:"reviewed_by" json:"reviewedBy,omitempty" form:"-"`
	ReviewedAt      *time.Time        `db:"reviewed_at" json:"reviewedAt,omitempty" form:"-"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt" form:"-"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updatedAt" form:"-"`
}

type ApplicationReview struct {
	Status     ApplicationStatus `json:"status"`
	AdminNotes *string           `json:"adminNotes,omitempty"`
}

type ApplicationFilter struct {
	Status   ApplicationStatus `form:"status"`
	Position string            `form:"position"`
	Page     uint64            `form:"page"`
	Limit    uint64            `form:"limit"`
}
