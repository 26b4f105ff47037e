package database

import (
	"slices"
	"time"
)

// User is a registered account. Email is stored lowercased and is unique.
type User struct {
	ID           string    `db:"id"            json:"id"`
	Name         string    `db:"name"          json:"name"`
	Email        string    `db:"email"         json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at"    json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updatedAt"`
}

// Trait is an entry of the shared trait catalog that persons reference.
type Trait struct {
	ID          string    `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Category    string    `db:"category"    json:"category"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at"  json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updatedAt"`
}

// TraitCategories lists the accepted trait categories.
var TraitCategories = []string{
	"Personality",
	"Funny/Embarrassing",
	"Body Structure",
	"physical",
	"personality",
	"behavior",
	"style",
	"other",
}

// IsValidTraitCategory reports whether category is one of TraitCategories.
func IsValidTraitCategory(category string) bool {
	return slices.Contains(TraitCategories, category)
}

// Person is a profile owned by a user. Traits keep the order they were
// attached in.
type Person struct {
	ID         string    `db:"id"          json:"id"`
	OwnerID    string    `db:"owner_id"    json:"ownerId"`
	Name       string    `db:"name"        json:"name"`
	SkinColor  string    `db:"skin_color"  json:"skinColor"`
	AnimalType string    `db:"animal_type" json:"animalType"`
	CreatedAt  time.Time `db:"created_at"  json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updatedAt"`

	Traits []Trait `db:"-" json:"traits"`
}

// TraitNames returns the names of the person's traits in stored order.
func (p *Person) TraitNames() []string {
	names := make([]string, 0, len(p.Traits))
	for _, t := range p.Traits {
		names = append(names, t.Name)
	}
	return names
}

// Roast is one pre-written entry of the roast corpus. Text may contain the
// {name} placeholder.
type Roast struct {
	ID        int64     `db:"id"         json:"id"`
	Text      string    `db:"text"       json:"text"`
	Category  string    `db:"category"   json:"category"`
	Tags      string    `db:"tags"       json:"tags"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Feedback statuses.
const (
	FeedbackPending   = "pending"
	FeedbackRead      = "read"
	FeedbackResponded = "responded"
)

// Feedback is a message left through the public contact form.
type Feedback struct {
	ID          string    `db:"id"           json:"id"`
	Name        string    `db:"name"         json:"name"`
	Email       string    `db:"email"        json:"email"`
	Message     string    `db:"message"      json:"message"`
	Status      string    `db:"status"       json:"status"`
	SubmittedAt time.Time `db:"submitted_at" json:"submittedAt"`
}

// Form submission statuses.
const (
	SubmissionPending  = "pending"
	SubmissionReviewed = "reviewed"
	SubmissionResolved = "resolved"
)

// FormSubmission is a contact message sent by an authenticated user.
type FormSubmission struct {
	ID          string    `db:"id"           json:"id"`
	Name        string    `db:"name"         json:"name"`
	Email       string    `db:"email"        json:"email"`
	Message     string    `db:"message"      json:"message"`
	SubmittedBy string    `db:"submitted_by" json:"submittedBy"`
	Status      string    `db:"status"       json:"status"`
	CreatedAt   time.Time `db:"created_at"   json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updatedAt"`
}
