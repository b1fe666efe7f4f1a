package models

// ContactMessage is a submission from the marketing site's contact form.
type ContactMessage struct {
	BaseModel
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
