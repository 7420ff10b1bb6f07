package model

// EmailTemplate is stored notification template text. Subject and Body are
// template sources merged with author and recipient identities at send
// time.
type EmailTemplate struct {
	ID      string
	Subject string
	Body    string
}
