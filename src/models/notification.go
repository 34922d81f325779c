package models

// Notification is a basic feed item shown in the user's banking app.
// Empty optional fields are omitted from the request.
type Notification struct {
	Title            string
	Body             string
	ImageURL         string
	BackgroundColour string
	TitleColour      string
	BodyColour       string
	URL              string
}
