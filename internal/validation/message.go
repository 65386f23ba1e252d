package validation

import "strings"

const maxMessageLen = 5000

// ContactMessage is a validated contact-form submission.
type ContactMessage struct {
	PropertyID string
	Body       string
	UserName   string
	UserEmail  string
}

// ValidateContactMessage проверяет заявку с контактной формы
func ValidateContactMessage(propertyID, body, userName, userEmail string) (ContactMessage, error) {
	msg := ContactMessage{
		PropertyID: strings.TrimSpace(propertyID),
		Body:       strings.TrimSpace(body),
		UserName:   strings.TrimSpace(userName),
		UserEmail:  strings.ToLower(strings.TrimSpace(userEmail)),
	}

	errs := Errors{}

	if msg.PropertyID == "" {
		errs.Add("propertyId", "propertyId is required")
	}

	requireText(errs, "message", msg.Body, maxMessageLen)
	requireText(errs, "userName", msg.UserName, maxFullNameLen)

	if problem := checkEmail(msg.UserEmail); problem != "" {
		errs.Add("userEmail", problem)
	}

	if err := errs.Err(); err != nil {
		return ContactMessage{}, err
	}

	return msg, nil
}
