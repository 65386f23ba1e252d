package validation

import (
	"net/mail"
	"strings"
)

const maxFullNameLen = 120

// ValidateEmail проверяет формат email адреса
func ValidateEmail(email string) error {
	if msg := checkEmail(email); msg != "" {
		return Field("email", msg)
	}
	return nil
}

// checkEmail returns a problem description or "" for a valid address
func checkEmail(email string) string {
	if email == "" {
		return "email cannot be empty"
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "email is not a valid address"
	}

	return ""
}

// Registration is a validated registration request.
type Registration struct {
	Username string
	Email    string
	FullName string
	Password string
}

// ValidateRegistration нормализует и проверяет данные регистрации
// Возвращает Errors со всеми найденными проблемами
func ValidateRegistration(username, email, fullName, password string) (Registration, error) {
	reg := Registration{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		FullName: strings.TrimSpace(fullName),
		Password: password,
	}

	errs := Errors{}

	if err := ValidateUsername(reg.Username); err != nil {
		errs.Add("username", err.Error())
	}

	if msg := checkEmail(reg.Email); msg != "" {
		errs.Add("email", msg)
	}

	switch {
	case reg.FullName == "":
		errs.Add("fullName", "full name cannot be empty")
	case len([]rune(reg.FullName)) > maxFullNameLen:
		errs.Add("fullName", "full name is too long")
	}

	if err := ValidatePassword(reg.Password); err != nil {
		errs.Add("password", err.Error())
	}

	if err := errs.Err(); err != nil {
		return Registration{}, err
	}

	return reg, nil
}
