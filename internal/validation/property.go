package validation

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 10000
	maxAddressLen     = 300
	maxTypeLen        = 64
)

// PropertyForm is the typed content of the property multipart form.
type PropertyForm struct {
	Title       string
	Description string
	Address     string
	Type        string
	Price       int64
}

// DecodePropertyForm разбирает текстовые поля формы объекта
// Цена принимается только как целое неотрицательное число
func DecodePropertyForm(values url.Values) (PropertyForm, error) {
	form := PropertyForm{
		Title:       strings.TrimSpace(values.Get("title")),
		Description: strings.TrimSpace(values.Get("description")),
		Address:     strings.TrimSpace(values.Get("address")),
		Type:        strings.TrimSpace(values.Get("type")),
	}

	errs := Errors{}

	requireText(errs, "title", form.Title, maxTitleLen)
	requireText(errs, "description", form.Description, maxDescriptionLen)
	requireText(errs, "address", form.Address, maxAddressLen)
	requireText(errs, "type", form.Type, maxTypeLen)

	rawPrice := strings.TrimSpace(values.Get("price"))
	if rawPrice == "" {
		errs.Add("price", "price is required")
	} else {
		price, err := strconv.ParseInt(rawPrice, 10, 64)
		switch {
		case err != nil:
			errs.Add("price", "price must be an integer amount")
		case price < 0:
			errs.Add("price", "price cannot be negative")
		default:
			form.Price = price
		}
	}

	if err := errs.Err(); err != nil {
		return PropertyForm{}, err
	}

	return form, nil
}

// DecodeImageRefs разбирает поле existingImages (JSON массив строк)
// Пустое значение означает пустой список; повторяющиеся ссылки удаляются
func DecodeImageRefs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}

	var refs []string
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, Field("existingImages", "existingImages must be a JSON array of strings")
	}

	// Повторы схлопываются, порядок первых вхождений сохраняется
	seen := make(map[string]bool, len(refs))
	unique := make([]string, 0, len(refs))
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		unique = append(unique, ref)
	}

	return unique, nil
}

func requireText(errs Errors, field, value string, maxLen int) {
	switch {
	case value == "":
		errs.Add(field, field+" is required")
	case len([]rune(value)) > maxLen:
		errs.Add(field, field+" is too long")
	}
}
