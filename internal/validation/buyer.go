// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mmeshcher/raffle-system/internal/model"
)

const (
	maxNameLength  = 200
	maxCityLength  = 100
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// IsValidBuyer проверяет, что данные покупателя пригодны для резервации:
// непустое имя, корректный e-mail и телефон, состоящий из цифр.
func IsValidBuyer(b model.Buyer) bool {
	return isValidName(b.Name) &&
		IsValidEmail(b.Email) &&
		IsValidPhone(b.Phone) &&
		utf8.RuneCountInString(b.City) <= maxCityLength
}

func isValidName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && utf8.RuneCountInString(name) <= maxNameLength
}

// IsValidEmail проверяет синтаксис адреса электронной почты.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// IsValidPhone проверяет номер телефона: необязательный ведущий «+»,
// далее только цифры, пробелы и дефисы, от 7 до 15 значащих цифр.
func IsValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")
	if phone == "" {
		return false
	}

	digits := 0
	for _, ch := range phone {
		switch {
		case unicode.IsDigit(ch):
			digits++
		case ch == ' ' || ch == '-':
		default:
			return false
		}
	}

	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}
