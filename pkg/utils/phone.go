package utils

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhone is returned when a phone cannot be normalized
var ErrInvalidPhone = errors.New("unable to normalize phone number")

const (
	chileCountryCode  = 56
	chileMobileDigits = 9
)

var phoneReplacer = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "", "\t", "")

// NormalizePhone converts a loosely formatted Chilean mobile number into
// +569XXXXXXXX. Anything else is rejected with ErrInvalidPhone.
func NormalizePhone(raw string) (string, error) {
	phone := phoneReplacer.Replace(strings.TrimSpace(raw))
	if phone == "" {
		return "", ErrInvalidPhone
	}

	if strings.HasPrefix(phone, "00") {
		phone = "+" + phone[2:]
	}
	if !strings.HasPrefix(phone, "+") {
		if !isDigits(phone) {
			return "", ErrInvalidPhone
		}
		switch {
		case len(phone) == 11 && strings.HasPrefix(phone, "569"):
			phone = "+" + phone
		case len(phone) == 9 && phone[0] == '9':
			phone = "+56" + phone
		case len(phone) == 8:
			phone = "+569" + phone
		default:
			return "", ErrInvalidPhone
		}
	} else if !isDigits(phone[1:]) {
		return "", ErrInvalidPhone
	}

	num, err := phonenumbers.Parse(phone, "CL")
	if err != nil {
		return "", ErrInvalidPhone
	}
	national := phonenumbers.GetNationalSignificantNumber(num)
	if num.GetCountryCode() != chileCountryCode || len(national) != chileMobileDigits || national[0] != '9' {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
