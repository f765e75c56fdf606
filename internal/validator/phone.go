package validator

import (
	"regexp"
	"strings"
)

var localMobilePattern = regexp.MustCompile(`^01[3-9]\d{8}$`)

// NormalizePhone strips separators and the +880/880 country prefix so that
// every stored phone uses the 11 digit local form.
func NormalizePhone(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	phone = replacer.Replace(strings.TrimSpace(phone))

	switch {
	case strings.HasPrefix(phone, "+880"):
		phone = "0" + strings.TrimPrefix(phone, "+880")
	case strings.HasPrefix(phone, "00880"):
		phone = "0" + strings.TrimPrefix(phone, "00880")
	case strings.HasPrefix(phone, "880") && len(phone) == 13:
		phone = "0" + strings.TrimPrefix(phone, "880")
	}
	return phone
}

func IsValidPhone(phone string) bool {
	return localMobilePattern.MatchString(NormalizePhone(phone))
}
