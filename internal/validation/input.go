package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Константы валидации
const (
	MinUsernameLength         = 3
	MaxUsernameLength         = 30
	MinDisplayNameLength      = 2
	MaxDisplayNameLength      = 100
	MinListingTitleLength     = 3
	MaxListingTitleLength     = 200
	MinListingDescriptionLength = 10
	MaxListingDescriptionLength = 5000
	MinMessageLength          = 1
	MaxMessageLength          = 5000
	MaxReviewCommentLength    = 2000
	MaxReportDetailsLength    = 2000
	MinRating                 = 1
	MaxRating                 = 5
	MaxListingPhotos          = 10
)

// MaxPrice ограничивает цену и ставки сверху (1 миллион).
var MaxPrice = decimal.NewFromInt(1000000)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateUniversityEmail проверяет, что почта принадлежит университетскому домену.
// Пустой allowedDomain отключает проверку (dev окружение).
func ValidateUniversityEmail(email, allowedDomain string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}

	if allowedDomain == "" {
		return nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	domain := strings.ToLower(strings.TrimSpace(allowedDomain))

	// Принимаем и сам домен, и его поддомены (cs.student.example.edu).
	emailDomain := email[strings.LastIndex(email, "@")+1:]
	if emailDomain != domain && !strings.HasSuffix(emailDomain, "."+domain) {
		return fmt.Errorf("регистрация доступна только с почтой домена %s", allowedDomain)
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if len(username) > 0 && unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateDisplayName проверяет отображаемое имя.
func ValidateDisplayName(displayName string) error {
	if displayName == "" {
		return fmt.Errorf("отображаемое имя обязательно")
	}

	displayName = strings.TrimSpace(displayName)

	if err := ValidateLength("отображаемое имя", displayName, MinDisplayNameLength, MaxDisplayNameLength); err != nil {
		return err
	}

	displayNameRegex := regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9\s\-_.,!?()]+$`)
	if !displayNameRegex.MatchString(displayName) {
		return fmt.Errorf("отображаемое имя содержит недопустимые символы")
	}

	return nil
}

// ValidateListingTitle проверяет заголовок объявления.
func ValidateListingTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок объявления обязателен")
	}

	title = strings.TrimSpace(title)

	return ValidateLength("заголовок объявления", title, MinListingTitleLength, MaxListingTitleLength)
}

// ValidateListingDescription проверяет описание объявления.
func ValidateListingDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание объявления обязательно")
	}

	description = strings.TrimSpace(description)

	return ValidateLength("описание объявления", description, MinListingDescriptionLength, MaxListingDescriptionLength)
}

// ValidatePrice проверяет цену объявления или услуги.
// nil допустим для режима торгов без стартовой цены.
func ValidatePrice(price *decimal.Decimal) error {
	if price == nil {
		return nil
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("цена должна быть больше нуля")
	}
	if price.GreaterThan(MaxPrice) {
		return fmt.Errorf("цена не может превышать %s", MaxPrice.String())
	}
	return nil
}

// ValidateBidAmount проверяет сумму ставки.
func ValidateBidAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("сумма ставки должна быть больше нуля")
	}
	if amount.GreaterThan(MaxPrice) {
		return fmt.Errorf("сумма ставки не может превышать %s", MaxPrice.String())
	}
	return nil
}

// ValidateRating проверяет оценку в отзыве.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("оценка должна быть от %d до %d", MinRating, MaxRating)
	}
	return nil
}

// ValidateReviewComment проверяет текст отзыва.
func ValidateReviewComment(comment *string) error {
	if comment != nil && *comment != "" {
		text := strings.TrimSpace(*comment)
		if err := ValidateLength("текст отзыва", text, 0, MaxReviewCommentLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMessageContent проверяет содержимое сообщения.
func ValidateMessageContent(content string) error {
	if content == "" {
		return fmt.Errorf("сообщение не может быть пустым")
	}

	content = strings.TrimSpace(content)

	return ValidateLength("сообщение", content, MinMessageLength, MaxMessageLength)
}

// ValidateReportDetails проверяет подробности жалобы.
func ValidateReportDetails(details *string) error {
	if details != nil && *details != "" {
		text := strings.TrimSpace(*details)
		if err := ValidateLength("описание жалобы", text, 0, MaxReportDetailsLength); err != nil {
			return err
		}
	}
	return nil
}
